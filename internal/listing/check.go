package listing

import (
	"encoding/json"
	"fmt"

	"github.com/jafarshop/relister/internal/domain"
)

// Check sources
const (
	CheckSelf        = "self"
	CheckDestination = "destination"
)

// CheckPayload compares expected items against built items by position
func CheckPayload(expected []ExpectedItem, actual []domain.Item) domain.PayloadCheck {
	return compare(CheckSelf, expected, func(i int, name string) (domain.Item, bool) {
		if i < len(actual) {
			return actual[i], true
		}
		return domain.Item{}, false
	}, len(actual))
}

type storedListing struct {
	Data struct {
		Items []domain.Item `json:"items"`
	} `json:"data"`
}

// CheckStored compares expected items against the listing the destination
// returned. Items are matched by name since the stored order is not guaranteed.
func CheckStored(expected []ExpectedItem, storedJSON []byte) (domain.PayloadCheck, error) {
	var stored storedListing
	if err := json.Unmarshal(storedJSON, &stored); err != nil {
		return domain.PayloadCheck{Source: CheckDestination}, fmt.Errorf("decode stored listing: %w", err)
	}
	byName := make(map[string]domain.Item, len(stored.Data.Items))
	for _, it := range stored.Data.Items {
		byName[it.ItemName] = it
	}
	return compare(CheckDestination, expected, func(_ int, name string) (domain.Item, bool) {
		it, ok := byName[name]
		return it, ok
	}, len(stored.Data.Items)), nil
}

func compare(source string, expected []ExpectedItem, lookup func(int, string) (domain.Item, bool), actualCount int) domain.PayloadCheck {
	check := domain.PayloadCheck{Source: source, Passed: true}
	if actualCount != len(expected) {
		check.Passed = false
		check.Issues = append(check.Issues, fmt.Sprintf("expected %d items, found %d", len(expected), actualCount))
	}
	for i, e := range expected {
		it, ok := lookup(i, e.Name)
		if !ok {
			check.Passed = false
			check.Issues = append(check.Issues, fmt.Sprintf("item %q missing", e.Name))
			continue
		}
		c := domain.ItemCheck{
			Name:          e.Name,
			ExpectedPrice: e.Price,
			ActualPrice:   it.SalePrice,
			ExpectedStock: e.Stock,
			ActualStock:   it.MaximumBuyCount,
		}
		c.PriceOK = c.ExpectedPrice == c.ActualPrice
		c.StockOK = c.ExpectedStock == c.ActualStock
		if !c.PriceOK {
			check.Issues = append(check.Issues, fmt.Sprintf("item %q price %d, expected %d", e.Name, c.ActualPrice, c.ExpectedPrice))
		}
		if !c.StockOK {
			check.Issues = append(check.Issues, fmt.Sprintf("item %q stock %d, expected %d", e.Name, c.ActualStock, c.ExpectedStock))
		}
		check.Passed = check.Passed && c.PriceOK && c.StockOK
		check.Items = append(check.Items, c)
	}
	return check
}

// HasStoredItems reports whether a get-listing reply carries any items
func HasStoredItems(storedJSON []byte) bool {
	var stored storedListing
	return json.Unmarshal(storedJSON, &stored) == nil && len(stored.Data.Items) > 0
}
