// Package pricing resolves a product's base price from a source page and
// applies the seller's margin rules to it.
package pricing

import (
	"math"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/source"
)

const (
	// DefaultPrice is used when nothing on the page looks like a price
	DefaultPrice = 9900
	// MinPrice is the destination marketplace's lowest accepted price
	MinPrice = 1000
	// Unit is the rounding unit for resolved prices
	Unit = 10
)

// Price sources, reported for diagnostics
const (
	SourceVariants  = "variants"
	SourceTier      = "tier"
	SourceDisplayed = "displayed"
	SourceText      = "text"
	SourceDefault   = "default"
)

var (
	displayedWonRe = regexp.MustCompile(`\d[\d,]*\s*원`)
	textWonRe      = regexp.MustCompile(`(\d[\d,]{1,})\s*원`)
)

// Resolution is the chosen base price and how it was found
type Resolution struct {
	Price  int                `json:"price"`
	Raw    int                `json:"raw"`
	Source string             `json:"source"`
	Tiers  []domain.PriceTier `json:"tiers,omitempty"`
}

// Inputs are the price signals gathered from a page, in precedence order
type Inputs struct {
	VariantPrices  []int
	Tiers          []domain.PriceTier
	DisplayedPrice int
	PageText       string
}

// FloorToUnit floors p to a multiple of unit. unit <= 1 leaves p unchanged.
func FloorToUnit(p, unit int) int {
	if unit <= 1 {
		return p
	}
	return int(math.Floor(float64(p)/float64(unit))) * unit
}

// Resolve reads every price signal from doc and picks one
func Resolve(doc *goquery.Document, variantPrices []int) Resolution {
	return ResolveFrom(Inputs{
		VariantPrices:  variantPrices,
		Tiers:          ParseTiers(doc),
		DisplayedPrice: DisplayedPrice(doc),
		PageText:       source.InnerText(doc.Find("body")),
	})
}

// ResolveFrom applies the precedence: lowest variant price, canonical tier,
// displayed unit price, first "<n>원" in the page text, then DefaultPrice.
// The result is floored to Unit and never below MinPrice.
func ResolveFrom(in Inputs) Resolution {
	res := Resolution{Tiers: in.Tiers}

	if p, ok := minPositive(in.VariantPrices); ok {
		res.Raw, res.Source = p, SourceVariants
	} else if t, ok := CanonicalTier(in.Tiers); ok {
		res.Raw, res.Source = t.UnitPrice, SourceTier
	} else if in.DisplayedPrice > 0 {
		res.Raw, res.Source = in.DisplayedPrice, SourceDisplayed
	} else if p, ok := textPrice(in.PageText); ok {
		res.Raw, res.Source = p, SourceText
	} else {
		res.Raw, res.Source = DefaultPrice, SourceDefault
	}

	res.Price = FloorToUnit(res.Raw, Unit)
	if res.Price < MinPrice {
		res.Price = MinPrice
	}
	return res
}

// DisplayedPrice reads the page's unit price element, falling back to the
// first leaf element whose text is a "<n>원" amount.
func DisplayedPrice(doc *goquery.Document) int {
	if sel := doc.Find(".lItemPrice").First(); sel.Length() > 0 {
		if n, ok := ParseNumber(sel.Text()); ok && n > 0 {
			return n
		}
	}
	price := 0
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "script" || goquery.NodeName(s) == "style" || s.Children().Length() > 0 {
			return true
		}
		if m := displayedWonRe.FindString(s.Text()); m != "" {
			if n, ok := ParseNumber(m); ok && n > 0 {
				price = n
				return false
			}
		}
		return true
	})
	return price
}

func textPrice(text string) (int, bool) {
	m := textWonRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return ParseNumber(m[1])
}

func minPositive(values []int) (int, bool) {
	best, found := 0, false
	for _, v := range values {
		if v <= 0 {
			continue
		}
		if !found || v < best {
			best, found = v, true
		}
	}
	return best, found
}
