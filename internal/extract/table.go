package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/pricing"
	"github.com/jafarshop/relister/internal/source"
	"github.com/jafarshop/relister/internal/textnorm"
)

var (
	requiredMarkRe = regexp.MustCompile(`\(필수\)|\[필수\]`)
	sellableRe     = regexp.MustCompile(`(\d[\d,]*)\s*(부|개)\s*판매\s*가능`)
	pieceRe        = regexp.MustCompile(`(\d[\d,]*)\s*개`)
)

// TableRow is one row of a reseller price list, with an absolute price
type TableRow struct {
	Label  string
	Price  int
	Stock  int
	Values []domain.OptionValue
}

// ParseTableRows reads the reseller price list (".optlist" rows). Rows
// without a price are skipped and exact (label, price) repeats collapse.
func ParseTableRows(doc *goquery.Document) []TableRow {
	var rows []TableRow
	seen := make(map[string]bool)

	doc.Find(".optlist").Each(func(_ int, el *goquery.Selection) {
		text := el.Text()
		price := 0
		if krw, ok := el.Attr("krwstr"); ok {
			if n, ok := pricing.ParseNumber(textnorm.DecodeEntities(krw)); ok {
				price = n
			}
		}
		if price == 0 {
			if n, ok := pricing.ParseWon(text); ok {
				price = n
			}
		}
		if price == 0 {
			return
		}

		title, _ := el.Find("[title]").First().Attr("title")
		values := textnorm.ParseTitlePairs(textnorm.DecodeEntities(title))

		label := ""
		if len(values) > 0 {
			parts := make([]string, len(values))
			for i, v := range values {
				parts[i] = v.OptionValue
			}
			label = strings.Join(parts, " / ")
		}
		if label == "" {
			label = cleanCell(el.Find(".wid150").First().Text())
		}
		if label == "" {
			label = cleanCell(text)
		}
		if label == "" {
			label = fmt.Sprintf("옵션%d", len(rows)+1)
		}

		key := fmt.Sprintf("%s::%d", label, price)
		if seen[key] {
			return
		}
		seen[key] = true
		rows = append(rows, TableRow{Label: label, Price: price, Stock: parseStock(text), Values: values})
	})
	return rows
}

// Prices returns the absolute price of every row
func Prices(rows []TableRow) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Price
	}
	return out
}

func cleanCell(s string) string {
	return textnorm.CollapseSpace(requiredMarkRe.ReplaceAllString(textnorm.CollapseSpace(s), ""))
}

func parseStock(text string) int {
	if m := sellableRe.FindStringSubmatch(text); m != nil {
		n, _ := pricing.ParseNumber(m[1])
		return n
	}
	if m := pieceRe.FindStringSubmatch(text); m != nil {
		n, _ := pricing.ParseNumber(m[1])
		return n
	}
	return 0
}

// TableStrategy turns reseller price-list rows into variants priced relative
// to the base price.
type TableStrategy struct{}

func (s *TableStrategy) Name() string { return "variantTable" }

func (s *TableStrategy) TryExtract(ctx context.Context, doc source.Document, basePrice int) ([]domain.Variant, error) {
	rows := ParseTableRows(doc.Query())
	out := make([]domain.Variant, 0, len(rows))
	for _, r := range rows {
		values := r.Values
		if len(values) == 0 {
			values = textnorm.ParseOptionValues(r.Label)
		}
		out = append(out, domain.Variant{
			Label:      r.Label,
			PriceDelta: r.Price - basePrice,
			Stock:      intPtr(r.Stock),
			Values:     values,
		})
	}
	return out, nil
}
