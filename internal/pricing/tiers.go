package pricing

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/source"
)

const (
	maxTextTiers     = 20
	tierScopeRunes   = 3000
	tierSectionTitle = "수량별가격"
)

var (
	numberRe     = regexp.MustCompile(`\d[\d,]*`)
	wonRe        = regexp.MustCompile(`(\d[\d,]*)\s*원`)
	qtyRe        = regexp.MustCompile(`(\d[\d,]*)\s*개`)
	qtyHeaderRe  = regexp.MustCompile(`수량`)
	unitHeaderRe = regexp.MustCompile(`단가|가격`)
	tierTextRe   = regexp.MustCompile(`(\d[\d,]*)\s*개\s*이상[^\d]{0,20}(\d[\d,]*)\s*원`)
)

// ParseNumber reads the first comma-grouped number in s
func ParseNumber(s string) (int, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseWon reads the first "<number>원" amount in s
func ParseWon(s string) (int, bool) {
	m := wonRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	return ParseNumber(m[1])
}

func parseMinQty(s string) (int, bool) {
	if m := qtyRe.FindStringSubmatch(s); m != nil {
		return ParseNumber(m[1])
	}
	return ParseNumber(s)
}

// ParseTiers collects quantity-break prices from a product page. Tables are
// tried first, then the two plain-text layouts the site uses. The result is
// de-duplicated and sorted by MinQty.
func ParseTiers(doc *goquery.Document) []domain.PriceTier {
	tiers := tiersFromTables(doc)
	if len(tiers) == 0 {
		text := source.InnerText(doc.Find("body"))
		tiers = tiersFromLinePair(source.Lines(text))
		if len(tiers) == 0 {
			tiers = tiersFromInlineText(text)
		}
	}
	return normalizeTiers(tiers)
}

func tiersFromTables(doc *goquery.Document) []domain.PriceTier {
	var out []domain.PriceTier
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		rows := tbl.Find("tr")
		if rows.Length() < 2 {
			return
		}
		header := strings.Join(strings.Fields(rows.Eq(0).Text()+" "+rows.Eq(1).Text()), " ")
		if !qtyHeaderRe.MatchString(header) || !unitHeaderRe.MatchString(header) {
			return
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("th,td").Each(func(_ int, c *goquery.Selection) {
				if t := strings.Join(strings.Fields(c.Text()), " "); t != "" {
					cells = append(cells, t)
				}
			})
			if len(cells) < 2 {
				return
			}
			minQty, ok1 := parseMinQty(cells[0])
			unit, ok2 := ParseWon(cells[1])
			if ok1 && ok2 && minQty > 0 && unit > 0 {
				out = append(out, domain.PriceTier{MinQty: minQty, UnitPrice: unit})
			}
		})
	})
	return out
}

// tiersFromLinePair handles "수량(개) 1~ 50~" followed by "단가(원) 96,500 91,500"
func tiersFromLinePair(lines []string) []domain.PriceTier {
	qtyLine, priceLine := "", ""
	for _, l := range lines {
		if qtyLine == "" && strings.Contains(l, "수량(개)") {
			qtyLine = l
		}
		if priceLine == "" && strings.Contains(l, "단가(원)") {
			priceLine = l
		}
	}
	if qtyLine == "" || priceLine == "" {
		return nil
	}
	qtys := allNumbers(qtyLine)
	prices := allNumbers(priceLine)
	n := len(qtys)
	if len(prices) < n {
		n = len(prices)
	}
	var out []domain.PriceTier
	for i := 0; i < n; i++ {
		if qtys[i] > 0 && prices[i] > 0 {
			out = append(out, domain.PriceTier{MinQty: qtys[i], UnitPrice: prices[i]})
		}
	}
	return out
}

// tiersFromInlineText handles "50개 이상 ... 91,500원" near the tier section title
func tiersFromInlineText(text string) []domain.PriceTier {
	full := strings.Join(strings.Fields(text), " ")
	scope := full
	if idx := strings.Index(full, tierSectionTitle); idx >= 0 {
		r := []rune(full[idx:])
		if len(r) > tierScopeRunes {
			r = r[:tierScopeRunes]
		}
		scope = string(r)
	}
	var out []domain.PriceTier
	for _, m := range tierTextRe.FindAllStringSubmatch(scope, -1) {
		minQty, ok1 := ParseNumber(m[1])
		unit, ok2 := ParseNumber(m[2])
		if !ok1 || !ok2 || minQty <= 0 || unit <= 0 {
			continue
		}
		out = append(out, domain.PriceTier{MinQty: minQty, UnitPrice: unit})
		if len(out) >= maxTextTiers {
			break
		}
	}
	return out
}

func allNumbers(s string) []int {
	var out []int
	for _, m := range numberRe.FindAllString(s, -1) {
		if n, err := strconv.Atoi(strings.ReplaceAll(m, ",", "")); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func normalizeTiers(tiers []domain.PriceTier) []domain.PriceTier {
	seen := make(map[domain.PriceTier]bool, len(tiers))
	out := make([]domain.PriceTier, 0, len(tiers))
	for _, t := range tiers {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinQty < out[j].MinQty })
	return out
}

// CanonicalTier returns the tier with MinQty 1, else the lowest-MinQty tier.
// tiers must be sorted by MinQty.
func CanonicalTier(tiers []domain.PriceTier) (domain.PriceTier, bool) {
	if len(tiers) == 0 {
		return domain.PriceTier{}, false
	}
	for _, t := range tiers {
		if t.MinQty == 1 {
			return t, true
		}
	}
	return tiers[0], true
}
