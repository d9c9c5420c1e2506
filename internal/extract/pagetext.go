package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/source"
)

const (
	maxPageTextOptions = 40
	maxOptionRoots     = 8
)

var (
	containerSelectors = []string{
		"#contents", "#container", "#wrap", "#goods_view", "#itemView", "#itemInfo", "form",
		".m_wrap", ".m_container", ".goods_view", ".item_view", ".view_wrap",
	}
	optionishSelector = "[id*='option'],[class*='option'],[id*='opt'],[class*='opt']"

	selectNameRe = regexp.MustCompile(`(?i)opt|option|item`)
	optionAttrRe = regexp.MustCompile(`(?i)opt|option`)
)

// PageTextStrategy scans the page's option area for select options,
// option-like list items and, on mobile pages, buttons.
type PageTextStrategy struct{}

func (s *PageTextStrategy) Name() string { return "pageText" }

func (s *PageTextStrategy) TryExtract(ctx context.Context, doc source.Document, basePrice int) ([]domain.Variant, error) {
	labels := PageTextCandidates(doc.Query(), source.IsMobile(doc.URL()))
	out := make([]domain.Variant, 0, len(labels))
	for _, l := range labels {
		out = append(out, domain.Variant{Label: l})
	}
	return out, nil
}

// PageTextCandidates returns classified option labels from the best-scoring
// option container, at most maxPageTextOptions.
func PageTextCandidates(doc *goquery.Document, mobile bool) []string {
	root := bestContainer(doc)
	var raw []string

	root.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		id, _ := sel.Attr("id")
		opts := sel.Find("option")
		if !selectNameRe.MatchString(name+" "+id) && opts.Length() < 2 {
			return
		}
		opts.Each(func(_ int, o *goquery.Selection) {
			raw = append(raw, o.Text())
		})
	})

	optRoots := root.Find(optionishSelector)
	if optRoots.Length() > maxOptionRoots {
		optRoots = optRoots.Slice(0, maxOptionRoots)
	}
	optRoots.Each(func(_ int, optRoot *goquery.Selection) {
		optRoot.Find("li, button, a, span, div").Each(func(_ int, el *goquery.Selection) {
			cls, _ := el.Attr("class")
			id, _ := el.Attr("id")
			if !optionAttrRe.MatchString(cls) && !optionAttrRe.MatchString(id) && goquery.NodeName(el) != "li" {
				return
			}
			raw = append(raw, el.Text())
		})
	})

	if mobile {
		root.Find("button").Each(func(_ int, b *goquery.Selection) {
			raw = append(raw, b.Text())
		})
	}

	labels := classify(raw, false)
	if len(labels) > maxPageTextOptions {
		labels = labels[:maxPageTextOptions]
	}
	return labels
}

func bestContainer(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestScore := -1

	consider := func(_ int, el *goquery.Selection) {
		score := len(strings.TrimSpace(el.Text())) +
			el.Find("select").Length()*10000 +
			el.Find("option, li, button").Length()*50
		if score > bestScore {
			best, bestScore = el, score
		}
	}
	for _, sel := range containerSelectors {
		doc.Find(sel).Each(consider)
	}
	doc.Find(optionishSelector).Each(consider)

	if best == nil {
		return doc.Find("body")
	}
	return best
}
