package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/source"
	"github.com/jafarshop/relister/internal/textnorm"
)

const (
	popupURLFormat = "https://domeggook.com/main/popup/item/popup_itemOptionView.php?no=%s&market=dome"
	popupReferer   = "https://domeggook.com/"
)

var (
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	leadOrdinalRe = regexp.MustCompile(`^\d+\s*[.)\-]\s*|^\d+\s+`)
)

// PopupStrategy fetches the site's "all options" popup for the product and
// reads its option list.
type PopupStrategy struct {
	// URLFormat overrides the popup address; it receives the product number
	URLFormat string
}

func (s *PopupStrategy) Name() string { return "optionPopup" }

func (s *PopupStrategy) TryExtract(ctx context.Context, doc source.Document, basePrice int) ([]domain.Variant, error) {
	productNo := source.ProductNumber(doc.URL())
	if productNo == "" {
		return nil, nil
	}
	format := s.URLFormat
	if format == "" {
		format = popupURLFormat
	}
	popupURL := fmt.Sprintf(format, url.QueryEscape(productNo))

	// the mobile referer is sometimes blocked, so the desktop root is always sent
	resp, err := doc.FetchWithinSession(ctx, popupURL, map[string]string{
		"Referer":    popupReferer,
		"User-Agent": "Mozilla/5.0",
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("option popup returned %d", resp.Status)
	}

	labels, err := ParsePopup(resp.Body)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Variant, 0, len(labels))
	for _, l := range labels {
		out = append(out, domain.Variant{Label: l})
	}
	return out, nil
}

// ParsePopup returns option labels from popup markup: <option> texts when
// present, otherwise text lines with leading ordinals removed.
func ParsePopup(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var fromOptions []string
	doc.Find("option").Each(func(_ int, o *goquery.Selection) {
		fromOptions = append(fromOptions, o.Text())
	})
	if labels := classify(fromOptions, false); len(labels) > 0 {
		return labels, nil
	}

	doc.Find("script,style").Remove()
	markup, err := doc.Html()
	if err != nil {
		return nil, err
	}
	lines := strings.Split(tagRe.ReplaceAllString(markup, "\n"), "\n")
	return classify(lines, true), nil
}

// classify normalizes candidates, keeps likely options and removes repeats
func classify(candidates []string, stripOrdinal bool) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		c = textnorm.DecodeEntities(textnorm.CollapseSpace(c))
		if stripOrdinal {
			c = leadOrdinalRe.ReplaceAllString(c, "")
		}
		c = textnorm.Normalize(c)
		if c == "" || seen[c] || !textnorm.IsLikelyOption(c) {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
