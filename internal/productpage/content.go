package productpage

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/source"
)

const externalDetailHost = "ai.esmplus.com"

var contentSelectors = []string{
	"#lInfoViewItemContents", "#detail", ".detail", "[id*='detail']", "[class*='detail']",
	"[id*='content']", "[class*='content']", "[class*='product']",
}

type contentBlock struct {
	html     string
	images   []string
	external string
}

// content returns the description markup and its image URLs. A linked
// external detail page replaces the on-page block when it can be fetched.
func (p *Parser) content(ctx context.Context, doc source.Document) contentBlock {
	q := doc.Query()
	base, _ := url.Parse(doc.URL())

	if ext := externalDetailURL(q, base); ext != "" {
		block, err := p.externalContent(ctx, doc, ext)
		if err == nil && block.html != "" {
			return block
		}
		p.logger.Warn("External detail unavailable, using page content", zap.String("url", ext), zap.Error(err))
	}

	sel := bestContentBlock(q)
	if sel == nil {
		return contentBlock{}
	}
	images := absolutizeImages(sel, base)
	markup, _ := goquery.OuterHtml(sel)
	return contentBlock{html: markup, images: images}
}

func bestContentBlock(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestScore := -1
	for _, css := range contentSelectors {
		doc.Find(css).Each(func(_ int, s *goquery.Selection) {
			if score := contentScore(s); score > bestScore {
				best, bestScore = s, score
			}
		})
	}
	return best
}

func contentScore(s *goquery.Selection) int {
	markup, _ := s.Html()
	id, _ := s.Attr("id")
	cls, _ := s.Attr("class")
	marker := strings.ToLower(id + " " + cls)

	score := len(markup)
	if strings.Contains(marker, "detail") {
		score += 5000
	}
	if strings.Contains(marker, "content") {
		score += 3000
	}
	if strings.Contains(marker, "product") {
		score += 1000
	}
	return score
}

// absolutizeImages rewrites lazy and relative image sources in place and
// returns them in document order without repeats
func absolutizeImages(sel *goquery.Selection, base *url.URL) []string {
	var out []string
	seen := make(map[string]bool)
	sel.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := imageSource(img)
		if src == "" {
			return
		}
		abs := absolute(base, src)
		img.SetAttr("src", abs)
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	})
	return out
}

func externalDetailURL(doc *goquery.Document, base *url.URL) string {
	var found string
	doc.Find("iframe[src], a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		ref, ok := s.Attr("src")
		if !ok {
			ref, _ = s.Attr("href")
		}
		if strings.Contains(ref, externalDetailHost) {
			found = absolute(base, strings.TrimSpace(ref))
			return false
		}
		return true
	})
	return found
}

func (p *Parser) externalContent(ctx context.Context, doc source.Document, extURL string) (contentBlock, error) {
	resp, err := doc.FetchWithinSession(ctx, extURL, map[string]string{"Referer": doc.URL()})
	if err != nil {
		return contentBlock{}, err
	}
	if !resp.OK() {
		return contentBlock{}, fmt.Errorf("external detail returned %d", resp.Status)
	}
	ext, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return contentBlock{}, err
	}
	base, _ := url.Parse(extURL)

	images := absolutizeImages(ext.Find("body"), base)
	if len(images) >= 2 {
		return contentBlock{html: ImageHTML(images), images: images, external: extURL}, nil
	}

	main := ext.Find("#wrap").First()
	if main.Length() == 0 {
		main = ext.Find(".wrap").First()
	}
	if main.Length() == 0 {
		main = ext.Find("body")
	}
	main.Find("script, style").Remove()
	main.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		s.SetAttr("href", absolute(base, href))
	})
	markup, err := main.Html()
	if err != nil {
		return contentBlock{}, err
	}
	return contentBlock{html: strings.TrimSpace(markup), images: images, external: extURL}, nil
}

// ImageHTML renders one paragraph per image
func ImageHTML(urls []string) string {
	var b strings.Builder
	for _, u := range urls {
		fmt.Fprintf(&b, `<p><img src="%s" /></p>`, html.EscapeString(u))
	}
	return b.String()
}
