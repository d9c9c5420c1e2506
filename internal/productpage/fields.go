package productpage

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	mainImageSelectors  = []string{"img.mainThumb", "#lThumbImg", "#lThumbWrap img"}
	breadcrumbSelectors = []string{".loc_history a", ".breadcrumb a", ".location a", ".category a"}

	resellerImageRe = regexp.MustCompile(`cbu01|ibank`)
	imageSizeRe     = regexp.MustCompile(`_(\d+)x(\d+)`)
	chromeImageRe   = regexp.MustCompile(`(?i)logo|icon|menu|sprite`)
)

// Title returns the first h1/h2 heading, falling back to the document title
func Title(doc *goquery.Document) string {
	if h := strings.TrimSpace(doc.Find("h1, h2").First().Text()); h != "" {
		return strings.Join(strings.Fields(h), " ")
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// CategoryText joins the breadcrumb links with " > "
func CategoryText(doc *goquery.Document) string {
	for _, sel := range breadcrumbSelectors {
		var parts []string
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			if t := strings.TrimSpace(a.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, " > ")
		}
	}
	return ""
}

// MainImage picks the representative image: the site's thumbnail, the
// largest reseller CDN image, og:image, then the first non-chrome image.
func MainImage(doc *goquery.Document, pageURL string, reseller bool) string {
	base, _ := url.Parse(pageURL)

	for _, sel := range mainImageSelectors {
		if src := imageSource(doc.Find(sel).First()); src != "" {
			return absolute(base, src)
		}
	}

	if reseller {
		if src := largestResellerImage(doc); src != "" {
			return absolute(base, src)
		}
	}

	if og, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		return absolute(base, strings.TrimSpace(og))
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := imageSource(img)
		if src == "" || chromeImageRe.MatchString(src) {
			return true
		}
		found = absolute(base, src)
		return false
	})
	return found
}

func largestResellerImage(doc *goquery.Document) string {
	best, bestArea := "", -1
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := imageSource(img)
		if !strings.Contains(src, "alicdn") && !resellerImageRe.MatchString(src) {
			return
		}
		area := 0
		if m := imageSizeRe.FindStringSubmatch(src); m != nil {
			w, _ := strconv.Atoi(m[1])
			h, _ := strconv.Atoi(m[2])
			area = w * h
		}
		if area > bestArea {
			best, bestArea = src, area
		}
	})
	return best
}

// imageSource prefers lazy-load attributes over a placeholder src
func imageSource(img *goquery.Selection) string {
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"data-src", "data-original", "data-lazy"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	src, _ := img.Attr("src")
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "data:") {
		return ""
	}
	return src
}

// absolute resolves protocol-relative and root-relative references against base
func absolute(base *url.URL, ref string) string {
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
