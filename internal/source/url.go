package source

import (
	"net/url"
	"regexp"
	"strings"
)

// Classification reasons
const (
	ReasonEmpty        = "EMPTY"
	ReasonNotSupported = "NOT_DOMEGGOOK"
	ReasonOK           = "OK"
	ReasonOK1688       = "OK_1688"
)

const (
	siteHost       = "domeggook.com"
	mobileSiteHost = "mobile.domeggook.com"
	resellerHost   = "1688.domeggook.com"
)

// Classification is the outcome of checking a source URL
type Classification struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	URL    string `json:"url"`
}

// IsReseller reports whether the URL is a 1688 reseller page
func (c Classification) IsReseller() bool {
	return c.Reason == ReasonOK1688
}

var productNumberRe = regexp.MustCompile(`\d+`)

// NormalizeURL trims quotes and maps the mobile host to the desktop host,
// keeping path and query.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimPrefix(s, `'`)
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSuffix(s, `'`)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	if strings.EqualFold(u.Hostname(), mobileSiteHost) {
		u.Host = siteHost
		return u.String()
	}
	return s
}

// Classify decides whether a URL is a supported wholesale product page
func Classify(raw string) Classification {
	u := NormalizeURL(raw)
	if u == "" {
		return Classification{OK: false, Reason: ReasonEmpty}
	}
	if !strings.Contains(u, siteHost) {
		return Classification{OK: false, Reason: ReasonNotSupported, URL: u}
	}
	if strings.Contains(u, resellerHost) {
		return Classification{OK: true, Reason: ReasonOK1688, URL: u}
	}
	return Classification{OK: true, Reason: ReasonOK, URL: u}
}

// IsMobile reports whether the page was served from the mobile host
func IsMobile(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(u.Hostname()), "mobile.")
}

// ProductNumber returns the first run of digits in the URL, the site's product id
func ProductNumber(raw string) string {
	return productNumberRe.FindString(raw)
}
