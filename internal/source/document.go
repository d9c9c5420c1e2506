// Package source is the page-fetching capability: it loads wholesale product
// pages within one browsing session and hands them out as Documents.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrEvaluateUnsupported is returned by sessions that cannot execute page scripts
var ErrEvaluateUnsupported = errors.New("source: script evaluation not supported by this session")

// Response is the result of a request issued within the page's session
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Document is a fetched page plus whatever runtime state the session exposes
type Document interface {
	// URL is the final URL after redirects
	URL() string
	HTML() string
	Query() *goquery.Document
	// Evaluate runs script in the page and returns its JSON-encoded result
	Evaluate(ctx context.Context, script string) (json.RawMessage, error)
	FetchWithinSession(ctx context.Context, url string, headers map[string]string) (*Response, error)
}

// Session loads documents. Implementations own cookies and navigation state.
type Session interface {
	Load(ctx context.Context, url string) (Document, error)
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "dd": true,
	"div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tbody": true, "thead": true, "tfoot": true, "tr": true, "ul": true,
	"option": true, "select": true,
}

// InnerText approximates a browser's innerText: block elements and <br> break
// lines, table cells are separated by tabs, script and style are skipped.
func InnerText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "br":
				b.WriteByte('\n')
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
			b.WriteByte('\t')
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

// Lines splits text into trimmed, whitespace-collapsed, non-empty lines
func Lines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// staticDocument is a Document backed by already-fetched markup
type staticDocument struct {
	url     string
	raw     string
	doc     *goquery.Document
	session *HTTPSession
}

func (d *staticDocument) URL() string              { return d.url }
func (d *staticDocument) HTML() string             { return d.raw }
func (d *staticDocument) Query() *goquery.Document { return d.doc }

func (d *staticDocument) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	return nil, ErrEvaluateUnsupported
}

func (d *staticDocument) FetchWithinSession(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	if d.session == nil {
		return nil, errors.New("source: document has no session")
	}
	return d.session.Fetch(ctx, url, headers)
}

// NewStaticDocument parses markup into a Document with no session behind it
func NewStaticDocument(url, markup string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	return &staticDocument{url: url, raw: markup, doc: doc}, nil
}
