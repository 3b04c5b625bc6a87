package browserkit

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// ------------------------------------------------------------------------

// Crawler is the HTML query façade (component G) a Browser hands back to
// the caller after every request: a thin, read-only wrapper over goquery
// that knows the page's own URI for resolving relative links and form
// actions. Grounded on colly's htmlelem.go DOM-query conventions.
type Crawler struct {
	doc  *goquery.Document
	base *URI
}

// ------------------------------------------------------------------------

// NewCrawler parses content as HTML and returns a pointer to a newly
// created Crawler scoped to base.
func NewCrawler(content []byte, base *URI) (*Crawler, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	return &Crawler{doc: doc, base: base}, nil
}

// ------------------------------------------------------------------------

// Document exposes the underlying goquery document for callers who need
// arbitrary CSS-selector queries beyond Link/Form lookup.
func (c *Crawler) Document() *goquery.Document {
	return c.doc
}

// URI returns the page's own resolved URI.
func (c *Crawler) URI() *URI {
	return c.base
}

// ------------------------------------------------------------------------

// MetaRefresh returns the page's <meta http-equiv="refresh"> directive
// when present with a zero timeout, or nil otherwise (spec 4.C).
func (c *Crawler) MetaRefresh() (target *URI, ok bool) {
	m := findMetaRefresh(c.doc)
	if m == nil {
		return nil, false
	}

	uri, err := Resolve(c.base, m.target)
	if err != nil {
		return nil, false
	}

	return uri, true
}
