package browserkit

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ------------------------------------------------------------------------

// Link is a resolved, clickable <a> element found by the Crawler façade.
type Link struct {
	URI  *URI
	Text string
}

// ------------------------------------------------------------------------

// Links returns every <a href> on the page, resolved against the page's
// own URI.
func (c *Crawler) Links() []*Link {
	var links []*Link

	c.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if l := linkFromSelection(c.base, s); l != nil {
			links = append(links, l)
		}
	})

	return links
}

// ------------------------------------------------------------------------

// Link locates the first <a> whose text, "alt" or "id" attribute equals
// text, per spec 4.C's clickLink contract. Multiple matches resolve to
// the first one found in document order (spec 9's open question, kept
// as-is per the source's own first-match behaviour).
func (c *Crawler) Link(text string) (*Link, error) {
	var found *Link

	c.doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !linkMatches(s, text) {
			return true
		}

		found = linkFromSelection(c.base, s)

		return found == nil
	})

	if found == nil {
		return nil, invalidArgument(ErrLinkNotFound, "text %q", text)
	}

	return found, nil
}

// ------------------------------------------------------------------------

func linkMatches(s *goquery.Selection, text string) bool {
	if strings.TrimSpace(s.Text()) == text {
		return true
	}

	if alt, ok := s.Attr("alt"); ok && alt == text {
		return true
	}

	if id, ok := s.Attr("id"); ok && id == text {
		return true
	}

	return false
}

// ------------------------------------------------------------------------

func linkFromSelection(base *URI, s *goquery.Selection) *Link {
	href, ok := s.Attr("href")
	if !ok {
		return nil
	}

	uri, err := Resolve(base, href)
	if err != nil {
		return nil
	}

	return &Link{URI: uri, Text: strings.TrimSpace(s.Text())}
}
