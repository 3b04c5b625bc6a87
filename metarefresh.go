package browserkit

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ------------------------------------------------------------------------

// metaRefreshRe parses a "<timeout>; URL=<target>" refresh directive,
// tolerating whitespace around ";"/"=" and unquoted, single- or
// double-quoted targets (spec 4.C meta-refresh bullet list).
var metaRefreshRe = regexp.MustCompile(`(?i)^\s*(\d+)\s*;\s*url\s*=\s*['"]?(.*?)['"]?\s*$`)

// ------------------------------------------------------------------------

// metaRefresh is a parsed <meta http-equiv="refresh"> directive.
type metaRefresh struct {
	timeout int
	target  string
}

// ------------------------------------------------------------------------

// findMetaRefresh looks for a refresh directive inside <head> (including
// inside a <noscript>, which spec still treats as part of <head>) and
// returns it only when timeout == 0; non-zero timeouts and meta tags
// outside <head> are ignored entirely.
func findMetaRefresh(doc *goquery.Document) *metaRefresh {
	var found *metaRefresh

	metas := doc.Find("head meta")

	// The HTML parser keeps the content of a <noscript> in <head> as raw
	// text, so that markup is parsed on its own to reach its meta tags.
	doc.Find("head noscript").Each(func(_ int, s *goquery.Selection) {
		if nd, err := goquery.NewDocumentFromReader(strings.NewReader(s.Text())); err == nil {
			metas = metas.AddSelection(nd.Find("meta"))
		}
	})

	metas.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		httpEquiv, ok := s.Attr("http-equiv")
		if !ok || !strings.EqualFold(strings.TrimSpace(httpEquiv), "refresh") {
			return true
		}

		content, ok := s.Attr("content")
		if !ok {
			return true
		}

		m := metaRefreshRe.FindStringSubmatch(content)
		if m == nil {
			return true
		}

		timeout, err := strconv.Atoi(m[1])
		if err != nil {
			return true
		}

		if timeout == 0 {
			found = &metaRefresh{timeout: timeout, target: m[2]}

			return false
		}

		return true
	})

	return found
}
