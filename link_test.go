package browserkit

import "testing"

func TestCrawlerLinksResolved(t *testing.T) {
	c := crawlerFromHTML(t, `<html><body>
		<a href="/abs">Absolute</a>
		<a href="baz">Relative</a>
	</body></html>`)

	links := c.Links()
	if len(links) != 2 {
		t.Fatalf("Links() = %d, want 2", len(links))
	}

	if links[0].URI.String() != "http://www.example.com/abs" {
		t.Fatalf("links[0].URI = %s", links[0].URI)
	}

	if links[1].URI.String() != "http://www.example.com/foo/baz" {
		t.Fatalf("links[1].URI = %s", links[1].URI)
	}
}

func TestCrawlerLinkByText(t *testing.T) {
	c := crawlerFromHTML(t, `<html><body><a href="/a">First</a><a href="/b">Second</a></body></html>`)

	link, err := c.Link("Second")
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	if link.URI.String() != "http://www.example.com/b" {
		t.Fatalf("Link(Second).URI = %s", link.URI)
	}
}

func TestCrawlerLinkByAlt(t *testing.T) {
	c := crawlerFromHTML(t, `<html><body><a href="/pic" alt="logo"><img src="x"/></a></body></html>`)

	link, err := c.Link("logo")
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	if link.URI.String() != "http://www.example.com/pic" {
		t.Fatalf("Link(logo).URI = %s", link.URI)
	}
}

func TestCrawlerLinkById(t *testing.T) {
	c := crawlerFromHTML(t, `<html><body><a href="/target" id="go-here"></a></body></html>`)

	link, err := c.Link("go-here")
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	if link.URI.String() != "http://www.example.com/target" {
		t.Fatalf("Link(go-here).URI = %s", link.URI)
	}
}

func TestCrawlerLinkFirstMatchOnDuplicateText(t *testing.T) {
	c := crawlerFromHTML(t, `<html><body><a href="/first">Same</a><a href="/second">Same</a></body></html>`)

	link, err := c.Link("Same")
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	if link.URI.String() != "http://www.example.com/first" {
		t.Fatalf("Link(Same) should pick the first DOM-order match, got %s", link.URI)
	}
}

func TestCrawlerLinkNotFound(t *testing.T) {
	c := crawlerFromHTML(t, `<html><body></body></html>`)

	if _, err := c.Link("nope"); err == nil {
		t.Fatalf("Link() with no matches should fail")
	} else if _, ok := err.(*InvalidArgumentError); !ok {
		t.Fatalf("expected *InvalidArgumentError, got %T", err)
	}
}
