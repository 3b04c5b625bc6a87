package browserkit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordingLogger struct {
	events []*LoggerEvent
}

func (r *recordingLogger) LogEvent(level LogLevel, e *LoggerEvent) {
	r.events = append(r.events, e)
}

func (r *recordingLogger) LogError(level LogLevel, err error) {}

func (r *recordingLogger) hasEvent(eventType string) bool {
	for _, e := range r.events {
		if e.Type == eventType {
			return true
		}
	}

	return false
}

func newTestBrowser(t *testing.T) (*Browser, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/foo/foobar", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body>foobar, referer=%s</body></html>", r.Header.Get("Referer"))
	})

	mux.HandleFunc("/foo/bar", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body>bar, referer=%s</body></html>", r.Header.Get("Referer"))
	})

	mux.HandleFunc("/redirected", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "<html><body>landed</body></html>")
	})

	mux.HandleFunc("/redirect-302", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/redirected", http.StatusFound)
	})

	mux.HandleFunc("/redirect-307", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/echo-method", http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("/redirect-303", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/echo-method", http.StatusSeeOther)
	})

	mux.HandleFunc("/echo-method", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		fmt.Fprintf(w, "<html><body>method=%s field=%s</body></html>", r.Method, r.FormValue("field"))
	})

	mux.HandleFunc("/redirect-201", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/redirected")
		w.WriteHeader(http.StatusCreated)
	})

	mux.HandleFunc("/redirect-chain", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/redirect-chain-2", http.StatusFound)
	})

	mux.HandleFunc("/redirect-chain-2", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/redirected", http.StatusFound)
	})

	mux.HandleFunc("/set-cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "foo", Value: "bar", Secure: r.TLS != nil})
		fmt.Fprintln(w, "<html><body>cookie set</body></html>")
	})

	mux.HandleFunc("/echo-cookie", func(w http.ResponseWriter, r *http.Request) {
		c, _ := r.Cookie("foo")
		val := ""
		if c != nil {
			val = c.Value
		}
		fmt.Fprintf(w, "<html><body>cookie=%s</body></html>", val)
	})

	mux.HandleFunc("/links", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html><body><a href="/redirected" id="go">Click me</a></body></html>`)
	})

	mux.HandleFunc("/form", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html><body><form method="POST" action="/echo-method">
			<input type="text" name="field" value="default"/>
			<button type="submit" name="go">Go</button>
		</form></body></html>`)
	})

	mux.HandleFunc("/meta-refresh", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><meta http-equiv="refresh" content="0;URL=%s/redirected"/></head></html>`, srv.URL)
	})

	mux.HandleFunc("/useragent", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, r.Header.Get("User-Agent"))
	})

	mux.HandleFunc("/xhr", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, r.Header.Get("X-Requested-With"))
	})

	config := NewConfig()
	b := NewBrowser(config, nil, nil)

	return b, srv
}

func TestBrowserURLResolutionAgainstLastRequest(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/foo/foobar", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/foo/foobar" {
		t.Fatalf("CurrentURI = %s", b.CurrentURI())
	}

	if _, err := b.Request("GET", "bar", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/foo/bar" {
		t.Fatalf("relative navigation resolved to %s, want %s/foo/bar", b.CurrentURI(), srv.URL)
	}
}

func TestBrowserRefererSetOnSubsequentRequest(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/foo/foobar", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentRequest().Server["HTTP_REFERER"] != "" {
		t.Fatalf("first request should have no referer, got %q", b.CurrentRequest().Server["HTTP_REFERER"])
	}

	if _, err := b.Request("GET", "bar", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	want := srv.URL + "/foo/foobar"
	if got := b.CurrentRequest().Server["HTTP_REFERER"]; got != want {
		t.Fatalf("HTTP_REFERER = %q, want %q", got, want)
	}
}

func TestBrowser302RedirectFollowed(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/redirect-302", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/redirected" {
		t.Fatalf("CurrentURI = %s, want /redirected", b.CurrentURI())
	}

	if b.History.Len() != 1 {
		t.Fatalf("a redirect chain should add exactly one history entry, got %d", b.History.Len())
	}
}

func TestBrowserLogsResponseAndRedirectHops(t *testing.T) {
	b, srv := newTestBrowser(t)

	rec := &recordingLogger{}
	b.Config.SetLogger(rec)

	if _, err := b.Request("GET", srv.URL+"/redirect-302", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if !rec.hasEvent("response") {
		t.Fatalf("expected a response event to be logged, got %+v", rec.events)
	}

	if !rec.hasEvent("redirect") {
		t.Fatalf("expected a redirect event to be logged, got %+v", rec.events)
	}
}

func TestBrowserLogsMetaRefresh(t *testing.T) {
	b, srv := newTestBrowser(t)

	rec := &recordingLogger{}
	b.Config.SetLogger(rec)

	if _, err := b.Request("GET", srv.URL+"/meta-refresh", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if !rec.hasEvent("meta_refresh") {
		t.Fatalf("expected a meta_refresh event to be logged, got %+v", rec.events)
	}
}

func TestBrowser201NotARedirect(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/redirect-201", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/redirect-201" {
		t.Fatalf("a 201 with Location must not be auto-followed, CurrentURI = %s", b.CurrentURI())
	}

	if _, err := b.FollowRedirect(); err == nil {
		t.Fatalf("FollowRedirect() after a 201 should fail with Logic")
	}
}

func TestBrowserMaxRedirectsExceeded(t *testing.T) {
	b, srv := newTestBrowser(t)
	b.SetMaxRedirects(1)

	if _, err := b.Request("GET", srv.URL+"/redirect-chain", nil, nil, nil, nil, true); err == nil {
		t.Fatalf("expected a Logic error exceeding MaxRedirects")
	} else if _, ok := err.(*LogicError); !ok {
		t.Fatalf("expected *LogicError, got %T: %v", err, err)
	}
}

func TestBrowserFollowRedirectManualAfterDisabled(t *testing.T) {
	b, srv := newTestBrowser(t)
	b.FollowRedirects(false)

	if _, err := b.Request("GET", srv.URL+"/redirect-302", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/redirect-302" {
		t.Fatalf("with FollowRedirects off the browser should stop at the 30x, got %s", b.CurrentURI())
	}

	if _, err := b.FollowRedirect(); err != nil {
		t.Fatalf("FollowRedirect: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/redirected" {
		t.Fatalf("after FollowRedirect CurrentURI = %s, want /redirected", b.CurrentURI())
	}
}

func TestBrowser307PreservesMethodAndBody(t *testing.T) {
	b, srv := newTestBrowser(t)

	params := map[string][]string{"field": {"hello"}}
	if _, err := b.Request("POST", srv.URL+"/redirect-307", params, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentRequest().Method != "POST" {
		t.Fatalf("307 should preserve method, got %s", b.CurrentRequest().Method)
	}

	body := string(b.Response().Content)
	if !strings.Contains(body, "method=POST") || !strings.Contains(body, "field=hello") {
		t.Fatalf("307 redirect should preserve body, got %q", body)
	}
}

func TestBrowser303DemotesToGetAndDropsBody(t *testing.T) {
	b, srv := newTestBrowser(t)

	params := map[string][]string{"field": {"hello"}}
	if _, err := b.Request("POST", srv.URL+"/redirect-303", params, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentRequest().Method != "GET" {
		t.Fatalf("303 from POST should demote to GET, got %s", b.CurrentRequest().Method)
	}

	if len(b.CurrentRequest().Parameters) != 0 {
		t.Fatalf("303 from POST should drop parameters, got %v", b.CurrentRequest().Parameters)
	}
}

func TestBrowserCookieRoundTrip(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/set-cookie", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	uri := b.CurrentURI()
	if v := b.Jar.AllValues(uri); v["foo"] != "bar" {
		t.Fatalf("jar should hold foo=bar immediately after dispatch, got %v", v)
	}

	if _, err := b.Request("GET", "/echo-cookie", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if !strings.Contains(string(b.Response().Content), "cookie=bar") {
		t.Fatalf("cookie was not sent back on the next request: %q", b.Response().Content)
	}
}

func TestBrowserClickLink(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/links", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := b.ClickLink("Click me"); err != nil {
		t.Fatalf("ClickLink: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/redirected" {
		t.Fatalf("CurrentURI = %s, want /redirected", b.CurrentURI())
	}
}

func TestBrowserClickLinkNotFound(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/links", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := b.ClickLink("nope"); err == nil {
		t.Fatalf("ClickLink should fail InvalidArgument when no link matches")
	} else if _, ok := err.(*InvalidArgumentError); !ok {
		t.Fatalf("expected *InvalidArgumentError, got %T", err)
	}
}

func TestBrowserSubmitForm(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/form", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := b.SubmitForm("Go", map[string][]string{"field": {"override"}}, "", nil); err != nil {
		t.Fatalf("SubmitForm: %v", err)
	}

	if !strings.Contains(string(b.Response().Content), "field=override") {
		t.Fatalf("submitted value did not override the default, got %q", b.Response().Content)
	}
}

func TestBrowserSubmitFormNotFound(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/form", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := b.SubmitForm("nope", nil, "", nil); err == nil {
		t.Fatalf("SubmitForm should fail InvalidArgument when no button matches")
	}
}

func TestBrowserMetaRefreshFollowed(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/meta-refresh", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/redirected" {
		t.Fatalf("CurrentURI = %s, want /redirected", b.CurrentURI())
	}
}

func TestBrowserMetaRefreshDisabled(t *testing.T) {
	b, srv := newTestBrowser(t)
	b.FollowMetaRefresh(false)

	if _, err := b.Request("GET", srv.URL+"/meta-refresh", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/meta-refresh" {
		t.Fatalf("meta-refresh should not be followed when disabled, got %s", b.CurrentURI())
	}
}

func TestBrowserBackForward(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/foo/foobar", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := b.Request("GET", "bar", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := b.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/foo/foobar" {
		t.Fatalf("Back() CurrentURI = %s", b.CurrentURI())
	}

	if _, err := b.Forward(); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/foo/bar" {
		t.Fatalf("back();forward() should be identity, got %s", b.CurrentURI())
	}
}

func TestBrowserReload(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/foo/foobar", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := b.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if b.CurrentURI().String() != srv.URL+"/foo/foobar" {
		t.Fatalf("Reload() CurrentURI = %s", b.CurrentURI())
	}
}

func TestBrowserRestartClearsHistoryAndJar(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/set-cookie", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if err := b.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}

	if b.History.Len() != 0 {
		t.Fatalf("Restart should clear history")
	}

	uri := mustURI(t, srv.URL+"/set-cookie")
	if v := b.Jar.AllValues(uri); len(v) != 0 {
		t.Fatalf("Restart should clear the cookie jar, got %v", v)
	}
}

func TestBrowserDefaultUserAgentSentAndNotGettable(t *testing.T) {
	b, srv := newTestBrowser(t)
	b.Config.SetUserAgent("browserkit-test/1.0")

	if _, err := b.Request("GET", srv.URL+"/useragent", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if got := strings.TrimSpace(string(b.Response().Content)); got != "browserkit-test/1.0" {
		t.Fatalf("server observed User-Agent = %q", got)
	}

	// The default-effective User-Agent was never explicitly stored via
	// SetServerParameter, so the getter must return the caller's fallback.
	if got := b.GetServerParameter("HTTP_USER_AGENT", "fallback"); got != "fallback" {
		t.Fatalf("GetServerParameter should not expose a default-effective value, got %q", got)
	}

	b.SetServerParameter("HTTP_USER_AGENT", "explicit-agent")
	if got := b.GetServerParameter("HTTP_USER_AGENT", "fallback"); got != "explicit-agent" {
		t.Fatalf("a user-configured value should shadow the default, got %q", got)
	}
}

func TestBrowserXMLHttpRequestHeaderNotPersisted(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.XMLHttpRequest("GET", srv.URL+"/xhr", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("XMLHttpRequest: %v", err)
	}

	if got := strings.TrimSpace(string(b.Response().Content)); got != "XMLHttpRequest" {
		t.Fatalf("X-Requested-With = %q", got)
	}

	if _, err := b.Request("GET", srv.URL+"/xhr", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if got := strings.TrimSpace(string(b.Response().Content)); got != "" {
		t.Fatalf("X-Requested-With must not persist into a plain Request, got %q", got)
	}
}

func TestBrowserHTTPSFlagRecomputedPerDispatch(t *testing.T) {
	b, srv := newTestBrowser(t)

	if _, err := b.Request("GET", srv.URL+"/foo/foobar", nil, nil, nil, nil, true); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if b.CurrentRequest().Server["HTTPS"] != "" {
		t.Fatalf("HTTPS should be empty for a plain http:// dispatch")
	}
}

func TestBrowserAccessorsBeforeAnyRequest(t *testing.T) {
	b := NewBrowser(nil, nil, nil)

	if b.CurrentURI() != nil {
		t.Fatalf("CurrentURI() before any request should be nil")
	}

	if b.Response() != nil {
		t.Fatalf("Response() before any request should be nil")
	}

	if _, err := b.Crawler(); err == nil {
		t.Fatalf("Crawler() before any request should fail")
	}

	if _, err := b.FollowRedirect(); err == nil {
		t.Fatalf("FollowRedirect() with nothing pending should fail")
	}
}
