package browserkit

import (
	"testing"
	"time"
)

func mustURI(t *testing.T, raw string) *URI {
	t.Helper()

	u, err := ParseAbsolute(raw)
	if err != nil {
		t.Fatalf("ParseAbsolute(%q): %v", raw, err)
	}

	return u
}

func TestCookieJarSetAndAllValues(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://www.example.com/foo")

	jar.UpdateFromSetCookie([]string{"foo=bar"}, uri)

	values := jar.AllValues(uri)
	if values["foo"] != "bar" {
		t.Fatalf("AllValues()[foo] = %q, want bar", values["foo"])
	}
}

func TestCookieJarHostOnlyDefaultDomain(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://www.example.com/foo")

	jar.UpdateFromSetCookie([]string{"foo=bar"}, uri)

	// A host-only cookie set on www.example.com must not be sent to a
	// different host, even a sibling subdomain.
	other := mustURI(t, "http://other.example.com/foo")
	if v := jar.AllValues(other); len(v) != 0 {
		t.Fatalf("host-only cookie leaked to unrelated host: %v", v)
	}
}

func TestCookieJarDomainCookieMatchesSubdomains(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://www.example.com/foo")

	jar.UpdateFromSetCookie([]string{"foo=bar; Domain=example.com"}, uri)

	sub := mustURI(t, "http://api.example.com/foo")
	if v := jar.AllValues(sub); v["foo"] != "bar" {
		t.Fatalf("domain cookie should match subdomain, got %v", v)
	}
}

func TestCookieJarPathScoping(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://example.com/app/page")

	jar.UpdateFromSetCookie([]string{"foo=bar"}, uri)

	// Default path is the directory of the setting URI: "/app".
	inScope := mustURI(t, "http://example.com/app/other")
	if v := jar.AllValues(inScope); v["foo"] != "bar" {
		t.Fatalf("cookie should be sent under its default path, got %v", v)
	}

	outOfScope := mustURI(t, "http://example.com/other")
	if v := jar.AllValues(outOfScope); len(v) != 0 {
		t.Fatalf("cookie should not be sent outside its path, got %v", v)
	}
}

func TestCookieJarSecureGating(t *testing.T) {
	jar := NewCookieJar(nil)
	httpsURI := mustURI(t, "https://example.com/foo")

	jar.UpdateFromSetCookie([]string{"foo=bar; Secure"}, httpsURI)

	if v := jar.AllValues(httpsURI); v["foo"] != "bar" {
		t.Fatalf("secure cookie should be sent over https, got %v", v)
	}

	httpURI := mustURI(t, "http://example.com/foo")
	if v := jar.AllValues(httpURI); len(v) != 0 {
		t.Fatalf("secure cookie should not be sent over plain http, got %v", v)
	}
}

func TestCookieJarExpiredCookieDropped(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://example.com/")

	jar.UpdateFromSetCookie([]string{"foo=bar; Max-Age=-1"}, uri)

	if v := jar.AllValues(uri); len(v) != 0 {
		t.Fatalf("already-expired cookie should never enter the jar's visible set, got %v", v)
	}
}

func TestCookieJarSetOverwritesByKey(t *testing.T) {
	jar := NewCookieJar(nil)

	if err := jar.Set(&Cookie{Name: "foo", Domain: "example.com", Path: "/", Expires: time.Time{}, rawValue: "1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := jar.Set(&Cookie{Name: "foo", Domain: "example.com", Path: "/", Expires: time.Time{}, rawValue: "2"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	uri := mustURI(t, "http://example.com/")
	if v := jar.AllValues(uri); v["foo"] != "2" {
		t.Fatalf("second Set should overwrite by (name,path,domain), got %v", v)
	}
}

func TestCookieJarExpire(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://example.com/")

	jar.UpdateFromSetCookie([]string{"foo=bar"}, uri)

	if err := jar.Expire("foo", "", ""); err != nil {
		t.Fatalf("Expire: %v", err)
	}

	if v := jar.AllValues(uri); len(v) != 0 {
		t.Fatalf("expired cookie should be gone, got %v", v)
	}
}

func TestCookieJarClear(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://example.com/")

	jar.UpdateFromSetCookie([]string{"a=1", "b=2"}, uri)

	if err := jar.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if v := jar.AllValues(uri); len(v) != 0 {
		t.Fatalf("jar should be empty after Clear, got %v", v)
	}
}

func TestCookieJarMalformedHeaderIgnoredSilently(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://example.com/")

	jar.UpdateFromSetCookie([]string{"", "good=1"}, uri)

	v := jar.AllValues(uri)
	if len(v) != 1 || v["good"] != "1" {
		t.Fatalf("malformed entries should be skipped, got %v", v)
	}
}

func TestCookieJarRejectsCrossDomainSetCookie(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://example.com/")

	jar.UpdateFromSetCookie([]string{"foo=bar; Domain=evil.com"}, uri)

	other := mustURI(t, "http://evil.com/")
	if v := jar.AllValues(other); len(v) != 0 {
		t.Fatalf("a server must not set cookies for an unrelated domain, got %v", v)
	}
}

func TestCookieJarAllRawValuesUndecoded(t *testing.T) {
	jar := NewCookieJar(nil)
	uri := mustURI(t, "http://example.com/")

	jar.UpdateFromSetCookie([]string{"foo=hello%20world"}, uri)

	if v := jar.AllRawValues(uri); v["foo"] != "hello%20world" {
		t.Fatalf("AllRawValues should return the undecoded value, got %q", v["foo"])
	}

	if v := jar.AllValues(uri); v["foo"] != "hello world" {
		t.Fatalf("AllValues should return the decoded value, got %q", v["foo"])
	}
}
