package browserkit

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ------------------------------------------------------------------------

// Cookie is the internal representation of one RFC 6265 cookie. Unlike
// net/http.Cookie it keeps both the raw wire value and exposes a decoded
// accessor, and a zero Domain/Path means "not yet resolved against a
// default URI" rather than "host/root" — CookieJar.UpdateFromSetCookie
// fills those in per spec 4.B.
type Cookie struct {
	Name     string
	rawValue string

	Domain   string // "" until resolved: means host-only, filled by the jar
	HostOnly bool
	Path     string // "" until resolved: means default path, filled by the jar

	Expires  time.Time // zero value means a session cookie (no expiry)
	Secure   bool
	HttpOnly bool
	SameSite string
}

// ------------------------------------------------------------------------

// Value returns the cookie's raw, wire-encoded value.
func (c *Cookie) Value() string {
	return c.rawValue
}

// DecodedValue URL-decodes the cookie's value, as most servers percent- or
// quote-encode values containing reserved characters.
func (c *Cookie) DecodedValue() string {
	if v, err := url.QueryUnescape(c.rawValue); err == nil {
		return v
	}

	return c.rawValue
}

// Expired reports whether the cookie has a concrete expiry in the past of
// now. Session cookies (zero Expires) are never expired by this check.
func (c *Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// key returns the domain;path;name triple identifying this cookie within
// a jar's submap, matching the scoping rule of spec 4.B ("set overwrites
// by key (name, path, domain)").
func (c *Cookie) key() string {
	return fmt.Sprintf("%s;%s;%s", c.Domain, c.Path, c.Name)
}

// ------------------------------------------------------------------------

// cookieGob mirrors Cookie with rawValue exported, since gob silently
// drops unexported fields — without this, a cookie's value would vanish
// on the round-trip through a CookieJar's storage.CookieStorage.
type cookieGob struct {
	Name     string
	RawValue string
	Domain   string
	HostOnly bool
	Path     string
	Expires  time.Time
	Secure   bool
	HttpOnly bool
	SameSite string
}

// GobEncode implements gob.GobEncoder so rawValue survives storage.
func (c Cookie) GobEncode() ([]byte, error) {
	buf := &bytes.Buffer{}
	g := cookieGob{
		Name: c.Name, RawValue: c.rawValue, Domain: c.Domain, HostOnly: c.HostOnly,
		Path: c.Path, Expires: c.Expires, Secure: c.Secure, HttpOnly: c.HttpOnly, SameSite: c.SameSite,
	}

	if err := gob.NewEncoder(buf).Encode(g); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, the inverse of GobEncode.
func (c *Cookie) GobDecode(data []byte) error {
	var g cookieGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}

	*c = Cookie{
		Name: g.Name, rawValue: g.RawValue, Domain: g.Domain, HostOnly: g.HostOnly,
		Path: g.Path, Expires: g.Expires, Secure: g.Secure, HttpOnly: g.HttpOnly, SameSite: g.SameSite,
	}

	return nil
}

// ------------------------------------------------------------------------

// cookieDateLayouts are tried in order when parsing an Expires attribute.
// RFC 6265's grammar is tolerant of several historical date formats.
var cookieDateLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Monday, 02-Jan-06 15:04:05 MST",
	time.ANSIC,
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon, 02-Jan-2006 15:04:05 GMT",
}

// ------------------------------------------------------------------------

// ParseSetCookie parses a single Set-Cookie header value into a Cookie.
// Per spec 9 this is a dedicated parser rather than generic header
// splitting: the grammar tolerates an unquoted comma inside Expires, so
// attributes are split on ";" only, never on ",".
func ParseSetCookie(header string) (*Cookie, error) {
	parts := strings.Split(header, ";")
	if len(parts) == 0 {
		return nil, fmt.Errorf("cookie: empty Set-Cookie header")
	}

	nameValue := strings.SplitN(strings.TrimSpace(parts[0]), "=", 2)
	if len(nameValue) != 2 {
		return nil, fmt.Errorf("cookie: malformed name=value pair %q", parts[0])
	}

	name := strings.TrimSpace(nameValue[0])
	if name == "" {
		return nil, fmt.Errorf("cookie: empty cookie name")
	}

	c := &Cookie{Name: name, rawValue: strings.TrimSpace(nameValue[1])}

	var maxAge *int

	for _, attr := range parts[1:] {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}

		key, value := attr, ""
		if i := strings.IndexByte(attr, '='); i >= 0 {
			key, value = attr[:i], strings.TrimSpace(attr[i+1:])
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "expires":
			if t, ok := parseCookieDate(value); ok {
				c.Expires = t
			}

		case "max-age":
			if n, err := strconv.Atoi(value); err == nil {
				maxAge = &n
			}

		case "domain":
			d := strings.TrimPrefix(value, ".")
			if d != "" {
				c.Domain = strings.ToLower(d)
			}

		case "path":
			if strings.HasPrefix(value, "/") {
				c.Path = value
			}

		case "secure":
			c.Secure = true

		case "httponly":
			c.HttpOnly = true

		case "samesite":
			c.SameSite = value
		}
	}

	// Max-Age takes precedence over Expires (RFC 6265 5.3 #3).
	if maxAge != nil {
		if *maxAge <= 0 {
			c.Expires = time.Unix(0, 0)
		} else {
			c.Expires = time.Now().Add(time.Duration(*maxAge) * time.Second)
		}
	}

	return c, nil
}

// ------------------------------------------------------------------------

func parseCookieDate(s string) (time.Time, bool) {
	for _, layout := range cookieDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}
