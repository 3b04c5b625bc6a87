package browserkit

import (
	"fmt"
	"regexp"
	"strings"

	whatwg "github.com/nlnwa/whatwg-url/url"
)

// ------------------------------------------------------------------------

// URI is the resolver's absolute-or-relative URI representation. Unlike
// net/url.URL, it remembers whether a query or fragment component was
// present at all (even empty), so that references like "?" or "#" resolve
// to a URI ending in a bare "?" or "#" as required by spec.
type URI struct {
	Scheme      string
	Host        string // host[:port]; as normalised by the WHATWG parser in ParseAbsolute, verbatim for a scheme-relative reference
	Path        string
	RawQuery    string
	HasQuery    bool
	Fragment    string
	HasFragment bool
}

// ------------------------------------------------------------------------

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

var whatwgParser = whatwg.NewParser(whatwg.WithPercentEncodeSinglePercentSign())

// ------------------------------------------------------------------------

// DefaultURI returns the URI a Browser resolves a bare relative path
// against when no prior request has been made (spec 4.A: localhost/http).
func DefaultURI() *URI {
	return &URI{Scheme: "http", Host: "localhost", Path: "/"}
}

// ------------------------------------------------------------------------

// ParseAbsolute parses raw as an absolute http(s) URI. It delegates syntax
// validation (host well-formedness, IDN handling) to the WHATWG URL parser
// and then re-derives path/query/fragment itself to preserve the bare
// trailing "?"/"#" fidelity the WHATWG serializer would otherwise drop.
func ParseAbsolute(raw string) (*URI, error) {
	if !schemeRe.MatchString(raw) {
		return nil, fmt.Errorf("%w: %q", ErrNotAbsolute, raw)
	}

	wu, err := whatwgParser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URI %q: %w", raw, err)
	}

	idx := strings.IndexByte(raw, ':')
	scheme := strings.ToLower(raw[:idx])
	rest := raw[idx+1:]

	var path, query, fragment string
	var hasQuery, hasFragment bool

	if strings.HasPrefix(rest, "//") {
		_, pqf := splitAuthority(rest[2:])
		path, query, hasQuery, fragment, hasFragment = splitPathQueryFrag(pqf)
	} else {
		path, query, hasQuery, fragment, hasFragment = splitPathQueryFrag(rest)
	}

	return &URI{
		Scheme:      scheme,
		Host:        wu.Host(),
		Path:        path,
		RawQuery:    query,
		HasQuery:    hasQuery,
		Fragment:    fragment,
		HasFragment: hasFragment,
	}, nil
}

// ------------------------------------------------------------------------

// Resolve produces an absolute URI from a base URI and a reference,
// following the four reference kinds of spec 4.A: absolute, scheme-relative,
// path-absolute and path-relative (with fragment-only and query-only as
// special cases of path-relative).
func Resolve(base *URI, ref string) (*URI, error) {
	if base == nil {
		base = DefaultURI()
	}

	if ref == "" {
		c := *base

		return &c, nil
	}

	if schemeRe.MatchString(ref) {
		return ParseAbsolute(ref)
	}

	switch {
	case strings.HasPrefix(ref, "//"):
		authority, pqf := splitAuthority(ref[2:])
		path, query, hasQuery, fragment, hasFragment := splitPathQueryFrag(pqf)

		return &URI{
			Scheme: base.Scheme, Host: authority,
			Path: path, RawQuery: query, HasQuery: hasQuery,
			Fragment: fragment, HasFragment: hasFragment,
		}, nil

	case strings.HasPrefix(ref, "#"):
		c := *base
		c.Fragment = ref[1:]
		c.HasFragment = true

		return &c, nil

	case strings.HasPrefix(ref, "?"):
		query, fragment, hasFragment := splitQueryFrag(ref[1:])
		c := *base
		c.RawQuery = query
		c.HasQuery = true
		c.Fragment = fragment
		c.HasFragment = hasFragment

		return &c, nil

	case strings.HasPrefix(ref, "/"):
		path, query, hasQuery, fragment, hasFragment := splitPathQueryFrag(ref)

		return &URI{
			Scheme: base.Scheme, Host: base.Host,
			Path: path, RawQuery: query, HasQuery: hasQuery,
			Fragment: fragment, HasFragment: hasFragment,
		}, nil

	default:
		path, query, hasQuery, fragment, hasFragment := splitPathQueryFrag(ref)

		return &URI{
			Scheme: base.Scheme, Host: base.Host,
			Path: mergePath(base.Path, path), RawQuery: query, HasQuery: hasQuery,
			Fragment: fragment, HasFragment: hasFragment,
		}, nil
	}
}

// ------------------------------------------------------------------------

// mergePath drops the last segment of basePath (everything after the final
// "/", or the whole path if there is none) and appends refPath.
func mergePath(basePath, refPath string) string {
	dir := ""
	if i := strings.LastIndex(basePath, "/"); i >= 0 {
		dir = basePath[:i+1]
	}

	return dir + refPath
}

// ------------------------------------------------------------------------

// splitPathQueryFrag splits a path-starting reference chunk into its
// path, query and fragment components, tracking whether the latter two
// were present at all.
func splitPathQueryFrag(s string) (path, query string, hasQuery bool, fragment string, hasFragment bool) {
	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		fragment = s[idx+1:]
		hasFragment = true
		s = s[:idx]
	}

	if idx := strings.IndexByte(s, '?'); idx >= 0 {
		query = s[idx+1:]
		hasQuery = true
		s = s[:idx]
	}

	path = s

	return
}

// splitQueryFrag splits a reference chunk that follows a leading "?" into
// its query and fragment components.
func splitQueryFrag(s string) (query string, fragment string, hasFragment bool) {
	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		fragment = s[idx+1:]
		hasFragment = true
		s = s[:idx]
	}

	query = s

	return
}

// splitAuthority splits the remainder of a "//..." reference into its
// authority and path/query/fragment chunk.
func splitAuthority(s string) (authority, rest string) {
	idx := strings.IndexAny(s, "/?#")
	if idx < 0 {
		return s, ""
	}

	return s[:idx], s[idx:]
}

// ------------------------------------------------------------------------

// String renders the URI back to its wire form, preserving a bare trailing
// "?" or "#" when HasQuery/HasFragment is true but the value is empty.
func (u *URI) String() string {
	var b strings.Builder

	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}

	b.WriteString(u.Host)
	b.WriteString(u.Path)

	if u.HasQuery {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}

	if u.HasFragment {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}

	return b.String()
}

// IsAbsolute reports whether the URI has both a scheme and a host.
func (u *URI) IsAbsolute() bool {
	return u.Scheme != "" && u.Host != ""
}

// Hostname returns the host component without a port.
func (u *URI) Hostname() string {
	if i := strings.LastIndexByte(u.Host, ':'); i >= 0 && !strings.Contains(u.Host[i:], "]") {
		return u.Host[:i]
	}

	return u.Host
}
