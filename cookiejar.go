package browserkit

import (
	"net"
	"strings"
	"sync"
	"time"

	"browserkit/storage"
	"browserkit/storage/mem"
)

// ------------------------------------------------------------------------

// CookieJar is the scoped cookie store of spec 4.B, backed by a pluggable
// storage.CookieStorage. Matching rules follow RFC 6265 5.1.3 (domain) and
// 5.1.4 (path), grounded on colly's cookiejar.go entry type.
type CookieJar struct {
	lock    sync.Mutex
	storage storage.CookieStorage
}

// ------------------------------------------------------------------------

// jarEntries is the submap gob-encoded into storage under one jarKey
// (a registrable domain or IP address), keyed by the domain;path;name
// triple.
type jarEntries map[string]Cookie

// ------------------------------------------------------------------------

// NewCookieJar returns a pointer to a newly created CookieJar backed by
// the given storage. A nil storage defaults to an in-memory store.
func NewCookieJar(store storage.CookieStorage) *CookieJar {
	if store == nil {
		store = mem.NewCookieStorage()
	}

	return &CookieJar{storage: store}
}

// ------------------------------------------------------------------------

// Set inserts or overwrites a cookie by its (name, path, domain) key.
func (j *CookieJar) Set(c *Cookie) error {
	j.lock.Lock()
	defer j.lock.Unlock()

	key := jarKey(c.Domain)
	submap, _ := j.loadSubmap(key)

	if submap == nil {
		submap = jarEntries{}
	}

	submap[c.key()] = *c

	return j.storeSubmap(key, submap)
}

// ------------------------------------------------------------------------

// Expire removes cookies matching name and, when non-empty, path/domain.
func (j *CookieJar) Expire(name, path, domain string) error {
	j.lock.Lock()
	defer j.lock.Unlock()

	key := jarKey(domain)
	submap, err := j.loadSubmap(key)
	if err != nil || submap == nil {
		return nil
	}

	modified := false

	for id, e := range submap {
		if e.Name != name {
			continue
		}

		if path != "" && e.Path != path {
			continue
		}

		if domain != "" && e.Domain != domain {
			continue
		}

		delete(submap, id)

		modified = true
	}

	if !modified {
		return nil
	}

	return j.storeSubmap(key, submap)
}

// ------------------------------------------------------------------------

// Clear drops every cookie from the jar.
func (j *CookieJar) Clear() error {
	j.lock.Lock()
	defer j.lock.Unlock()

	return j.storage.Clear()
}

// ------------------------------------------------------------------------

// UpdateFromSetCookie parses each Set-Cookie header value and merges the
// resulting cookies into the jar. An unspecified Domain defaults to
// defaultURI.Hostname() as a host-only cookie; an unspecified Path
// defaults to the directory portion of defaultURI.Path. A malformed
// cookie value is ignored silently.
func (j *CookieJar) UpdateFromSetCookie(headers []string, defaultURI *URI) {
	host := defaultURI.Hostname()
	defPath := defaultPath(defaultURI.Path)
	now := time.Now()

	for _, h := range headers {
		c, err := ParseSetCookie(h)
		if err != nil {
			continue
		}

		if c.Domain == "" {
			c.Domain = host
			c.HostOnly = true
		} else if !domainMatchesHost(host, c.Domain) && host != c.Domain {
			// A server may not set cookies for an unrelated domain.
			continue
		}

		if c.Path == "" {
			c.Path = defPath
		}

		if c.Expired(now) {
			_ = j.Expire(c.Name, c.Path, c.Domain)

			continue
		}

		_ = j.Set(c)
	}
}

// ------------------------------------------------------------------------

// AllValues returns name->decoded value for cookies whose domain matches
// uri.Hostname(), path matches uri.Path, are unexpired, and whose Secure
// flag is satisfied by uri.Scheme.
func (j *CookieJar) AllValues(uri *URI) map[string]string {
	out := map[string]string{}

	for _, c := range j.selected(uri) {
		out[c.Name] = c.DecodedValue()
	}

	return out
}

// AllRawValues is like AllValues but returns raw, undecoded values — used
// to build the outgoing Cookie header.
func (j *CookieJar) AllRawValues(uri *URI) map[string]string {
	out := map[string]string{}

	for _, c := range j.selected(uri) {
		out[c.Name] = c.Value()
	}

	return out
}

// ------------------------------------------------------------------------

// selected returns every cookie in the jar that should be sent for uri,
// pruning expired entries as a side effect.
func (j *CookieJar) selected(uri *URI) []Cookie {
	host := uri.Hostname()
	path := uri.Path
	if path == "" {
		path = "/"
	}

	https := uri.Scheme == "https"
	now := time.Now()

	j.lock.Lock()
	defer j.lock.Unlock()

	var out []Cookie

	for _, key := range j.candidateKeys(host) {
		submap, err := j.loadSubmap(key)
		if err != nil || submap == nil {
			continue
		}

		modified := false

		for id, e := range submap {
			if e.Expired(now) {
				delete(submap, id)

				modified = true

				continue
			}

			if !shouldSend(&e, https, host, path) {
				continue
			}

			out = append(out, e)
		}

		if modified {
			_ = j.storeSubmap(key, submap)
		}
	}

	return out
}

// ------------------------------------------------------------------------

// candidateKeys returns every jarKey a cookie visible to host could be
// filed under: the host itself and each of its parent domains.
func (j *CookieJar) candidateKeys(host string) []string {
	keys := []string{jarKey(host)}

	labels := strings.Split(host, ".")
	for i := 1; i < len(labels); i++ {
		parent := strings.Join(labels[i:], ".")
		if k := jarKey(parent); k != keys[len(keys)-1] {
			keys = append(keys, k)
		}
	}

	return keys
}

// ------------------------------------------------------------------------

func (j *CookieJar) loadSubmap(key string) (jarEntries, error) {
	r, err := j.storage.Get(key)
	if err != nil {
		return nil, err
	}

	var submap jarEntries
	if err := storage.Decode(r, &submap); err != nil {
		return nil, err
	}

	return submap, nil
}

func (j *CookieJar) storeSubmap(key string, submap jarEntries) error {
	if len(submap) == 0 {
		return j.storage.Remove(key)
	}

	r, err := storage.Encode(submap)
	if err != nil {
		return err
	}

	return j.storage.Set(key, r)
}

// ------------------------------------------------------------------------

// shouldSend reports whether e qualifies to be sent to host/path over a
// connection that is (or isn't) https.
func shouldSend(e *Cookie, https bool, host, path string) bool {
	return domainMatch(e, host) && pathMatch(e, path) && (https || !e.Secure)
}

// domainMatch implements RFC 6265 5.1.3, treating IP-addressed domains as
// always host-only.
func domainMatch(e *Cookie, host string) bool {
	if e.Domain == host {
		return true
	}

	if net.ParseIP(host) != nil {
		return false
	}

	return !e.HostOnly && domainMatchesHost(host, e.Domain)
}

// domainMatchesHost reports whether domain is a suffix of host on a label
// boundary, e.g. domain "example.com" matches host "www.example.com".
func domainMatchesHost(host, domain string) bool {
	return len(host) > len(domain) && strings.HasSuffix(host, domain) && host[len(host)-len(domain)-1] == '.'
}

// pathMatch implements RFC 6265 5.1.4.
func pathMatch(e *Cookie, requestPath string) bool {
	if requestPath == e.Path {
		return true
	}

	if strings.HasPrefix(requestPath, e.Path) {
		if e.Path[len(e.Path)-1] == '/' {
			return true
		}

		if requestPath[len(e.Path)] == '/' {
			return true
		}
	}

	return false
}

// ------------------------------------------------------------------------

// defaultPath returns the directory part of a URL path, per RFC 6265
// 5.1.4.
func defaultPath(path string) string {
	if len(path) == 0 || path[0] != '/' {
		return "/"
	}

	i := strings.LastIndex(path, "/")
	if i == 0 {
		return "/"
	}

	return path[:i]
}

// jarKey reduces a host to its registrable domain (last two labels, or
// the bare IP address), a simplified stand-in for a public-suffix-aware
// split since no PSL is wired in.
func jarKey(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}

	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}

	return strings.Join(labels[len(labels)-2:], ".")
}
