package browserkit

import (
	"strconv"
	"strings"
)

// ------------------------------------------------------------------------

// Browser is the core orchestrator of component F: it resolves URIs,
// merges server parameters, drives the Transport, maintains the
// CookieJar and History, and chases redirects/meta-refresh per spec 4.C.
// A Browser is not safe for concurrent use — one owning goroutine drives
// it (spec 5).
type Browser struct {
	Config    *BrowserConfig
	Jar       *CookieJar
	History   *History
	Transport *Transport

	lastRequest  *Request
	lastResponse *Response
	lastCrawler  *Crawler

	redirectCount int
	pending       *Request // next hop captured when FollowRedirects is off
}

// ------------------------------------------------------------------------

// NewBrowser returns a pointer to a newly created Browser. A nil config,
// jar or transport is replaced with its default.
func NewBrowser(config *BrowserConfig, jar *CookieJar, transport *Transport) *Browser {
	if config == nil {
		config = NewConfig()
	}

	if jar == nil {
		jar = NewCookieJar(nil)
	}

	if transport == nil {
		transport = NewTransport(nil)
	}

	return &Browser{
		Config:    config,
		Jar:       jar,
		History:   NewHistory(),
		Transport: transport,
	}
}

// ------------------------------------------------------------------------

// Request resolves uriRef against the previous request's URI (or the
// default URI if none), merges server over the default server
// parameters for this call only, dispatches, stores the response, pushes
// to history when changeHistory, then chases redirects/meta-refresh.
func (b *Browser) Request(method, uriRef string, parameters map[string][]string, files map[string]*UploadedFile, server map[string]string, content []byte, changeHistory bool) (*Crawler, error) {
	req, err := b.buildRequest(method, uriRef, parameters, files, server, content)
	if err != nil {
		return nil, err
	}

	b.redirectCount = 0

	return b.chase(req, changeHistory, false)
}

// ------------------------------------------------------------------------

// XMLHttpRequest is identical to Request but sets
// HTTP_X_REQUESTED_WITH=XMLHttpRequest for this call only; it is never
// persisted into the default server parameters.
func (b *Browser) XMLHttpRequest(method, uriRef string, parameters map[string][]string, files map[string]*UploadedFile, server map[string]string, content []byte, changeHistory bool) (*Crawler, error) {
	merged := map[string]string{"HTTP_X_REQUESTED_WITH": "XMLHttpRequest"}
	for k, v := range server {
		merged[k] = v
	}

	return b.Request(method, uriRef, parameters, files, merged, content, changeHistory)
}

// ------------------------------------------------------------------------

// Click dispatches a GET to a Link.
func (b *Browser) Click(link *Link) (*Crawler, error) {
	return b.Request("GET", link.URI.String(), nil, nil, nil, nil, true)
}

// ------------------------------------------------------------------------

// ClickLink locates the first link whose text/alt/id matches text on the
// last rendered page and clicks it.
func (b *Browser) ClickLink(text string) (*Crawler, error) {
	if b.lastCrawler == nil {
		return nil, ErrNoRequestMade
	}

	link, err := b.lastCrawler.Link(text)
	if err != nil {
		return nil, err
	}

	return b.Click(link)
}

// ------------------------------------------------------------------------

// Submit merges values into form's fields and dispatches using form's own
// method and action, folding headers into the server parameters for this
// call only.
func (b *Browser) Submit(form *Form, values map[string][]string, headers map[string]string) (*Crawler, error) {
	params := copyParameters(form.Parameters)
	for k, v := range values {
		params[k] = append([]string{}, v...)
	}

	return b.Request(form.Method, form.URI.String(), params, nil, foldHeadersToServer(headers), nil, true)
}

// ------------------------------------------------------------------------

// SubmitForm locates the form owning the submit button matching
// buttonText on the last rendered page, optionally overrides its method,
// and submits it.
func (b *Browser) SubmitForm(buttonText string, values map[string][]string, method string, headers map[string]string) (*Crawler, error) {
	if b.lastCrawler == nil {
		return nil, ErrNoRequestMade
	}

	form, err := b.lastCrawler.Form(buttonText)
	if err != nil {
		return nil, err
	}

	if method != "" {
		form.Method = strings.ToUpper(method)
	}

	return b.Submit(form, values, headers)
}

// ------------------------------------------------------------------------

// FollowRedirect dispatches the redirect target captured on the last
// response. It fails with a Logic error if the last response was not a
// 30x, or auto-follow is on and the chain has already been chased.
func (b *Browser) FollowRedirect() (*Crawler, error) {
	if b.pending == nil {
		return nil, logicError(ErrNoPendingRedirect)
	}

	next := b.pending
	b.pending = nil

	return b.chase(next, true, true)
}

// ------------------------------------------------------------------------

// Back re-dispatches the previous user-initiated history entry.
func (b *Browser) Back() (*Crawler, error) {
	req, err := b.History.Back()
	if err != nil {
		return nil, err
	}

	return b.replay(req)
}

// Forward re-dispatches the next user-initiated history entry.
func (b *Browser) Forward() (*Crawler, error) {
	req, err := b.History.Forward()
	if err != nil {
		return nil, err
	}

	return b.replay(req)
}

// Reload re-dispatches the current history entry.
func (b *Browser) Reload() (*Crawler, error) {
	req := b.History.Current()
	if req == nil {
		return nil, ErrNoRequestMade
	}

	return b.replay(req)
}

// replay re-dispatches req verbatim without touching history, per spec
// 4.C: "the jar is consulted fresh for cookies (not snapshotted)".
func (b *Browser) replay(req *Request) (*Crawler, error) {
	b.redirectCount = 0

	return b.chase(req, false, false)
}

// ------------------------------------------------------------------------

// Restart clears history and the cookie jar.
func (b *Browser) Restart() error {
	b.History.Reset()

	if err := b.Jar.Clear(); err != nil {
		return err
	}

	b.lastRequest = nil
	b.lastResponse = nil
	b.lastCrawler = nil
	b.pending = nil
	b.redirectCount = 0

	return nil
}

// ------------------------------------------------------------------------

// SetServerParameter sets a default server parameter applied to every
// subsequent request.
func (b *Browser) SetServerParameter(key, value string) {
	b.Config.Server[key] = value
}

// GetServerParameter reads a default server parameter. A value explicitly
// stored via SetServerParameter shadows any default-effective value (such
// as HTTP_USER_AGENT, which is applied at dispatch time via
// UserAgentCallback but never written into Config.Server); when the key
// was never user-configured, fallback is returned instead, per spec 6's
// "default-effective" vs "user-configured" distinction.
func (b *Browser) GetServerParameter(key, fallback string) string {
	if v, ok := b.Config.Server[key]; ok {
		return v
	}

	return fallback
}

// SetMaxRedirects sets the maximum redirect chain length; -1 means
// unbounded.
func (b *Browser) SetMaxRedirects(n int) {
	b.Config.MaxRedirects = n
}

// FollowRedirects toggles automatic redirect chasing.
func (b *Browser) FollowRedirects(follow bool) {
	b.Config.FollowRedirects = follow
}

// FollowMetaRefresh toggles automatic meta-refresh chasing.
func (b *Browser) FollowMetaRefresh(follow bool) {
	b.Config.FollowMetaRefresh = follow
}

// ------------------------------------------------------------------------

// CurrentURI returns the URI of the most recently dispatched hop (the
// final landing URI of the last redirect chain, if any).
func (b *Browser) CurrentURI() *URI {
	if b.lastRequest == nil {
		return nil
	}

	return b.lastRequest.URI
}

// CurrentRequest returns the most recently dispatched Request.
func (b *Browser) CurrentRequest() *Request {
	return b.lastRequest
}

// Response returns the filtered response of the most recently dispatched
// hop.
func (b *Browser) Response() *Response {
	return b.lastResponse
}

// InternalResponse returns the verbatim, unfiltered response of the most
// recently dispatched hop.
func (b *Browser) InternalResponse() *Response {
	if b.lastResponse == nil {
		return nil
	}

	status, headers, content := b.lastResponse.Raw()

	return &Response{Status: status, Headers: headers, Content: content}
}

// Crawler returns the HTML query façade over the most recently dispatched
// response.
func (b *Browser) Crawler() (*Crawler, error) {
	if b.lastCrawler == nil {
		return nil, ErrNoRequestMade
	}

	return b.lastCrawler, nil
}

// ------------------------------------------------------------------------

func (b *Browser) buildRequest(method, uriRef string, parameters map[string][]string, files map[string]*UploadedFile, server map[string]string, content []byte) (*Request, error) {
	base := b.currentBaseURI()

	target, err := Resolve(base, uriRef)
	if err != nil {
		return nil, err
	}

	merged := mergeServerParams(b.Config.Server, server)

	if _, ok := merged["HTTP_USER_AGENT"]; !ok && b.Config.UserAgentCallback != nil {
		merged["HTTP_USER_AGENT"] = b.Config.UserAgentCallback()
	}

	// HTTP_REFERER is set automatically when navigating from an existing
	// context; the first request of a session has none (spec 6).
	if _, ok := merged["HTTP_REFERER"]; !ok && b.lastRequest != nil {
		merged["HTTP_REFERER"] = b.lastRequest.URI.String()
	}

	merged["HTTP_HOST"] = target.Host
	merged["HTTPS"] = httpsFlag(target.Scheme)

	return NewRequest(strings.ToUpper(method), target, parameters, files, merged, content), nil
}

// currentBaseURI is the URI new relative references resolve against: the
// last dispatched hop's URI, or the default URI before any request.
func (b *Browser) currentBaseURI() *URI {
	if b.lastRequest != nil {
		return b.lastRequest.URI
	}

	return DefaultURI()
}

// ------------------------------------------------------------------------

// chase dispatches one hop and, when the response is a redirect or
// meta-refresh, recurses to the next hop per spec 4.C's redirect
// algorithm. push records this hop in History; viaRedirect marks it as a
// back/forward-skippable entry (only ever true for an explicit, manual
// FollowRedirect() call — the automatic chase loop never touches
// History, so a chain of any length advances history.length by exactly
// one, per spec 8's testable property).
func (b *Browser) chase(req *Request, push bool, viaRedirect bool) (*Crawler, error) {
	req = req.WithCookies(b.Jar.AllRawValues(req.URI))

	b.logEvent(LOG_DEBUG_LEVEL, "request", 0, map[string]string{
		"method": req.Method,
		"uri":    req.URI.String(),
	})

	resp, err := b.Transport.DoRequest(req)
	if err != nil {
		b.logError(LOG_ERR_LEVEL, err)

		return nil, err
	}

	b.logEvent(LOG_INFO_LEVEL, "response", 0, map[string]string{
		"uri":    req.URI.String(),
		"status": strconv.Itoa(resp.Status),
	})

	b.Jar.UpdateFromSetCookie(resp.SetCookieHeaders(), req.URI)

	if b.Config.ResponseFilter != nil {
		resp = resp.Filter(b.Config.ResponseFilter)
	}

	b.lastRequest = req
	b.lastResponse = resp

	crawler, err := NewCrawler(resp.Content, req.URI)
	if err != nil {
		return nil, err
	}

	b.lastCrawler = crawler

	if push {
		b.History.Push(req, viaRedirect)
	}

	b.pending = nil

	if next, ok := b.nextHop(req, resp, crawler); ok {
		b.redirectCount++

		if b.Config.MaxRedirects >= 0 && b.redirectCount > b.Config.MaxRedirects {
			return nil, logicError(ErrMaxRedirects)
		}

		return b.chase(next, false, false)
	}

	return crawler, nil
}

// ------------------------------------------------------------------------

// nextHop determines the next request of a redirect or meta-refresh
// chain, if any. When a 30x is present but FollowRedirects is off, the
// target is captured in b.pending for a later explicit FollowRedirect()
// instead of being returned here.
func (b *Browser) nextHop(req *Request, resp *Response, crawler *Crawler) (*Request, bool) {
	if isRedirectStatus(resp.Status) {
		target := resp.Location(req.URI)
		if target == nil {
			return nil, false
		}

		next := req.WithRedirect(resp.Status, target)

		if !b.Config.FollowRedirects {
			b.pending = next

			return nil, false
		}

		b.logEvent(LOG_INFO_LEVEL, "redirect", 0, map[string]string{
			"from":   req.URI.String(),
			"to":     target.String(),
			"status": strconv.Itoa(resp.Status),
		})

		return next, true
	}

	if resp.Status >= 200 && resp.Status < 300 && b.Config.FollowMetaRefresh {
		if target, ok := crawler.MetaRefresh(); ok {
			next := req.WithRedirect(302, target)

			b.logEvent(LOG_WARN_LEVEL, "meta_refresh", 0, map[string]string{
				"from": req.URI.String(),
				"to":   target.String(),
			})

			return next, true
		}
	}

	return nil, false
}

// ------------------------------------------------------------------------

func isRedirectStatus(status int) bool {
	switch status {
	case 301, 302, 303, 307, 308:
		return true
	default:
		return false
	}
}

// ------------------------------------------------------------------------

func mergeServerParams(defaults, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(overrides))

	for k, v := range defaults {
		merged[k] = v
	}

	for k, v := range overrides {
		merged[k] = v
	}

	return merged
}

// foldHeadersToServer converts plain header names into HTTP_* server
// parameter keys, the inverse of Transport.foldServerParams.
func foldHeadersToServer(headers map[string]string) map[string]string {
	server := make(map[string]string, len(headers))

	for k, v := range headers {
		key := "HTTP_" + strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		server[key] = v
	}

	return server
}
