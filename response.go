package browserkit

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// ------------------------------------------------------------------------

// ResponseFilter is the single point of polymorphism in the core (spec
// 4.C "Response filtering hook"): it accepts the verbatim Response and
// must return a standard Response. The default is the identity function.
type ResponseFilter func(*Response) *Response

// ------------------------------------------------------------------------

// Response is an immutable HTTP reply. Content/Status/Headers hold the
// filtered view (after the Browser's ResponseFilter hook, identity by
// default); Raw() returns the verbatim transport reply untouched by any
// filter. Header keys are always lowercased, and Set-Cookie is exposed as
// a slice even when the server sent a single value. Grounded on colly's
// response.go body/charset handling.
type Response struct {
	Status  int
	Headers map[string][]string
	Content []byte

	raw *rawResponse
}

type rawResponse struct {
	Status  int
	Headers map[string][]string
	Content []byte
}

// ------------------------------------------------------------------------

// NewResponse builds a Response from a transport-level *http.Response,
// reading and decompressing the body, detecting and transcoding its
// character set to UTF-8 when requested.
func NewResponse(resp *http.Response, detectCharset bool, maxBodySize int) (*Response, error) {
	headers := canonicalizeHeaders(resp.Header)

	body, err := readBody(resp, maxBodySize)
	if err != nil {
		return nil, err
	}

	if detectCharset && len(body) > 0 && !noTextualData(headers) {
		body = transcodeToUTF8(body, headers)
	}

	raw := &rawResponse{
		Status:  resp.StatusCode,
		Headers: headers,
		Content: body,
	}

	return &Response{
		Status:  raw.Status,
		Headers: raw.Headers,
		Content: raw.Content,
		raw:     raw,
	}, nil
}

// ------------------------------------------------------------------------

// Filter applies f to the response and returns the resulting Response,
// which keeps the same Raw() view as the receiver.
func (r *Response) Filter(f ResponseFilter) *Response {
	if f == nil {
		return r
	}

	filtered := f(&Response{Status: r.Status, Headers: r.Headers, Content: r.Content, raw: r.raw})
	filtered.raw = r.raw

	return filtered
}

// ------------------------------------------------------------------------

// Raw returns the verbatim transport reply, bypassing any filter applied
// by Filter.
func (r *Response) Raw() (status int, headers map[string][]string, content []byte) {
	return r.raw.Status, r.raw.Headers, r.raw.Content
}

// ------------------------------------------------------------------------

// Location returns the resolved redirect target of the Location header
// against base, or nil if absent or malformed.
func (r *Response) Location(base *URI) *URI {
	values := r.Headers["location"]
	if len(values) == 0 {
		return nil
	}

	target, err := Resolve(base, values[0])
	if err != nil {
		return nil
	}

	return target
}

// SetCookieHeaders returns every Set-Cookie value observed on the raw
// reply (cookies are accumulated from the raw response even when a
// filter has been applied, per spec 9's eager-accumulation decision).
func (r *Response) SetCookieHeaders() []string {
	return r.raw.Headers["set-cookie"]
}

// ------------------------------------------------------------------------

func canonicalizeHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))

	for k, v := range h {
		out[strings.ToLower(k)] = v
	}

	return out
}

// ------------------------------------------------------------------------

func readBody(resp *http.Response, maxBodySize int) ([]byte, error) {
	var rdr io.Reader = resp.Body

	if maxBodySize > 0 {
		rdr = io.LimitReader(rdr, int64(maxBodySize))
	}

	if isGzipped(resp) {
		gz, err := gzip.NewReader(rdr)
		if err != nil {
			return nil, err
		}
		defer gz.Close()

		rdr = gz
	}

	body, err := io.ReadAll(rdr)
	if err != nil {
		return nil, err
	}

	return body, nil
}

// ------------------------------------------------------------------------

func isGzipped(resp *http.Response) bool {
	if resp.Uncompressed {
		return false
	}

	enc := strings.ToLower(resp.Header.Get("Content-Encoding"))

	return strings.Contains(enc, "gzip")
}

// ------------------------------------------------------------------------

func noTextualData(headers map[string][]string) bool {
	ct := firstHeader(headers, "content-type")

	return ContainsAny(ct, "image/", "video/", "audio/", "font/")
}

// ------------------------------------------------------------------------

// transcodeToUTF8 detects the response body's character set (preferring
// an explicit Content-Type charset parameter, falling back to chardet
// sniffing) and converts it to UTF-8. The body is returned unchanged if
// it is already UTF-8 or detection fails.
func transcodeToUTF8(body []byte, headers map[string][]string) []byte {
	contentType := firstHeader(headers, "content-type")

	if strings.Contains(contentType, "charset") {
		if ContainsAny(contentType, "utf-8", "utf8") {
			return body
		}
	} else {
		res, err := chardet.NewTextDetector().DetectBest(body)
		if err != nil {
			return body
		}

		contentType = "text/plain; charset=" + res.Charset
	}

	rdr, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}

	decoded, err := io.ReadAll(rdr)
	if err != nil {
		return body
	}

	return decoded
}

// ------------------------------------------------------------------------

func firstHeader(headers map[string][]string, key string) string {
	v := headers[key]
	if len(v) == 0 {
		return ""
	}

	return strings.ToLower(v[0])
}
