package browserkit

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
)

// ------------------------------------------------------------------------

// Transport is the adapter of component E: it translates an internal
// Request into a transport call and the reply back into an internal
// Response. It never follows redirects itself — the Browser owns that
// state machine (spec 4.D).
type Transport struct {
	Client        *http.Client
	DetectCharset bool
	MaxBodySize   int
}

// ------------------------------------------------------------------------

// NewTransport returns a pointer to a newly created Transport whose
// underlying http.Client never follows redirects automatically.
func NewTransport(client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{}
	}

	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Transport{Client: client, DetectCharset: true}
}

// ------------------------------------------------------------------------

// DoRequest dispatches req and returns the resulting Response.
func (t *Transport) DoRequest(req *Request) (*Response, error) {
	if !req.URI.IsAbsolute() {
		return nil, fmt.Errorf("%w: %s", ErrNotAbsolute, req.URI.String())
	}

	httpReq, err := t.buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return NewResponse(resp, t.DetectCharset, t.MaxBodySize)
}

// ------------------------------------------------------------------------

func (t *Transport) buildRequest(req *Request) (*http.Request, error) {
	target, err := url.Parse(req.URI.String())
	if err != nil {
		return nil, err
	}

	body, contentType, err := requestBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(strings.ToUpper(req.Method), target.String(), body)
	if err != nil {
		return nil, err
	}

	foldServerParams(httpReq, req.Server)

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if cookie := cookieHeader(req.Cookies); cookie != "" {
		httpReq.Header.Set("Cookie", cookie)
	}

	return httpReq, nil
}

// ------------------------------------------------------------------------

// foldServerParams folds CGI-style server parameters into headers: a key
// starting with "HTTP_" has the prefix stripped and underscores turned to
// hyphens (HTTP_X_REQUESTED_WITH -> X-Requested-With); CONTENT_TYPE,
// CONTENT_LENGTH and CONTENT_MD5 fold directly. HTTP_HOST additionally
// sets the request's Host field, as net/http does not send a Host header
// set through http.Header.
func foldServerParams(httpReq *http.Request, server map[string]string) {
	for key, value := range server {
		switch {
		case key == "HTTP_HOST":
			httpReq.Host = value

		case strings.HasPrefix(key, "HTTP_"):
			name := strings.ReplaceAll(strings.TrimPrefix(key, "HTTP_"), "_", "-")
			httpReq.Header.Set(name, value)

		case key == "CONTENT_TYPE", key == "CONTENT_LENGTH", key == "CONTENT_MD5":
			name := strings.ReplaceAll(strings.ToLower(key), "_", "-")
			httpReq.Header.Set(name, value)
		}
	}
}

// ------------------------------------------------------------------------

// requestBody builds the outgoing body per spec 4.D: raw bytes when
// Content is set, multipart/form-data when Files is non-empty,
// url-encoded form when only Parameters are set, and no body at all for
// GET/HEAD or when nothing was supplied.
func requestBody(req *Request) (io.Reader, string, error) {
	if strings.EqualFold(req.Method, "GET") || strings.EqualFold(req.Method, "HEAD") {
		return nil, "", nil
	}

	if req.Content != nil {
		return bytes.NewReader(req.Content), "", nil
	}

	if len(req.Files) > 0 {
		return buildMultipartBody(req.Parameters, req.Files)
	}

	if len(req.Parameters) > 0 {
		return strings.NewReader(encodeURLValues(req.Parameters)), "application/x-www-form-urlencoded", nil
	}

	return nil, "", nil
}

// ------------------------------------------------------------------------

func buildMultipartBody(parameters map[string][]string, files map[string]*UploadedFile) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if err := w.SetBoundary(RandomString(30)); err != nil {
		return nil, "", err
	}

	for _, name := range sortedKeys(parameters) {
		for _, v := range parameters[name] {
			if err := w.WriteField(name, v); err != nil {
				return nil, "", err
			}
		}
	}

	for _, name := range sortedFileKeys(files) {
		f := files[name]

		part, err := w.CreatePart(fileHeader(f))
		if err != nil {
			return nil, "", err
		}

		if _, err := part.Write(f.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}

// ------------------------------------------------------------------------

func fileHeader(f *UploadedFile) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.Name, f.Filename))

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h.Set("Content-Type", contentType)

	return h
}

// ------------------------------------------------------------------------

func encodeURLValues(parameters map[string][]string) string {
	values := url.Values{}

	for k, vs := range parameters {
		for _, v := range vs {
			values.Add(k, v)
		}
	}

	return values.Encode()
}

// ------------------------------------------------------------------------

func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}

	names := make([]string, 0, len(cookies))
	for k := range cookies {
		names = append(names, k)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, (&http.Cookie{Name: name, Value: cookies[name]}).String())
	}

	return strings.Join(parts, "; ")
}

// ------------------------------------------------------------------------

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func sortedFileKeys(m map[string]*UploadedFile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
