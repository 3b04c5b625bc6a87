package browserkit

// ------------------------------------------------------------------------

// UploadedFile is a single multipart file attached to a Request.
type UploadedFile struct {
	Name        string // form field name
	Filename    string
	ContentType string
	Content     []byte
}

// ------------------------------------------------------------------------

// Request is an immutable snapshot of one outgoing hop: method, resolved
// absolute URI, form parameters, uploaded files, server parameters
// (CGI-style keys such as HTTP_HOST, HTTPS, HTTP_REFERER), and an optional
// raw body that overrides parameters/files when present. Grounded on
// colly's request.go structure, generalised to spec 3's value type.
type Request struct {
	Method     string
	URI        *URI
	Parameters map[string][]string
	Files      map[string]*UploadedFile
	Server     map[string]string
	Content    []byte            // non-nil overrides Parameters/Files as the body
	Cookies    map[string]string // raw values sent on this hop, derived from the jar at dispatch time
}

// ------------------------------------------------------------------------

// NewRequest returns a pointer to a newly created Request. The supplied
// maps are copied so later mutation by the caller cannot reach back into
// the stored Request.
func NewRequest(method string, uri *URI, parameters map[string][]string, files map[string]*UploadedFile, server map[string]string, content []byte) *Request {
	return &Request{
		Method:     method,
		URI:        uri,
		Parameters: copyParameters(parameters),
		Files:      copyFiles(files),
		Server:     copyServer(server),
		Content:    copyBytes(content),
	}
}

// ------------------------------------------------------------------------

// WithCookies returns a copy of r carrying the given raw cookie values,
// derived from the jar immediately before dispatch.
func (r *Request) WithCookies(cookies map[string]string) *Request {
	c := *r
	c.Cookies = make(map[string]string, len(cookies))

	for k, v := range cookies {
		c.Cookies[k] = v
	}

	return &c
}

// ------------------------------------------------------------------------

// WithRedirect returns a new Request representing the next hop of a
// redirect chain, per spec 4.C's redirect algorithm: method/body handling
// follows the demote-or-preserve rule for the given status, HTTP_HOST and
// HTTPS are recomputed from target, and HTTP_REFERER is set to r.URI.
func (r *Request) WithRedirect(status int, target *URI) *Request {
	method, parameters, files, content := r.Method, r.Parameters, r.Files, r.Content

	if demotesToGet(status, r.Method) {
		method = "GET"
		parameters = nil
		files = nil
		content = nil
	}

	server := copyServer(r.Server)
	server["HTTP_HOST"] = target.Host
	server["HTTPS"] = httpsFlag(target.Scheme)
	server["HTTP_REFERER"] = r.URI.String()

	return &Request{
		Method:     method,
		URI:        target,
		Parameters: copyParameters(parameters),
		Files:      copyFiles(files),
		Server:     server,
		Content:    copyBytes(content),
	}
}

// ------------------------------------------------------------------------

// demotesToGet reports whether a redirect of the given status demotes a
// non-idempotent method to GET, dropping the body (301/302/303), as
// opposed to preserving method and body verbatim (307/308).
func demotesToGet(status int, method string) bool {
	switch status {
	case 307, 308:
		return false
	case 301, 302, 303:
		switch method {
		case "GET", "HEAD":
			return false
		default:
			return true
		}
	default:
		return false
	}
}

// httpsFlag renders the HTTPS server parameter, "1" when scheme is https.
func httpsFlag(scheme string) string {
	if scheme == "https" {
		return "1"
	}

	return ""
}

// ------------------------------------------------------------------------

func copyParameters(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}

	out := make(map[string][]string, len(in))
	for k, v := range in {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}

	return out
}

func copyFiles(in map[string]*UploadedFile) map[string]*UploadedFile {
	if in == nil {
		return nil
	}

	out := make(map[string]*UploadedFile, len(in))
	for k, v := range in {
		f := *v
		f.Content = copyBytes(v.Content)
		out[k] = &f
	}

	return out
}

func copyServer(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}

func copyBytes(in []byte) []byte {
	if in == nil {
		return nil
	}

	out := make([]byte, len(in))
	copy(out, in)

	return out
}
