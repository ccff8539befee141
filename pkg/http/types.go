// Package http provides HTTP/1.x message parsing and serialization per RFC 9112.
//
// Messages are parsed incrementally: a Reader accepts bytes in arbitrary
// pieces and yields complete requests or responses as soon as their last byte
// arrives. A Scribe turns a message back into wire chunks, choosing framing
// from the message's Content.
//
// # Thread Safety
//
// One-shot functions (Unmarshal, Marshal, Validate, Parse) are safe for
// concurrent use. A Reader, Scribe, Decoder or Encoder belongs to a single
// goroutine.
//
// # Parsing APIs
//
// The package provides multiple parsing paths:
//
//   - Reader - incremental, resumable parsing into messages
//   - Unmarshal/UnmarshalRequest/UnmarshalResponse - one-shot parsing
//   - Parse/ParseReader - AST-based parsing via shape-core
//   - NewDecoder - streaming io.Reader-based parsing
package http

import (
	"mime"
	"strings"

	"github.com/shapestone/shape-wire/pkg/url"
)

// Request represents an HTTP/1.x request message.
type Request struct {
	Method   string   // "GET", "POST", etc.
	Target   string   // request-target as sent: "/api/users?q=foo"
	URL      *url.URL // parsed Target
	Version  string   // "HTTP/1.1"
	Headers  Headers  // ordered, repeatable headers
	Content  Content  // body
	Trailers Headers  // chunked trailer fields
}

// Response represents an HTTP/1.x response message.
type Response struct {
	Version    string // "HTTP/1.1"
	StatusCode int    // 200, 404, etc.
	Reason     string // "OK", "Not Found"
	Headers    Headers
	Content    Content
	Trailers   Headers
}

// Message is the interface shared by Request and Response.
type Message interface {
	GetVersion() string
	GetHeaders() *Headers
	GetContent() *Content
	KeepAlive() bool
	HasBody() bool
	IsChunked() bool
}

// parseTarget parses a request-target in any of its four forms.
func parseTarget(method, target string) (*url.URL, error) {
	switch {
	case target == "*" && method == "OPTIONS":
		return &url.URL{}, nil
	case method == "CONNECT":
		return url.Parse("//" + target)
	}
	return url.Parse(target)
}

// NewRequest builds an HTTP/1.1 request. The target is parsed as a URL.
func NewRequest(method, target string, content Content) (*Request, error) {
	u, err := parseTarget(method, target)
	if err != nil {
		return nil, &ParseError{Kind: InvalidURL, Section: SectionStartLine, Message: "invalid request target", Err: err}
	}
	return &Request{
		Method:  method,
		Target:  target,
		URL:     u,
		Version: "HTTP/1.1",
		Content: content,
	}, nil
}

// NewResponse builds an HTTP/1.1 response with the standard reason phrase.
func NewResponse(code int, content Content) *Response {
	return &Response{
		Version:    "HTTP/1.1",
		StatusCode: code,
		Reason:     StatusText(code),
		Content:    content,
	}
}

// keepAlive applies the version default and the Connection header.
func keepAlive(version string, h *Headers) bool {
	if h.HasToken("Connection", "close") {
		return false
	}
	if version == "HTTP/1.0" {
		return h.HasToken("Connection", "keep-alive")
	}
	return true
}

// GetVersion returns the HTTP version string.
func (r *Request) GetVersion() string { return r.Version }

// GetHeaders returns the headers.
func (r *Request) GetHeaders() *Headers { return &r.Headers }

// GetContent returns the body.
func (r *Request) GetContent() *Content { return &r.Content }

// KeepAlive reports whether the connection may be reused after this request.
func (r *Request) KeepAlive() bool { return keepAlive(r.Version, &r.Headers) }

// HasBody reports whether the request carries body bytes.
func (r *Request) HasBody() bool { return !r.Content.IsEmpty() }

// IsChunked reports whether the request uses chunked transfer coding.
func (r *Request) IsChunked() bool { return r.Headers.IsChunked() }

// Host returns the target host, falling back to the Host header without its port.
func (r *Request) Host() string {
	if r.URL != nil && r.URL.Host != "" {
		return r.URL.Host
	}
	h := r.Headers.Get("Host")
	if strings.HasPrefix(h, "[") {
		if i := strings.IndexByte(h, ']'); i > 0 {
			return h[1:i]
		}
		return h
	}
	if i := strings.LastIndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	return strings.ToLower(h)
}

// Path returns the decoded request path.
func (r *Request) Path() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Path
}

// Query returns the first query value for name.
func (r *Request) Query(name string) string {
	if r.URL == nil {
		return ""
	}
	v, _ := r.URL.QueryGet(name)
	return v
}

func (r *Request) mediaType() (string, map[string]string) {
	ct := r.Headers.Get("Content-Type")
	if ct == "" {
		ct = r.Content.Type
	}
	if ct == "" {
		return "", nil
	}
	mt, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])), nil
	}
	return mt, params
}

// ContentType returns the lower-cased media type without parameters.
func (r *Request) ContentType() string {
	mt, _ := r.mediaType()
	return mt
}

// Charset returns the charset parameter of the content type, if any.
func (r *Request) Charset() string {
	_, params := r.mediaType()
	return params["charset"]
}

// Form decodes an application/x-www-form-urlencoded body. Other content
// types yield no pairs.
func (r *Request) Form() ([]url.QueryPair, error) {
	if r.ContentType() != "application/x-www-form-urlencoded" {
		return nil, nil
	}
	return url.ParseQuery(string(r.Content.Bytes()))
}

// Expect100Continue reports whether the client waits for an interim response.
func (r *Request) Expect100Continue() bool {
	return r.Version != "HTTP/1.0" && r.Headers.HasToken("Expect", "100-continue")
}

// Cookies returns the request cookies from all Cookie headers.
func (r *Request) Cookies() map[string]string {
	cookies := make(map[string]string)
	for _, v := range r.Headers.Values("Cookie") {
		parseCookieInto(cookies, v)
	}
	return cookies
}

// Cookie returns the value of the named request cookie.
func (r *Request) Cookie(name string) (string, bool) {
	v, ok := r.Cookies()[name]
	return v, ok
}

// GetVersion returns the HTTP version string.
func (r *Response) GetVersion() string { return r.Version }

// GetHeaders returns the headers.
func (r *Response) GetHeaders() *Headers { return &r.Headers }

// GetContent returns the body.
func (r *Response) GetContent() *Content { return &r.Content }

// KeepAlive reports whether the connection may be reused after this response.
func (r *Response) KeepAlive() bool { return keepAlive(r.Version, &r.Headers) }

// HasBody reports whether the response carries body bytes.
func (r *Response) HasBody() bool {
	return !bodylessStatus(r.StatusCode) && !r.Content.IsEmpty()
}

// IsChunked reports whether the response uses chunked transfer coding.
func (r *Response) IsChunked() bool { return r.Headers.IsChunked() }

// SetCookie appends a Set-Cookie header for c.
func (r *Response) SetCookie(c *Cookie) error {
	return r.Headers.Add("Set-Cookie", c.String())
}

// UnsetCookie asks the client to delete the named cookie.
func (r *Response) UnsetCookie(name string) error {
	return r.SetCookie(&Cookie{Name: name, Path: "/", MaxAge: 0, HasMaxAge: true})
}

// Cookies parses every Set-Cookie header. Unparsable headers are skipped.
func (r *Response) Cookies() []*Cookie {
	var cookies []*Cookie
	for _, v := range r.Headers.Values("Set-Cookie") {
		if c, err := ParseSetCookie(v); err == nil {
			cookies = append(cookies, c)
		}
	}
	return cookies
}

// Marshaler is the interface implemented by types that can marshal themselves
// into valid HTTP wire format.
type Marshaler interface {
	MarshalHTTP() ([]byte, error)
}

// Unmarshaler is the interface implemented by types that can unmarshal
// an HTTP wire-format description of themselves.
type Unmarshaler interface {
	UnmarshalHTTP([]byte) error
}
