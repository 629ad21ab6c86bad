// File: httpproto/response.go
// Author: momentics <momentics@gmail.com>
//
// Response is a mutable builder, unlike Request. Handlers construct one
// with NewResponse and chain setters before returning it to the server
// loop, which calls WriteTo exactly once.

package httpproto

import (
	"bufio"
	"fmt"
	"strconv"
	"time"
)

// Cookie mirrors the attributes the original server always attached.
type Cookie struct {
	Name       string
	Value      string
	Attributes map[string]string
}

func (c Cookie) String() string {
	s := c.Name + "=" + c.Value
	for k, v := range c.Attributes {
		s += "; " + k + "=" + v
	}
	return s
}

// DefaultCookieAttributes matches the original server's default cookie
// policy: session-only, not readable from script, same-site lax.
func DefaultCookieAttributes() map[string]string {
	return map[string]string{"HttpOnly": "true", "SameSite": "Lax"}
}

// Response builds an HTTP/1.1 response. The zero value is not usable;
// always create one with NewResponse so the default security headers are
// present.
type Response struct {
	status  int
	headers map[string]string
	order   []string
	cookies []Cookie
	body    []byte
}

var statusText = map[int]string{
	101: "Switching Protocols",
	200: "OK", 201: "Created", 204: "No Content",
	301: "Moved Permanently", 302: "Found", 304: "Not Modified",
	400: "Bad Request", 401: "Unauthorized", 403: "Forbidden",
	404: "Not Found", 405: "Method Not Allowed", 409: "Conflict",
	413: "Payload Too Large", 415: "Unsupported Media Type",
	426: "Upgrade Required", 500: "Internal Server Error",
}

// StatusText returns the reason phrase for a status code, or "Unknown".
func StatusText(code int) string {
	if t, ok := statusText[code]; ok {
		return t
	}
	return "Unknown"
}

// NewResponse creates a 200 OK response with the server's default headers.
func NewResponse() *Response {
	r := &Response{status: 200, headers: make(map[string]string)}
	r.setDefaultHeaders()
	return r
}

func (r *Response) setDefaultHeaders() {
	r.Header("Server", "lightweb/1.0")
	r.Header("Date", time.Now().UTC().Format(time.RFC1123))
	r.Header("X-Content-Type-Options", "nosniff")
	r.Header("X-Frame-Options", "DENY")
	r.Header("X-XSS-Protection", "1; mode=block")
	r.Header("Connection", "close")
}

// Status sets the status code. Codes outside 100-599 are clamped to 500.
func (r *Response) Status(code int) *Response {
	if code < 100 || code > 599 {
		code = 500
	}
	r.status = code
	return r
}

// Header sets a response header, normalizing its name the way the
// original server did: first letter upper, the rest lower, as one
// unbroken word rather than per hyphen-segment canonical form.
func (r *Response) Header(name, value string) *Response {
	normalized := normalizeHeaderName(name)
	if _, exists := r.headers[normalized]; !exists {
		r.order = append(r.order, normalized)
	}
	r.headers[normalized] = value
	return r
}

func normalizeHeaderName(name string) string {
	if name == "" {
		return name
	}
	b := []byte(name)
	for i := range b {
		if i == 0 {
			if b[i] >= 'a' && b[i] <= 'z' {
				b[i] -= 'a' - 'A'
			}
		} else if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func (r *Response) ContentType(ct string) *Response { return r.Header("Content-Type", ct) }

func (r *Response) Body(b []byte) *Response {
	r.body = b
	return r
}

func (r *Response) Text(s string) *Response {
	r.body = []byte(s)
	return r.ContentType("text/plain; charset=utf-8")
}

func (r *Response) HTML(s string) *Response {
	r.body = []byte(s)
	return r.ContentType("text/html; charset=utf-8")
}

func (r *Response) JSON(b []byte) *Response {
	r.body = b
	return r.ContentType("application/json; charset=utf-8")
}

func (r *Response) Cookie(c Cookie) *Response {
	if c.Attributes == nil {
		c.Attributes = DefaultCookieAttributes()
	}
	r.cookies = append(r.cookies, c)
	return r
}

// WriteTo serializes the status line, headers, cookies, and body to w,
// flushing once at the end.
func (r *Response) WriteTo(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", r.status, StatusText(r.status)); err != nil {
		return err
	}
	for _, name := range r.order {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", name, r.headers[name]); err != nil {
			return err
		}
	}
	for _, c := range r.cookies {
		if _, err := fmt.Fprintf(w, "Set-Cookie: %s\r\n", c.String()); err != nil {
			return err
		}
	}
	if len(r.body) > 0 {
		if _, err := fmt.Fprintf(w, "Content-Length: %s\r\n", strconv.Itoa(len(r.body))); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	if len(r.body) > 0 {
		if _, err := w.Write(r.body); err != nil {
			return err
		}
	}
	return w.Flush()
}

// StatusCode reports the response's current status code, used by logging
// middleware and metrics.
func (r *Response) StatusCode() int { return r.status }

// BodyLen reports the response body's length in bytes, used by metrics
// middleware to tally bytes written without re-serializing the response.
func (r *Response) BodyLen() int { return len(r.body) }
