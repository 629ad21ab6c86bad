// File: httpproto/parse.go
// Author: momentics <momentics@gmail.com>
//
// ParseRequest reads a single HTTP/1.1 request from a connection. It is
// the single authoritative parser for this server: earlier iterations of
// the teaching material this grew out of had two independent request
// parsers that had drifted apart; this is the one that survived.

package httpproto

import (
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

// MaxBodySize is the default cap on a request body, matching the original
// server's limit for non-multipart bodies.
const MaxBodySize = 50 * 1024 * 1024

// MaxRequestLineAndHeaders is a size for the request line plus header
// block. ParseRequest does not enforce it: the header block is read until
// its blank line however long it is.
const MaxRequestLineAndHeaders = 64 * 1024

// ParseRequest reads the request line and headers from tr/br, validates
// them, and returns a Request whose Body is bounded to the declared
// Content-Length (0 if absent). remoteAddr is recorded as-is for logging.
func ParseRequest(tr *textproto.Reader, bodyReader interface {
	Read([]byte) (int, error)
}, remoteAddr string) (*Request, *Error) {
	line, err := tr.ReadLine()
	if err != nil {
		return nil, BadRequest("failed to read request line").WithContext("error", err.Error())
	}

	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, BadRequest("malformed request line").WithContext("line", line)
	}
	method, rawTarget, proto := parts[0], parts[1], parts[2]

	if !validMethod(method) {
		return nil, BadRequest("unsupported method").WithContext("method", method)
	}
	if !strings.HasPrefix(proto, "HTTP/1.") {
		return nil, BadRequest("unsupported protocol version").WithContext("proto", proto)
	}

	path, query, perr := parseTarget(rawTarget)
	if perr != nil {
		return nil, BadRequest("malformed request target").WithContext("target", rawTarget)
	}
	if containsDotDotSegment(path) {
		return nil, Forbidden("request path contains a traversal segment").WithContext("path", path)
	}

	header, err := tr.ReadMIMEHeader()
	if err != nil && len(header) == 0 {
		return nil, BadRequest("failed to read headers").WithContext("error", err.Error())
	}

	var contentLength int64
	if v := header.Get("Content-Length"); v != "" {
		contentLength, err = strconv.ParseInt(v, 10, 64)
		if err != nil || contentLength < 0 {
			return nil, BadRequest("invalid Content-Length").WithContext("value", v)
		}
		if contentLength > MaxBodySize {
			return nil, PayloadTooLarge("request body exceeds maximum size").
				WithContext("limit", MaxBodySize).WithContext("declared", contentLength)
		}
	}

	req := &Request{
		Method:     Method(method),
		Path:       path,
		Query:      query,
		Proto:      proto,
		Header:     header,
		Body:       NewBoundedBody(bodyReader, contentLength),
		RemoteAddr: remoteAddr,
	}
	return req, nil
}

// parseTarget splits a request-target into its path and query components,
// URL-decoding both the path and every query key/value.
func parseTarget(target string) (string, map[string][]string, error) {
	rawPath := target
	rawQuery := ""
	if i := strings.IndexByte(target, '?'); i >= 0 {
		rawPath = target[:i]
		rawQuery = target[i+1:]
	}

	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", nil, err
	}
	if path == "" {
		path = "/"
	}

	query := make(map[string][]string)
	if rawQuery != "" {
		values, err := url.ParseQuery(rawQuery)
		if err != nil {
			return "", nil, err
		}
		query = map[string][]string(values)
	}
	return path, query, nil
}

// containsDotDotSegment reports whether path has a "." or ".." segment,
// which would otherwise let a handler that joins path onto a filesystem
// root escape it.
func containsDotDotSegment(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
