// File: httpproto/body.go
// Author: momentics <momentics@gmail.com>

package httpproto

import "io"

// BoundedBody is a request body reader bounded to a known
// Content-Length. Reading past the declared length always returns EOF;
// the connection's underlying reader is left positioned exactly after the
// body so a future request (were keep-alive supported) could follow.
type BoundedBody struct {
	r  io.Reader
	n  int64
}

// NewBoundedBody wraps r so reads never exceed n bytes.
func NewBoundedBody(r io.Reader, n int64) *BoundedBody {
	return &BoundedBody{r: io.LimitReader(r, n), n: n}
}

func (b *BoundedBody) Read(p []byte) (int, error) { return b.r.Read(p) }

// Len returns the declared Content-Length.
func (b *BoundedBody) Len() int64 { return b.n }
