package bytesutil

import (
	"bufio"
	"io"
)

// BoundaryReader reads from a *bufio.Reader up to (but not consuming) the
// next occurrence of boundary. Once the boundary is found, Read returns
// io.EOF and AtBoundary reports true; the boundary bytes themselves remain
// unread on the underlying reader for the caller to consume.
//
// This mirrors the original parser's approach of scanning each read chunk
// for the boundary and pushing back whatever followed it, but uses
// bufio.Reader's Peek/Discard instead of a PushbackInputStream.
type BoundaryReader struct {
	r          *bufio.Reader
	boundary   []byte
	atBoundary bool
}

// NewBoundaryReader constructs a BoundaryReader that stops just before the
// given boundary sequence.
func NewBoundaryReader(r *bufio.Reader, boundary []byte) *BoundaryReader {
	return &BoundaryReader{r: r, boundary: boundary}
}

// AtBoundary reports whether the last Read stopped because the boundary
// was found immediately ahead.
func (b *BoundaryReader) AtBoundary() bool { return b.atBoundary }

func (b *BoundaryReader) Read(p []byte) (int, error) {
	if b.atBoundary {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	// Peek enough to reliably spot a boundary that straddles the chunk
	// we're about to hand back: at least len(p) bytes plus the boundary
	// length of lookahead.
	want := len(p) + len(b.boundary)
	peek, err := b.r.Peek(want)
	if len(peek) == 0 {
		if err != nil && err != io.EOF {
			return 0, err
		}
		if err == io.EOF {
			return 0, io.EOF
		}
	}

	if pos := Index(peek, 0, len(peek), b.boundary); pos != -1 {
		n := pos
		if n > len(p) {
			n = len(p)
		}
		if n > 0 {
			copy(p, peek[:n])
			if _, derr := b.r.Discard(n); derr != nil {
				return 0, derr
			}
		}
		if n == pos {
			b.atBoundary = true
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}

	// No boundary in sight. It's safe to hand back everything except the
	// trailing len(boundary)-1 bytes, which might be a boundary prefix
	// split across reads.
	safe := len(peek) - (len(b.boundary) - 1)
	if safe <= 0 {
		if err == io.EOF {
			safe = len(peek)
			if safe == 0 {
				return 0, io.EOF
			}
		} else {
			// Not enough buffered yet; force a small read to make progress.
			safe = 1
			if safe > len(peek) {
				return 0, io.EOF
			}
		}
	}
	n := safe
	if n > len(p) {
		n = len(p)
	}
	copy(p, peek[:n])
	if _, derr := b.r.Discard(n); derr != nil {
		return 0, derr
	}
	return n, nil
}
