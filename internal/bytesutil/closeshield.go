package bytesutil

import "io"

// CloseShield wraps an io.Reader so that closing it has no effect on the
// underlying stream, so a shared connection's body reader can be handed
// to a consumer that may call Close out of habit.
type CloseShield struct {
	io.Reader
}

// Close is a no-op; the underlying reader is owned by the caller.
func (CloseShield) Close() error { return nil }
