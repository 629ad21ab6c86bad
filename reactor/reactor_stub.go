//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Placeholder for platforms without an epoll/IOCP backing. wsserver
// still builds on these platforms; NewLoop just fails at startup
// instead of silently falling back to per-connection blocking reads.

package reactor

import "errors"

// NewReactor reports that no EventReactor backing exists for this
// platform.
func NewReactor() (EventReactor, error) {
	return nil, errors.New("reactor: this platform is not supported")
}
