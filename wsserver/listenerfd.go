package wsserver

import (
	"fmt"
	"net"
	"syscall"
)

// listenerFD extracts the raw file descriptor backing ln, so it can be
// registered with a reactor.Loop for readiness notification. Any
// net.Listener satisfying syscall.Conn works; ln is almost always a
// *net.TCPListener in practice.
func listenerFD(ln net.Listener) (uintptr, error) {
	sc, ok := ln.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("wsserver: listener does not expose a raw file descriptor")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd uintptr
	if err := raw.Control(func(f uintptr) { fd = f }); err != nil {
		return 0, err
	}
	return fd, nil
}
