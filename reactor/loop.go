// File: reactor/loop.go
// Author: momentics <momentics@gmail.com>
//
// Loop adds callback dispatch on top of the raw EventReactor: callers
// register a function per file descriptor instead of draining the Event
// slice themselves. The WebSocket server uses it for its accept path, and
// it replaces two competing, half-finished reactor designs that shipped
// side by side.

package reactor

import "sync"

// EventType classifies what became ready on a file descriptor. The
// underlying epoll registration is edge-triggered on both read and write,
// so a callback should drain its fd until it sees EAGAIN before returning.
type EventType int

const (
	EventRead EventType = 1 << iota
	EventWrite
)

// Callback handles readiness notifications for a single file descriptor.
type Callback func(fd uintptr, ev EventType)

// Loop runs a single-threaded poll loop that fans out readiness events to
// per-fd callbacks registered with Add.
type Loop struct {
	r EventReactor

	mu        sync.RWMutex
	callbacks map[uintptr]Callback
}

// NewLoop constructs a Loop backed by the platform's EventReactor.
func NewLoop() (*Loop, error) {
	r, err := NewReactor()
	if err != nil {
		return nil, err
	}
	return &Loop{r: r, callbacks: make(map[uintptr]Callback)}, nil
}

// Add registers fd for readiness notifications, invoking cb whenever it
// becomes readable or writable.
func (l *Loop) Add(fd uintptr, cb Callback) error {
	l.mu.Lock()
	l.callbacks[fd] = cb
	l.mu.Unlock()
	return l.r.Register(fd, fd)
}

// Remove stops dispatching events for fd. It does not close the fd.
func (l *Loop) Remove(fd uintptr) {
	l.mu.Lock()
	delete(l.callbacks, fd)
	l.mu.Unlock()
}

// RunOnce blocks until at least one registered fd is ready, then dispatches
// every ready fd to its callback. The callback always receives
// EventRead|EventWrite; which of the two actually fired is not reported.
// Callers run this in a loop on a dedicated
// goroutine until Close is called.
func (l *Loop) RunOnce(maxEvents int) error {
	events := make([]Event, maxEvents)
	n, err := l.r.Wait(events)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		fd := events[i].Fd
		l.mu.RLock()
		cb, ok := l.callbacks[fd]
		l.mu.RUnlock()
		if !ok {
			continue
		}
		func() {
			defer func() { _ = recover() }()
			cb(fd, EventRead|EventWrite)
		}()
	}
	return nil
}

// Close releases the underlying reactor resources.
func (l *Loop) Close() error {
	return l.r.Close()
}
