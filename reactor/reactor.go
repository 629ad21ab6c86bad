// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness-notification contract. Loop is built on
// this so wsserver's accept path doesn't need to know whether it's
// running on epoll or a stub.

package reactor

// EventReactor registers file descriptors for readiness notifications
// and reports which ones became ready. One instance backs one Loop.
type EventReactor interface {
	// Register an FD (epoll) or HANDLE (Windows) for IO notifications.
	Register(fd uintptr, userData uintptr) error

	// Wait blocks until at least one registered fd is ready and fills
	// events with the ones that fired. Returns how many were written.
	Wait(events []Event) (n int, err error)

	// Close releases the underlying handle/epfd.
	Close() error
}

// Event reports one file descriptor's readiness, as produced by Wait.
type Event struct {
	Fd       uintptr // File descriptor or handle.
	UserData uintptr // User-provided data, set at Register time.
}
