// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collection for the HTTP and WebSocket servers.
// A *Metrics value is created once by the caller and passed into every
// constructor that needs to record activity; nothing here is a package
// level singleton.
package control
