// Package pool provides a size-bucketed []byte pool. The HTTP multipart
// decoder uses it for the copy buffer of each file part, so a fresh
// buffer is not allocated per upload. It is a single process-wide pool, not
// NUMA-aware: this server runs single-process and never pins goroutines to
// specific cores, so node-local allocation has nothing to bind to.
package pool
