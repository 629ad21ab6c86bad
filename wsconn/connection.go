// Package wsconn implements the per-connection WebSocket state machine:
// a bounded outbound queue, activity tracking for idle timeouts, and
// close-handshake bookkeeping. It replaces the teacher's
// transport/api.Transport abstraction with a plain net.Conn, since this
// server owns its event loop directly instead of going through a
// separate transport layer.
//
// Author: momentics <momentics@gmail.com>
package wsconn

import (
	"bufio"
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"

	"github.com/gogojames/lightweb/control"
	"github.com/gogojames/lightweb/wsproto"
)

// Close status codes, RFC 6455 section 7.4.1.
const (
	CloseNormal           = 1000
	CloseGoingAway        = 1001
	CloseProtocolError    = 1002
	CloseUnsupportedData  = 1003
	CloseNoStatus         = 1005
	CloseAbnormal         = 1006
	CloseInvalidPayload   = 1007
	ClosePolicyViolation  = 1008
	CloseMessageTooBig    = 1009
	CloseMandatoryExt     = 1010
	CloseInternalError    = 1011
	CloseTLSHandshakeFail = 1015
)

// MaxSendQueueDepth bounds how many outbound frames may be queued
// before Send starts reporting the connection as backed up. A slow
// reader no longer lets its peer's server-side queue grow without
// bound.
const MaxSendQueueDepth = 1000

// Handler reacts to events on a Connection. Default no-op.
type Handler struct {
	OnText   func(c *Connection, message string)
	OnBinary func(c *Connection, data []byte)
	OnOpen   func(c *Connection)
	OnClose  func(c *Connection, code int, reason string)
	OnError  func(c *Connection, err error)
}

// Connection manages one upgraded WebSocket session's lifecycle: it
// tracks connection state, queues outbound frames, and dispatches
// inbound frames (including control frames) to a Handler.
type Connection struct {
	id         string
	conn       net.Conn
	reader     *bufio.Reader
	remoteAddr string
	connectedAt time.Time

	state   int32 // atomic; one of the state* constants below
	closing int32 // atomic bool

	mu        sync.Mutex
	sendQueue *queue.Queue

	lastActivity int64 // unix nanos, atomic

	handler Handler
	metrics *control.Metrics

	bytesReceived  int64
	bytesSent      int64
	framesReceived int64
	framesSent     int64
}

// New wraps conn in a Connection. metrics may be nil if the caller
// doesn't want connection-level counters aggregated.
func New(conn net.Conn, handler Handler, metrics *control.Metrics) *Connection {
	return NewWithReader(conn, bufio.NewReader(conn), handler, metrics)
}

// NewWithReader is like New but reuses an already-buffered reader over
// conn. The WebSocket server needs this: the handshake request is read
// through a bufio.Reader that may have buffered bytes belonging to the
// first frame past the header block, and those bytes would be lost if
// frame reads started from a fresh, empty buffer.
func NewWithReader(conn net.Conn, reader *bufio.Reader, handler Handler, metrics *control.Metrics) *Connection {
	c := &Connection{
		id:          uuid.NewString(),
		conn:        conn,
		reader:      reader,
		remoteAddr:  conn.RemoteAddr().String(),
		connectedAt: time.Now(),
		sendQueue:   queue.New(),
		handler:     handler,
		metrics:     metrics,
	}
	c.setState(stateOpen)
	c.touch()
	return c
}

// connection states, stored atomically in Connection.state.
const (
	stateConnecting int32 = iota
	stateOpen
	stateClosing
	stateClosed
)

// ID returns the connection's unique identifier, generated fresh for
// each upgrade.
func (c *Connection) ID() string { return c.id }

// RemoteAddr returns the peer's address as reported by net.Conn.
func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// IsOpen reports whether the connection still accepts new frames.
func (c *Connection) IsOpen() bool {
	return atomic.LoadInt32(&c.state) == stateOpen
}

// InactivityDuration reports how long it has been since a frame was last
// read from the peer or last passed to SendText/SendBinary (pings and
// pongs sent by the server do not count), used by the server's heartbeat
// sweep to decide whether to drop a connection.
func (c *Connection) InactivityDuration() time.Duration {
	last := atomic.LoadInt64(&c.lastActivity)
	return time.Since(time.Unix(0, last))
}

func (c *Connection) touch() {
	atomic.StoreInt64(&c.lastActivity, time.Now().UnixNano())
}

func (c *Connection) setState(s int32) { atomic.StoreInt32(&c.state, s) }

// SendText enqueues a text frame. Returns an error if the connection is
// not open or the send queue is already at MaxSendQueueDepth.
func (c *Connection) SendText(message string) error {
	c.touch()
	return c.send(&wsproto.Frame{Final: true, Opcode: wsproto.OpcodeText, Payload: []byte(message)})
}

// SendBinary enqueues a binary frame.
func (c *Connection) SendBinary(data []byte) error {
	c.touch()
	return c.send(&wsproto.Frame{Final: true, Opcode: wsproto.OpcodeBinary, Payload: data})
}

// Ping enqueues an empty ping frame.
func (c *Connection) Ping() error {
	return c.send(&wsproto.Frame{Final: true, Opcode: wsproto.OpcodePing})
}

func (c *Connection) pong(payload []byte) error {
	return c.send(&wsproto.Frame{Final: true, Opcode: wsproto.OpcodePong, Payload: payload})
}

func (c *Connection) send(f *wsproto.Frame) error {
	if !c.IsOpen() {
		return errConnectionClosed
	}

	c.mu.Lock()
	if c.sendQueue.Length() >= MaxSendQueueDepth {
		c.mu.Unlock()
		return errSendQueueFull
	}
	c.sendQueue.Add(f)
	c.mu.Unlock()

	return c.flush()
}

// flush writes every queued frame directly to the connection. This
// server writes synchronously from whichever goroutine called Send
// rather than running a separate writer goroutine per connection, so
// flush only needs to serialize concurrent callers against each other.
func (c *Connection) flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.sendQueue.Length() > 0 {
		f := c.sendQueue.Peek().(*wsproto.Frame)
		if err := wsproto.WriteFrame(c.conn, f, false); err != nil {
			return err
		}
		c.sendQueue.Remove()
		atomic.AddInt64(&c.framesSent, 1)
		atomic.AddInt64(&c.bytesSent, int64(len(f.Payload)))
		if c.metrics != nil {
			c.metrics.AddFramesSent(1)
			c.metrics.AddBytesOut(int64(len(f.Payload)))
		}
	}
	return nil
}

// ReadLoop blocks reading and dispatching frames until the connection
// closes or a protocol error occurs. It is meant to run on its own
// goroutine (or be driven frame-by-frame by a reactor callback); it
// returns once the connection is no longer open.
func (c *Connection) ReadLoop() {
	if c.handler.OnOpen != nil {
		c.handler.OnOpen(c)
	}
	for c.IsOpen() {
		if err := c.readOne(); err != nil {
			c.abort(err)
			return
		}
	}
}

// readOne reads and dispatches a single frame. Exported as ReadOne for
// a reactor-driven (non-blocking) server loop that wants to read
// exactly one frame per readiness notification instead of blocking.
func (c *Connection) ReadOne() error {
	if !c.IsOpen() {
		return errConnectionClosed
	}
	return c.readOne()
}

func (c *Connection) readOne() error {
	frame, masked, err := wsproto.ReadFrame(c.reader)
	if err != nil {
		return err
	}
	if !masked {
		// RFC 6455 section 5.1: a server MUST close the connection upon
		// receiving an unmasked frame from a client.
		c.Close(CloseProtocolError, "client frames must be masked")
		return errConnectionClosed
	}

	c.touch()
	atomic.AddInt64(&c.framesReceived, 1)
	atomic.AddInt64(&c.bytesReceived, int64(len(frame.Payload)))
	if c.metrics != nil {
		c.metrics.AddFramesReceived(1)
		c.metrics.AddBytesIn(int64(len(frame.Payload)))
	}

	switch frame.Opcode {
	case wsproto.OpcodeText:
		if c.handler.OnText != nil {
			c.handler.OnText(c, string(frame.Payload))
		}
	case wsproto.OpcodeBinary:
		if c.handler.OnBinary != nil {
			c.handler.OnBinary(c, frame.Payload)
		}
	case wsproto.OpcodePing:
		if perr := c.pong(frame.Payload); perr != nil {
			return perr
		}
	case wsproto.OpcodePong:
		// Activity timestamp already updated above; nothing else to do.
	case wsproto.OpcodeClose:
		code, reason := parseClosePayload(frame.Payload)
		c.handleCloseFrame(code, reason)
		return errConnectionClosed
	default:
		c.Close(CloseProtocolError, "unsupported opcode")
		return errConnectionClosed
	}
	return nil
}

func parseClosePayload(payload []byte) (int, string) {
	if len(payload) < 2 {
		return CloseNormal, ""
	}
	code := int(binary.BigEndian.Uint16(payload[:2]))
	return code, string(payload[2:])
}

func (c *Connection) handleCloseFrame(code int, reason string) {
	if atomic.CompareAndSwapInt32(&c.closing, 0, 1) {
		_ = c.send(closeFrame(code, reason))
	}
	c.finish(code, reason)
}

func (c *Connection) abort(err error) {
	if atomic.CompareAndSwapInt32(&c.closing, 0, 1) {
		if c.handler.OnError != nil && err != errConnectionClosed {
			c.handler.OnError(c, err)
		}
	}
	c.finish(CloseAbnormal, "")
}

// Close begins a graceful close handshake: it sends a close frame
// carrying code and reason, then tears down the connection. Safe to
// call more than once; only the first call has an effect.
func (c *Connection) Close(code int, reason string) error {
	if !atomic.CompareAndSwapInt32(&c.closing, 0, 1) {
		return nil
	}
	err := c.send(closeFrame(code, reason))
	c.finish(code, reason)
	return err
}

func closeFrame(code int, reason string) *wsproto.Frame {
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, uint16(code))
	copy(payload[2:], reason)
	return &wsproto.Frame{Final: true, Opcode: wsproto.OpcodeClose, Payload: payload}
}

func (c *Connection) finish(code int, reason string) {
	if atomic.SwapInt32(&c.state, stateClosed) == stateClosed {
		return
	}
	_ = c.conn.Close()
	if c.metrics != nil {
		c.metrics.DecActiveWSConns()
	}
	if c.handler.OnClose != nil {
		c.handler.OnClose(c, code, reason)
	}
}

// Stats reports byte and frame counters for metrics/debug endpoints.
type Stats struct {
	BytesReceived  int64
	BytesSent      int64
	FramesReceived int64
	FramesSent     int64
}

// GetStats returns a point-in-time snapshot of the connection's I/O
// counters.
func (c *Connection) GetStats() Stats {
	return Stats{
		BytesReceived:  atomic.LoadInt64(&c.bytesReceived),
		BytesSent:      atomic.LoadInt64(&c.bytesSent),
		FramesReceived: atomic.LoadInt64(&c.framesReceived),
		FramesSent:     atomic.LoadInt64(&c.framesSent),
	}
}
