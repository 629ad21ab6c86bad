// Package wsserver implements the WebSocket server loop: a single
// reactor-driven selector notices when the listening socket has a
// pending connection, a per-connection goroutine then owns that
// connection's reads (mirroring the teacher's
// protocol.WSConnection.recvLoop dispatch-in-goroutine pattern so a
// slow application callback only stalls its own connection), and a
// separate heartbeat goroutine sweeps the connection registry for
// inactivity timeouts.
//
// Grounded on the teacher's wsconnsrv Config/Run/Shutdown lifecycle
// (accept loop + shutdown channel + graceful teardown via
// context.WithTimeout) and reactor.Loop for the listening socket's
// readiness notification.
//
// Author: momentics <momentics@gmail.com>
package wsserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gogojames/lightweb/control"
	"github.com/gogojames/lightweb/httpproto"
	"github.com/gogojames/lightweb/reactor"
	"github.com/gogojames/lightweb/wsconn"
	"github.com/gogojames/lightweb/wsproto"
)

// Config holds the WebSocket server's tunables.
type Config struct {
	ListenAddr        string
	MaxMessageSize    int
	MaxInactivityTime time.Duration
	HeartbeatInterval time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        ":8081",
		MaxMessageSize:    16 << 20,
		MaxInactivityTime: 5 * time.Minute,
		HeartbeatInterval: 30 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// Option customizes a Server at construction time.
type Option func(*Server)

// WithLogger overrides the no-op default logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server accepts TCP connections, performs the WebSocket opening
// handshake, and hands each upgraded connection off to its own
// wsconn.Connection.
type Server struct {
	cfg       Config
	handler   wsconn.Handler
	metrics   *control.Metrics
	logger    *zap.Logger

	mu         sync.Mutex
	ln         net.Listener
	loop       *reactor.Loop
	shutdownCh chan struct{}

	registry sync.Map // connection id (string) -> *wsconn.Connection
	wg       sync.WaitGroup
}

// New constructs a Server bound to cfg, dispatching frame events to
// handler and recording counters into metrics (nil disables metrics).
func New(cfg Config, handler wsconn.Handler, metrics *control.Metrics, opts ...Option) *Server {
	s := &Server{cfg: cfg, handler: handler, metrics: metrics, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run binds the listener, starts the accept and heartbeat goroutines,
// and blocks until ctx is canceled or Shutdown is called.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return fmt.Errorf("wsserver: already running")
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("wsserver: listen %s: %w", s.cfg.ListenAddr, err)
	}
	loop, err := reactor.NewLoop()
	if err != nil {
		ln.Close()
		s.mu.Unlock()
		return fmt.Errorf("wsserver: reactor: %w", err)
	}
	s.ln = ln
	s.loop = loop
	s.shutdownCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("websocket server listening", zap.String("addr", s.cfg.ListenAddr))

	fd, ferr := listenerFD(ln)
	useReactor := ferr == nil
	if useReactor {
		if err := s.loop.Add(fd, func(uintptr, reactor.EventType) { s.acceptOne() }); err != nil {
			s.logger.Warn("reactor registration failed, falling back to blocking accept", zap.Error(err))
			useReactor = false
		}
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.shutdownCh:
		}
	}()

	if useReactor {
		go s.reactorLoop()
	} else {
		go s.blockingAcceptLoop()
	}
	go s.heartbeatLoop()

	<-s.shutdownCh

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.logger.Warn("shutdown timeout exceeded, force-closing remaining connections")
		s.registry.Range(func(_, v any) bool {
			v.(*wsconn.Connection).Close(wsconn.CloseGoingAway, "server shutting down")
			return true
		})
	}
	return nil
}

func (s *Server) reactorLoop() {
	for {
		select {
		case <-s.shutdownCh:
			return
		default:
			if err := s.loop.RunOnce(64); err != nil {
				return
			}
		}
	}
}

func (s *Server) blockingAcceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.upgradeAndServe(conn)
	}
}

// acceptOne accepts exactly one pending connection, called from the
// reactor callback when the listener becomes readable.
func (s *Server) acceptOne() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	s.wg.Add(1)
	go s.upgradeAndServe(conn)
}

// upgradeAndServe performs the handshake over conn and, on success,
// hands the connection to a wsconn.Connection for its lifetime.
func (s *Server) upgradeAndServe(conn net.Conn) {
	defer s.wg.Done()

	br, resp, ok := s.handshake(conn)
	if !ok {
		bw := newBufWriter(conn)
		resp.WriteTo(bw)
		conn.Close()
		if s.metrics != nil {
			s.metrics.IncHandshakeFailures()
		}
		return
	}

	bw := newBufWriter(conn)
	if err := resp.WriteTo(bw); err != nil {
		conn.Close()
		return
	}

	c := wsconn.NewWithReader(conn, br, s.handler, s.metrics)
	s.registry.Store(c.ID(), c)
	if s.metrics != nil {
		s.metrics.IncActiveWSConns()
	}
	defer s.registry.Delete(c.ID())

	c.ReadLoop()
}

// handshake parses and validates the opening handshake, returning the
// buffered reader positioned right after the header block so the
// caller can reuse it for frame reads.
func (s *Server) handshake(conn net.Conn) (*bufio.Reader, *httpproto.Response, bool) {
	req, br, err := parseHandshakeRequest(conn)
	if err != nil {
		return nil, httpproto.NewResponse().Status(400).Text("bad websocket handshake request"), false
	}

	key, verr := wsproto.ValidateUpgrade(req)
	if verr != nil {
		return nil, httpproto.NewResponse().Status(verr.Code.WireStatus()).Text(verr.Message), false
	}
	return br, wsproto.UpgradeResponse(key), true
}

// Broadcast enqueues message on every currently OPEN connection. Order
// within a connection is FIFO; order across connections is
// unspecified, matching the concurrent registry's iteration order.
func (s *Server) Broadcast(text string) {
	s.registry.Range(func(_, v any) bool {
		c := v.(*wsconn.Connection)
		if c.IsOpen() {
			_ = c.SendText(text)
		}
		return true
	})
}

func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.shutdownCh:
			return
		case <-ticker.C:
			s.registry.Range(func(_, v any) bool {
				c := v.(*wsconn.Connection)
				if !c.IsOpen() {
					return true
				}
				if c.InactivityDuration() > s.cfg.MaxInactivityTime {
					c.Close(wsconn.CloseGoingAway, "Inactivity timeout")
				} else {
					_ = c.Ping()
				}
				return true
			})
		}
	}
}

// Shutdown stops accepting new connections and unblocks Run's
// shutdown drain.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdownCh:
		return
	default:
	}
	close(s.shutdownCh)
	if s.loop != nil {
		s.loop.Close()
	}
	if s.ln != nil {
		s.ln.Close()
	}
}
