// Package htserver implements the HTTP/1.1 server loop: bind a
// listening socket, spawn one goroutine per accepted connection, parse
// a single request, route it, write a response, and close the socket.
// There is no connection reuse (no keep-alive), no chunked transfer
// encoding, and no TLS — this server speaks plain HTTP/1.1 with
// Connection: close on every response.
//
// Grounded on the teacher's Server facade (config + functional
// options + control/pool/listener fields assembled in NewServer,
// Run(handler) blocking until Shutdown) from htserver's previous
// zero-copy/NUMA incarnation, generalized to a conventional
// goroutine-per-connection HTTP server using net.Listener directly.
//
// Author: momentics <momentics@gmail.com>
package htserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gogojames/lightweb/control"
	"github.com/gogojames/lightweb/httpproto"
	"github.com/gogojames/lightweb/router"
)

// ErrAlreadyRunning is returned by Run if the server is already serving.
var ErrAlreadyRunning = errors.New("htserver: already running")

// Config holds the HTTP server's tunables.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxConnections  int // 0 = unbounded

	// PreFilters run in order, before routing, as a pure function of the
	// parsed Request plus mutations to the in-progress Response. A
	// filter returning false stops the chain and the Response it left
	// behind is written, except that one still at status 200 becomes a
	// 403 "rejected by pre-filter"; the router is never consulted.
	// Mirrors the boundary a security/policy component mounts ahead of
	// routing — this server has no opinion on what the filter checks.
	PreFilters []func(*httpproto.Request, *httpproto.Response) bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		ReadTimeout:     30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Option customizes a Server at construction time.
type Option func(*Server)

// WithLogger overrides the no-op default logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server accepts TCP connections, parses each as a single HTTP/1.1
// request, and dispatches it through router.
type Server struct {
	cfg     Config
	router  *router.Router
	metrics *control.Metrics
	logger  *zap.Logger

	mu         sync.Mutex
	ln         net.Listener
	shutdownCh chan struct{}
	conns      sync.WaitGroup

	activeConns int64
	connMu      sync.Mutex
}

// New constructs a Server bound to cfg, routing requests through r and
// recording counters into metrics (may be nil to disable metrics).
func New(cfg Config, r *router.Router, metrics *control.Metrics, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		router:  r,
		metrics: metrics,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run binds the listener and serves until ctx is canceled or Shutdown
// is called, then drains in-flight connections up to
// cfg.ShutdownTimeout before returning.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("htserver: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	s.shutdownCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("http server listening", zap.String("addr", s.cfg.ListenAddr))

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.shutdownCh:
		}
	}()

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- s.acceptLoop()
	}()

	select {
	case <-s.shutdownCh:
	case err := <-acceptErr:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("accept loop exited", zap.Error(err))
		}
	}

	drained := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.logger.Warn("shutdown timeout exceeded, some connections left in flight")
	}
	return nil
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return err
		}

		if s.cfg.MaxConnections > 0 {
			s.connMu.Lock()
			if s.activeConns >= int64(s.cfg.MaxConnections) {
				s.connMu.Unlock()
				conn.Close()
				continue
			}
			s.activeConns++
			s.connMu.Unlock()
		}

		s.conns.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn parses exactly one request from conn, routes it, writes
// the response, and closes the socket. No keep-alive: this server's
// wire contract is Connection: close on every response.
func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		s.conns.Done()
		if s.cfg.MaxConnections > 0 {
			s.connMu.Lock()
			s.activeConns--
			s.connMu.Unlock()
		}
	}()

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	br := bufio.NewReader(conn)
	tr := textproto.NewReader(br)

	req, perr := httpproto.ParseRequest(tr, br, conn.RemoteAddr().String())
	if perr != nil {
		resp := s.router.Dispatch(perr, &httpproto.Request{RemoteAddr: conn.RemoteAddr().String()})
		s.writeResponse(conn, resp)
		return
	}

	if s.metrics != nil {
		s.metrics.AddBytesIn(int64(req.Body.Len()))
	}

	if resp, blocked := s.runPreFilters(req); blocked {
		s.writeResponse(conn, resp)
		return
	}

	resp := s.router.Route(req)
	s.writeResponse(conn, resp)
}

// runPreFilters runs the configured pre-filter chain in order. A filter
// returning false short-circuits the chain; its Response (turned into a
// 403 with the text "rejected by pre-filter" if the filter left the
// status at 200) is then the response written to the wire instead of
// routing the request.
func (s *Server) runPreFilters(req *httpproto.Request) (*httpproto.Response, bool) {
	if len(s.cfg.PreFilters) == 0 {
		return nil, false
	}
	resp := httpproto.NewResponse()
	for _, filter := range s.cfg.PreFilters {
		if !filter(req, resp) {
			if resp.StatusCode() == 200 {
				resp.Status(403).Text("rejected by pre-filter")
			}
			return resp, true
		}
	}
	return nil, false
}

func (s *Server) writeResponse(conn net.Conn, resp *httpproto.Response) {
	bw := bufio.NewWriter(conn)
	if err := resp.WriteTo(bw); err != nil {
		s.logger.Error("writing response", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.IncRequests()
		s.metrics.RecordStatus(resp.StatusCode())
		s.metrics.AddBytesOut(int64(resp.BodyLen()))
	}
}

// Shutdown stops accepting new connections. Run's in-flight
// connections continue draining until cfg.ShutdownTimeout.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdownCh:
		return
	default:
	}
	close(s.shutdownCh)
	if s.ln != nil {
		s.ln.Close()
	}
}
