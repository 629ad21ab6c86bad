// File: router/middleware.go
// Author: momentics <momentics@gmail.com>
//
// Built-in middleware. Each one is constructor-injected with the
// collaborator it needs (a logger, a metrics sink) rather than reaching
// for a package-level global, so a test can assert against its own
// private instance.

package router

import (
	"time"

	"go.uber.org/zap"

	"github.com/gogojames/lightweb/control"
	"github.com/gogojames/lightweb/httpproto"
)

// Logging logs each request's method, path, status, and latency.
func Logging(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(req *httpproto.Request) *httpproto.Response {
			start := time.Now()
			resp := next(req)
			logger.Info("request",
				zap.String("method", string(req.Method)),
				zap.String("path", req.Path),
				zap.Int("status", resp.StatusCode()),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_addr", req.RemoteAddr),
			)
			return resp
		}
	}
}

// Recovery turns a panic inside next into a 500 response instead of
// letting it escape to the connection goroutine. Router.Route already
// recovers panics anywhere in the chain as a last resort; this
// middleware lets callers observe and log the panic at the point it
// happened, and still returns a usable response to any middleware
// that ran before it (Route's recover only sees the escape, not which
// layer raised it).
func Recovery(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(req *httpproto.Request) (resp *httpproto.Response) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered", zap.Any("recover", r), zap.String("path", req.Path))
					resp = defaultExceptionHandler(httpproto.Internal("internal server error"), req)
				}
			}()
			return next(req)
		}
	}
}

// Metrics records request counts and status codes into m.
func Metrics(m *control.Metrics) Middleware {
	return func(next Handler) Handler {
		return func(req *httpproto.Request) *httpproto.Response {
			m.IncRequests()
			resp := next(req)
			m.RecordStatus(resp.StatusCode())
			return resp
		}
	}
}
