// Package router implements path-pattern routing, a middleware chain, and
// ordered-predicate exception dispatch for HTTP requests. It replaces a
// class-hierarchy exception dispatcher with a list of (predicate,
// handler) pairs evaluated in registration order, so a panic or parse
// error is routed to a response the same way a normal request is routed
// to a handler.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gogojames/lightweb/httpproto"
)

// Handler produces a response for a request. Route parameters are
// available via req.Param.
type Handler func(req *httpproto.Request) *httpproto.Response

// Middleware wraps a Handler to run code before/after it, or to
// short-circuit the chain by not calling next.
type Middleware func(next Handler) Handler

type route struct {
	methods    map[httpproto.Method]bool
	regex      *regexp.Regexp
	paramNames []string
	handler    Handler
}

// exceptionRule pairs a predicate over a parse/handler error with the
// handler that renders a response for it. Rules are tried in registration
// order; the first match wins.
type exceptionRule struct {
	match   func(*httpproto.Error) bool
	handler func(*httpproto.Error, *httpproto.Request) *httpproto.Response
}

// Router matches a request path+method to a registered Handler, applies
// middleware around it, and renders a response for any error the handler
// or the parser raised.
type Router struct {
	routes     []*route
	middleware []Middleware
	exceptions []exceptionRule
}

// New creates an empty Router. Dispatch always falls back to a generic
// error page if no registered rule matches, so a catch-all rule is never
// required.
func New() *Router {
	return &Router{}
}

// Handle registers handler for pattern and the given methods. A pattern
// segment starting with ":" captures a path parameter, e.g.
// "/users/:id/messages/:messageId".
func (r *Router) Handle(pattern string, methods []httpproto.Method, handler Handler) {
	regex, names := compilePattern(pattern)
	methodSet := make(map[httpproto.Method]bool, len(methods))
	for _, m := range methods {
		methodSet[m] = true
	}
	r.routes = append(r.routes, &route{methods: methodSet, regex: regex, paramNames: names, handler: handler})
}

func (r *Router) GET(pattern string, h Handler)    { r.Handle(pattern, []httpproto.Method{httpproto.MethodGet}, h) }
func (r *Router) POST(pattern string, h Handler)   { r.Handle(pattern, []httpproto.Method{httpproto.MethodPost}, h) }
func (r *Router) PUT(pattern string, h Handler)    { r.Handle(pattern, []httpproto.Method{httpproto.MethodPut}, h) }
func (r *Router) PATCH(pattern string, h Handler)  { r.Handle(pattern, []httpproto.Method{httpproto.MethodPatch}, h) }
func (r *Router) DELETE(pattern string, h Handler) { r.Handle(pattern, []httpproto.Method{httpproto.MethodDelete}, h) }

// Use appends middleware to the chain applied to every route.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// OnError registers an exception rule, tried in registration order ahead
// of the built-in fallback.
func (r *Router) OnError(match func(*httpproto.Error) bool, handler func(*httpproto.Error, *httpproto.Request) *httpproto.Response) {
	r.exceptions = append(r.exceptions, exceptionRule{match, handler})
}

// Dispatch renders a response for err, trying each registered exception
// rule in order and falling back to a generic HTML error page whose
// status is err.Code.WireStatus().
func (r *Router) Dispatch(err *httpproto.Error, req *httpproto.Request) *httpproto.Response {
	for _, rule := range r.exceptions {
		if rule.match(err) {
			return rule.handler(err, req)
		}
	}
	return defaultExceptionHandler(err, req)
}

// Route runs the middleware chain unconditionally, before the path is
// even matched, so Logging/Recovery/Metrics-style middleware sees every
// request — including ones that end up 404 or 405 — not just requests
// that hit a registered handler. The innermost link in the chain is the
// route match itself: it dispatches NotFound/MethodNotAllowed through
// the exception chain when nothing matches. Panics anywhere in the
// chain, middleware or handler, are recovered and dispatched as an
// Internal error.
func (r *Router) Route(req *httpproto.Request) (resp *httpproto.Response) {
	handler := r.routeMatched
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}

	defer func() {
		if rec := recover(); rec != nil {
			resp = r.Dispatch(httpproto.Internal(fmt.Sprintf("handler panicked: %v", rec)), req)
		}
	}()
	return handler(req)
}

// routeMatched performs the path/method match and either invokes the
// matched handler or dispatches a NotFound/MethodNotAllowed error. This
// is the innermost Handler the middleware chain wraps in Route.
func (r *Router) routeMatched(req *httpproto.Request) *httpproto.Response {
	matched, params, methodMismatch := r.find(req.Path, req.Method)
	if matched == nil {
		if methodMismatch {
			return r.Dispatch(httpproto.MethodNotAllowed("method not allowed for this path").WithContext("path", req.Path), req)
		}
		return r.Dispatch(httpproto.NotFound("no route matches this path").WithContext("path", req.Path), req)
	}
	req.Params = params
	return matched.handler(req)
}

// find returns the first route whose pattern matches path. If a pattern
// matches but the method doesn't, methodMismatch is set so the caller can
// distinguish 404 from 405, but a later route matching both path and
// method still wins over an earlier path-only match.
func (r *Router) find(path string, method httpproto.Method) (*route, map[string]string, bool) {
	methodMismatch := false
	for _, rt := range r.routes {
		m := rt.regex.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		if !rt.methods[method] {
			methodMismatch = true
			continue
		}
		params := make(map[string]string, len(rt.paramNames))
		for i, name := range rt.paramNames {
			if i+1 < len(m) {
				params[name] = m[i+1]
			}
		}
		return rt, params, false
	}
	return nil, nil, methodMismatch
}

func compilePattern(pattern string) (*regexp.Regexp, []string) {
	segments := strings.Split(pattern, "/")
	var names []string
	var parts []string
	for _, seg := range segments {
		switch {
		case seg == "":
			continue
		case strings.HasPrefix(seg, ":"):
			names = append(names, strings.TrimPrefix(seg, ":"))
			parts = append(parts, `([^/]+)`)
		default:
			parts = append(parts, regexp.QuoteMeta(seg))
		}
	}
	return regexp.MustCompile("^/" + strings.Join(parts, "/") + "$"), names
}

func defaultExceptionHandler(err *httpproto.Error, _ *httpproto.Request) *httpproto.Response {
	status := err.Code.WireStatus()
	body := fmt.Sprintf("<html><body><h1>%d %s</h1><p>%s</p></body></html>",
		status, httpproto.StatusText(status), escapeHTML(err.Message))
	return httpproto.NewResponse().Status(status).HTML(body)
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
