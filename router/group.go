// File: router/group.go
// Author: momentics <momentics@gmail.com>

package router

import (
	"strings"

	"github.com/gogojames/lightweb/httpproto"
)

// RouteGroup registers routes under a shared path prefix and a shared
// set of middleware applied only to that group's routes.
type RouteGroup struct {
	router     *Router
	prefix     string
	middleware []Middleware
}

// Group creates a RouteGroup rooted at prefix. Handlers registered
// through the group are wrapped with the group's own middleware at
// registration time. The router's global middleware wraps route matching
// itself, so it sees the request first and group middleware runs after
// it, just before the handler.
func (r *Router) Group(prefix string) *RouteGroup {
	return &RouteGroup{router: r, prefix: strings.TrimSuffix(prefix, "/")}
}

// Use appends middleware applied only to routes registered through g.
func (g *RouteGroup) Use(mw ...Middleware) {
	g.middleware = append(g.middleware, mw...)
}

// Handle registers handler under g's prefix joined with pattern.
func (g *RouteGroup) Handle(pattern string, methods []httpproto.Method, handler Handler) {
	for i := len(g.middleware) - 1; i >= 0; i-- {
		handler = g.middleware[i](handler)
	}
	g.router.Handle(joinPrefix(g.prefix, pattern), methods, handler)
}

func (g *RouteGroup) GET(pattern string, h Handler) {
	g.Handle(pattern, []httpproto.Method{httpproto.MethodGet}, h)
}
func (g *RouteGroup) POST(pattern string, h Handler) {
	g.Handle(pattern, []httpproto.Method{httpproto.MethodPost}, h)
}
func (g *RouteGroup) PUT(pattern string, h Handler) {
	g.Handle(pattern, []httpproto.Method{httpproto.MethodPut}, h)
}
func (g *RouteGroup) PATCH(pattern string, h Handler) {
	g.Handle(pattern, []httpproto.Method{httpproto.MethodPatch}, h)
}
func (g *RouteGroup) DELETE(pattern string, h Handler) {
	g.Handle(pattern, []httpproto.Method{httpproto.MethodDelete}, h)
}

func joinPrefix(prefix, pattern string) string {
	if prefix == "" {
		return pattern
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return prefix + pattern
}
