package router

import (
	"testing"

	"go.uber.org/zap"

	"github.com/gogojames/lightweb/control"
	"github.com/gogojames/lightweb/httpproto"
)

func newTestRequest(method httpproto.Method, path string) *httpproto.Request {
	return &httpproto.Request{Method: method, Path: path, Header: map[string][]string{}}
}

func TestRouteMatchWithParams(t *testing.T) {
	r := New()
	r.GET("/users/:id/messages/:messageId", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Status(200).Text(req.Param("id") + "/" + req.Param("messageId"))
	})

	resp := r.Route(newTestRequest(httpproto.MethodGet, "/users/42/messages/7"))
	if resp.StatusCode() != 200 {
		t.Fatalf("status = %d", resp.StatusCode())
	}
}

func TestRouteNotFoundVsMethodNotAllowed(t *testing.T) {
	r := New()
	r.GET("/widgets", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Status(200)
	})

	notFound := r.Route(newTestRequest(httpproto.MethodGet, "/nowhere"))
	if notFound.StatusCode() != 404 {
		t.Errorf("status = %d, want 404", notFound.StatusCode())
	}

	mismatch := r.Route(newTestRequest(httpproto.MethodPost, "/widgets"))
	if mismatch.StatusCode() != 405 {
		t.Errorf("status = %d, want 405", mismatch.StatusCode())
	}
}

func TestRouteMiddlewareOrdering(t *testing.T) {
	r := New()
	var order []string
	mwA := func(next Handler) Handler {
		return func(req *httpproto.Request) *httpproto.Response {
			order = append(order, "A")
			return next(req)
		}
	}
	mwB := func(next Handler) Handler {
		return func(req *httpproto.Request) *httpproto.Response {
			order = append(order, "B")
			return next(req)
		}
	}
	r.Use(mwA, mwB)
	r.GET("/ping", func(req *httpproto.Request) *httpproto.Response {
		order = append(order, "handler")
		return httpproto.NewResponse().Status(200)
	})

	r.Route(newTestRequest(httpproto.MethodGet, "/ping"))
	if len(order) != 3 || order[0] != "A" || order[1] != "B" || order[2] != "handler" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestRoutePanicRecovered(t *testing.T) {
	r := New()
	r.GET("/boom", func(req *httpproto.Request) *httpproto.Response {
		panic("kaboom")
	})

	resp := r.Route(newTestRequest(httpproto.MethodGet, "/boom"))
	if resp.StatusCode() != 500 {
		t.Fatalf("status = %d, want 500", resp.StatusCode())
	}
}

func TestDispatchCustomExceptionRule(t *testing.T) {
	r := New()
	r.OnError(
		func(err *httpproto.Error) bool { return err.Code == httpproto.ErrCodeNotFound },
		func(err *httpproto.Error, req *httpproto.Request) *httpproto.Response {
			return httpproto.NewResponse().Status(404).Text("custom not found")
		},
	)

	resp := r.Route(newTestRequest(httpproto.MethodGet, "/missing"))
	if resp.StatusCode() != 404 {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if resp.BodyLen() != len("custom not found") {
		t.Errorf("BodyLen() = %d, want the custom rule's body", resp.BodyLen())
	}
}

func TestRouteGroupPrefixAndMiddleware(t *testing.T) {
	r := New()
	var hit bool
	group := r.Group("/api")
	group.Use(func(next Handler) Handler {
		return func(req *httpproto.Request) *httpproto.Response {
			hit = true
			return next(req)
		}
	})
	group.GET("/widgets", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Status(200)
	})

	resp := r.Route(newTestRequest(httpproto.MethodGet, "/api/widgets"))
	if resp.StatusCode() != 200 {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if !hit {
		t.Errorf("group middleware did not run")
	}
}

func TestMetricsMiddlewareRecordsStatus(t *testing.T) {
	r := New()
	m := control.New()
	r.Use(Metrics(m))
	r.GET("/ok", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Status(201)
	})

	r.Route(newTestRequest(httpproto.MethodGet, "/ok"))
	snap := m.GetSnapshot()
	if snap.RequestsTotal != 1 {
		t.Errorf("RequestsTotal = %d, want 1", snap.RequestsTotal)
	}
	if snap.ResponsesByStatus[201] != 1 {
		t.Errorf("ResponsesByStatus = %+v, want one 201 recorded", snap.ResponsesByStatus)
	}
}

func TestMiddlewareRunsOnNotFoundAndMethodNotAllowed(t *testing.T) {
	r := New()
	m := control.New()
	r.Use(Metrics(m))
	r.GET("/widgets", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Status(200)
	})

	r.Route(newTestRequest(httpproto.MethodGet, "/nowhere"))
	r.Route(newTestRequest(httpproto.MethodPost, "/widgets"))

	snap := m.GetSnapshot()
	if snap.RequestsTotal != 2 {
		t.Fatalf("RequestsTotal = %d, want 2 (middleware must run even when routing misses)", snap.RequestsTotal)
	}
	if snap.ResponsesByStatus[404] != 1 || snap.ResponsesByStatus[405] != 1 {
		t.Errorf("ResponsesByStatus = %+v, want one 404 and one 405 recorded", snap.ResponsesByStatus)
	}
}

func TestRecoveryMiddlewareCatchesPanic(t *testing.T) {
	logger := zap.NewNop()
	r := New()
	r.Use(Recovery(logger))
	r.GET("/boom", func(req *httpproto.Request) *httpproto.Response {
		panic("nope")
	})

	resp := r.Route(newTestRequest(httpproto.MethodGet, "/boom"))
	if resp.StatusCode() != 500 {
		t.Fatalf("status = %d, want 500", resp.StatusCode())
	}
}
