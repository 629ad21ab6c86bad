package main

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/gogojames/lightweb/control"
	"github.com/gogojames/lightweb/httpproto"
	"github.com/gogojames/lightweb/pool"
	"github.com/gogojames/lightweb/router"
)

// buildRouter assembles the demo HTTP surface: a welcome page, a health
// check, a JSON metrics dump, and an upload endpoint exercising the
// multipart decoder, all wrapped in the built-in logging/recovery/
// metrics middleware.
func buildRouter(metrics *control.Metrics, logger *zap.Logger, uploadDir string) *router.Router {
	uploadBufPool := pool.NewBufferPool()
	r := router.New()
	r.Use(router.Recovery(logger), router.Logging(logger), router.Metrics(metrics))

	r.GET("/", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Text("lightweb is running")
	})

	r.GET("/healthz", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Text("ok")
	})

	r.GET("/metrics", func(req *httpproto.Request) *httpproto.Response {
		snap := metrics.GetSnapshot()
		body, err := json.Marshal(snap)
		if err != nil {
			return httpproto.NewResponse().Status(500).Text("failed to encode metrics")
		}
		return httpproto.NewResponse().JSON(body)
	})

	r.GET("/users/:id", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Text(fmt.Sprintf("user id = %s", req.Param("id")))
	})

	r.POST("/upload", func(req *httpproto.Request) *httpproto.Response {
		parts, perr := httpproto.ParseMultipart(req.Body, req.ContentType(), uploadDir, uploadBufPool)
		if perr != nil {
			return httpproto.NewResponse().Status(perr.Code.WireStatus()).Text(perr.Message)
		}
		names := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.IsFile() {
				names = append(names, p.Filename)
			}
		}
		body, _ := json.Marshal(names)
		return httpproto.NewResponse().JSON(body)
	})

	api := r.Group("/api/v1")
	api.GET("/ping", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Text("pong")
	})

	return r
}
