package htserver

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gogojames/lightweb/control"
	"github.com/gogojames/lightweb/httpproto"
	"github.com/gogojames/lightweb/router"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestServerServesSimpleGET(t *testing.T) {
	r := router.New()
	r.GET("/hello", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Status(200).Text("hi " + req.QueryValue("name"))
	})

	cfg := DefaultConfig()
	cfg.ListenAddr = freeAddr(t)
	metrics := control.New()
	srv := New(cfg, r, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()
	waitForListener(t, cfg.ListenAddr)

	conn, err := net.Dial("tcp", cfg.ListenAddr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /hello?name=world HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	tr := textproto.NewReader(bufio.NewReader(conn))
	statusLine, err := tr.ReadLine()
	if err != nil {
		t.Fatalf("reading status line: %v", err)
	}
	if !strings.Contains(statusLine, "200") {
		t.Fatalf("status line = %q", statusLine)
	}

	cancel()
	srv.Shutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerRejectsViaPreFilter(t *testing.T) {
	r := router.New()
	r.GET("/hello", func(req *httpproto.Request) *httpproto.Response {
		return httpproto.NewResponse().Status(200).Text("should not run")
	})

	cfg := DefaultConfig()
	cfg.ListenAddr = freeAddr(t)
	cfg.PreFilters = []func(*httpproto.Request, *httpproto.Response) bool{
		func(req *httpproto.Request, resp *httpproto.Response) bool {
			resp.Status(403).Text("blocked")
			return false
		},
	}
	srv := New(cfg, r, control.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()
	waitForListener(t, cfg.ListenAddr)

	conn, err := net.Dial("tcp", cfg.ListenAddr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	tr := textproto.NewReader(bufio.NewReader(conn))
	statusLine, err := tr.ReadLine()
	if err != nil {
		t.Fatalf("reading status line: %v", err)
	}
	if !strings.Contains(statusLine, "403") {
		t.Fatalf("status line = %q, want 403 (pre-filter should have short-circuited routing)", statusLine)
	}

	cancel()
	srv.Shutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", addr)
}
