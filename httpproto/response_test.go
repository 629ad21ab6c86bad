package httpproto

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestResponseWriteTo(t *testing.T) {
	r := NewResponse().Status(404).Text("not found")

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := r.WriteTo(w); err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n") {
		t.Fatalf("unexpected status line: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 9\r\n") {
		t.Errorf("missing Content-Length header: %q", out)
	}
	if !strings.HasSuffix(out, "not found") {
		t.Errorf("missing body: %q", out)
	}
}

func TestResponseInvalidStatusClamped(t *testing.T) {
	r := NewResponse().Status(999)
	if r.StatusCode() != 500 {
		t.Errorf("StatusCode() = %d, want 500", r.StatusCode())
	}
}
