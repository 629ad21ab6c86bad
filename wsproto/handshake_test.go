package wsproto

import (
	"net/textproto"
	"testing"

	"github.com/gogojames/lightweb/httpproto"
)

func newUpgradeRequest() *httpproto.Request {
	return &httpproto.Request{
		Method: httpproto.MethodGet,
		Path:   "/ws",
		Header: textproto.MIMEHeader{
			"Connection":            {"Upgrade"},
			"Upgrade":               {"websocket"},
			"Sec-Websocket-Version": {"13"},
			"Sec-Websocket-Key":     {"dGhlIHNhbXBsZSBub25jZQ=="},
		},
	}
}

func TestValidateUpgradeAccepts(t *testing.T) {
	key, err := ValidateUpgrade(newUpgradeRequest())
	if err != nil {
		t.Fatalf("ValidateUpgrade: %v", err)
	}
	if key != "dGhlIHNhbXBsZSBub25jZQ==" {
		t.Errorf("key = %q", key)
	}
}

func TestAcceptKeyRFCExample(t *testing.T) {
	// RFC 6455 section 1.3 worked example.
	got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("AcceptKey = %q, want %q", got, want)
	}
}

func TestValidateUpgradeRejectsMissingKey(t *testing.T) {
	req := newUpgradeRequest()
	req.Header.Del("Sec-Websocket-Key")
	if _, err := ValidateUpgrade(req); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestValidateUpgradeRejectsBadVersion(t *testing.T) {
	req := newUpgradeRequest()
	req.Header.Set("Sec-Websocket-Version", "8")
	if _, err := ValidateUpgrade(req); err == nil {
		t.Fatalf("expected error for bad version")
	}
}
