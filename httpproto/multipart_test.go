package httpproto

import (
	"os"
	"strings"
	"testing"

	"github.com/gogojames/lightweb/pool"
)

func TestParseMultipartFormFieldAndFile(t *testing.T) {
	boundary := "X-TEST-BOUNDARY"
	body := "" +
		"--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"title\"\r\n\r\n" +
		"hello\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"note.txt\"\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"file contents\r\n" +
		"--" + boundary + "--\r\n"

	tempDir := t.TempDir()
	parts, err := ParseMultipart(strings.NewReader(body), "multipart/form-data; boundary="+boundary, tempDir, pool.NewBufferPool())
	if err != nil {
		t.Fatalf("ParseMultipart error: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[0].IsFile() || string(parts[0].Value) != "hello" {
		t.Errorf("part 0 = %+v", parts[0])
	}
	if !parts[1].IsFile() {
		t.Fatalf("part 1 should be a file")
	}
	data, rerr := os.ReadFile(parts[1].TempFile)
	if rerr != nil {
		t.Fatalf("reading temp file: %v", rerr)
	}
	if string(data) != "file contents" {
		t.Errorf("temp file contents = %q", data)
	}
}

func TestParseMultipartDetectsMIMETypeFromContentOverExtension(t *testing.T) {
	boundary := "B"
	pngMagic := "\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"
	body := "" +
		"--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"photo.jpg\"\r\n\r\n" +
		pngMagic + "\r\n" +
		"--" + boundary + "--\r\n"

	parts, err := ParseMultipart(strings.NewReader(body), "multipart/form-data; boundary="+boundary, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("ParseMultipart error: %v", err)
	}
	if len(parts) != 1 || !parts[0].IsFile() {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[0].MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png (sniffed content should win over the .jpg extension)", parts[0].MIMEType)
	}
}

func TestParseMultipartRejectsBlockedExtension(t *testing.T) {
	boundary := "B"
	body := "" +
		"--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"virus.exe\"\r\n\r\n" +
		"MZ\r\n" +
		"--" + boundary + "--\r\n"

	_, err := ParseMultipart(strings.NewReader(body), "multipart/form-data; boundary="+boundary, t.TempDir(), nil)
	if err == nil || err.Code != ErrCodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestParseMultipartRejectsPathTraversal(t *testing.T) {
	boundary := "B"
	body := "" +
		"--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"../../etc/passwd\"\r\n\r\n" +
		"x\r\n" +
		"--" + boundary + "--\r\n"

	_, err := ParseMultipart(strings.NewReader(body), "multipart/form-data; boundary="+boundary, t.TempDir(), nil)
	if err == nil || err.Code != ErrCodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}
