// File: httpproto/multipart.go
// Author: momentics <momentics@gmail.com>
//
// Streaming multipart/form-data decoder. Each part is read directly off
// the request body through a pushback-aware boundary scanner instead of
// being buffered whole in memory; file parts are streamed straight to a
// temp file so an upload can exceed available RAM without exceeding
// MaxFileSize.

package httpproto

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogojames/lightweb/internal/bytesutil"
	"github.com/gogojames/lightweb/pool"
)

// MaxFileSize bounds a single uploaded file part.
const MaxFileSize = 100 * 1024 * 1024

// BlockedExtensions lists file extensions the server refuses to accept as
// uploads, regardless of declared content type.
var BlockedExtensions = map[string]bool{
	".exe": true, ".sh": true, ".bat": true,
	".cmd": true, ".com": true, ".scr": true,
}

var errPartTooLarge = errors.New("httpproto: part exceeds size limit")

// Part is one section of a multipart/form-data body.
type Part struct {
	Name     string
	Filename string // empty for a plain form field
	Value    []byte // populated for non-file fields
	TempFile string // populated for file fields; caller owns cleanup
	Size     int64
	MIMEType string
}

// IsFile reports whether this part was an uploaded file rather than a
// plain form field.
func (p Part) IsFile() bool { return p.Filename != "" }

// ParseMultipart decodes a multipart/form-data body, writing file parts to
// tempDir. On any error, temp files already created for this call are
// removed before the error is returned. bufPool, if non-nil, supplies the
// chunk buffer used to stream file parts to disk instead of letting
// io.Copy allocate one per part.
func ParseMultipart(body io.Reader, contentType, tempDir string, bufPool *pool.BufferPool) ([]Part, *Error) {
	boundary, err := extractBoundary(contentType)
	if err != nil {
		return nil, BadRequest("missing or invalid multipart boundary").WithContext("error", err.Error())
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, Internal("failed to prepare upload directory").WithContext("error", err.Error())
	}

	br := bufio.NewReaderSize(body, 16*1024)
	firstDelim := []byte("--" + boundary)
	midDelim := []byte("\r\n--" + boundary)

	var parts []Part
	cleanup := func() {
		for _, p := range parts {
			if p.TempFile != "" {
				os.Remove(p.TempFile)
			}
		}
	}
	fail := func(e *Error) ([]Part, *Error) {
		cleanup()
		return nil, e
	}

	// Discard any preamble up to and including the first delimiter line.
	if err := skipPastLiteral(br, firstDelim); err != nil {
		return fail(BadRequest("malformed multipart body: missing initial boundary"))
	}
	if done, err := consumeDelimiterTail(br); err != nil {
		return fail(BadRequest("malformed multipart body"))
	} else if done {
		return parts, nil // body was just the empty closing boundary
	}

	for {
		headerReader := textproto.NewReader(br)
		mimeHeader, herr := headerReader.ReadMIMEHeader()
		if herr != nil && len(mimeHeader) == 0 {
			return fail(BadRequest("malformed part headers"))
		}

		name, filename := parseContentDisposition(mimeHeader.Get("Content-Disposition"))
		part := Part{Name: name, Filename: filename}

		if filename != "" {
			if strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
				return fail(Forbidden("unsafe filename").WithContext("filename", filename))
			}
			ext := strings.ToLower(filepath.Ext(filename))
			if BlockedExtensions[ext] {
				return fail(Forbidden("file extension not allowed").WithContext("extension", ext))
			}

			tmp, cerr := os.CreateTemp(tempDir, "upload-*"+ext)
			if cerr != nil {
				return fail(Internal("failed to create temp file"))
			}
			n, serr := streamToBoundary(br, midDelim, tmp, MaxFileSize, bufPool)
			closeErr := tmp.Close()
			if serr != nil || closeErr != nil {
				os.Remove(tmp.Name())
				if serr == errPartTooLarge {
					return fail(PayloadTooLarge("uploaded file exceeds maximum size").WithContext("limit", MaxFileSize))
				}
				return fail(Internal("failed to store uploaded file"))
			}
			part.TempFile = tmp.Name()
			part.Size = n
			part.MIMEType = detectPartMIMEType(tmp.Name(), filename)
		} else {
			var buf bytes.Buffer
			n, serr := streamToBoundary(br, midDelim, &buf, MaxBodySize, nil)
			if serr != nil {
				if serr == errPartTooLarge {
					return fail(PayloadTooLarge("form field exceeds maximum size"))
				}
				return fail(BadRequest("malformed part body"))
			}
			part.Value = buf.Bytes()
			part.Size = n
		}

		parts = append(parts, part)

		done, derr := consumeDelimiterTail(br)
		if derr != nil {
			return fail(BadRequest("malformed multipart body"))
		}
		if done {
			break
		}
	}

	return parts, nil
}

// skipPastLiteral discards bytes up to and including the first occurrence
// of lit, which must appear on its own line per RFC 2046.
func skipPastLiteral(br *bufio.Reader, lit []byte) error {
	r := bytesutil.NewBoundaryReader(br, lit)
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	if !r.AtBoundary() {
		return errors.New("boundary not found")
	}
	_, err := br.Discard(len(lit))
	return err
}

// consumeDelimiterTail reads the two bytes following a boundary literal:
// "--" means the body is finished, and any other two bytes (normally
// "\r\n") are discarded as the line end before the next part. In the "--"
// case the line end after it is left unread.
func consumeDelimiterTail(br *bufio.Reader) (done bool, err error) {
	tail, err := br.Peek(2)
	if err != nil {
		return false, err
	}
	if string(tail) == "--" {
		if _, err := br.Discard(2); err != nil {
			return false, err
		}
		return true, nil
	}
	if _, err := br.Discard(2); err != nil { // the "\r\n" after the boundary
		return false, err
	}
	return false, nil
}

// streamToBoundary copies bytes from br into dst until delimiter is found,
// enforcing limit bytes, then discards the delimiter itself from br.
// When bufPool is non-nil, the copy reuses a pooled chunk buffer instead
// of the one-off buffer io.Copy would otherwise allocate.
func streamToBoundary(br *bufio.Reader, delimiter []byte, dst io.Writer, limit int64, bufPool *pool.BufferPool) (int64, error) {
	bound := bytesutil.NewBoundaryReader(br, delimiter)
	src := io.LimitReader(bound, limit+1)

	var n int64
	var err error
	if bufPool != nil {
		chunk := bufPool.Get(8 * 1024)
		defer chunk.Release()
		n, err = io.CopyBuffer(dst, src, chunk.Bytes())
	} else {
		n, err = io.Copy(dst, src)
	}
	if err != nil {
		return n, err
	}
	if n > limit {
		return n, errPartTooLarge
	}
	if !bound.AtBoundary() {
		return n, io.ErrUnexpectedEOF
	}
	if _, err := br.Discard(len(delimiter)); err != nil {
		return n, err
	}
	return n, nil
}

func extractBoundary(contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", err
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("no boundary parameter")
	}
	return boundary, nil
}

func parseContentDisposition(header string) (name, filename string) {
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return "", ""
	}
	return params["name"], params["filename"]
}

var extMIME = map[string]string{
	".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png",
	".gif": "image/gif", ".pdf": "application/pdf", ".txt": "text/plain",
	".html": "text/html", ".json": "application/json",
}

// detectMIMEType mirrors the original server's fallback chain: the
// platform MIME registry first, then a small built-in extension table,
// then a generic binary type.
func detectMIMEType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if t, ok := extMIME[ext]; ok {
		return t
	}
	return "application/octet-stream"
}

// detectPartMIMEType probes tempFile's actual content first, the way
// the original server's probeContentType(path) does, and only falls
// back to filename's extension mapping when sniffing can't tell
// anything apart from the generic binary type.
func detectPartMIMEType(tempFile, filename string) string {
	if sniffed, ok := probeContentType(tempFile); ok {
		return sniffed
	}
	return detectMIMEType(filename)
}

// probeContentType reads the first 512 bytes of path and sniffs its MIME
// type the way http.DetectContentType does. ok is false when the file
// couldn't be read or sniffing fell back to the generic
// "application/octet-stream" catch-all, signaling the caller should try
// the filename extension instead.
func probeContentType(path string) (mimeType string, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	var buf [512]byte
	n, _ := io.ReadFull(f, buf[:])
	if n == 0 {
		return "", false
	}

	sniffed := http.DetectContentType(buf[:n])
	if sniffed == "application/octet-stream" {
		return "", false
	}
	return sniffed, true
}
