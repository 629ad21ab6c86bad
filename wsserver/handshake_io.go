package wsserver

import (
	"bufio"
	"fmt"
	"net"
	"net/textproto"

	"github.com/gogojames/lightweb/httpproto"
)

// parseHandshakeRequest reads the upgrade request's request line and
// headers off conn, the same parser the HTTP server uses, and returns
// the buffered reader it used so any bytes already buffered past the
// header block (the start of the first WebSocket frame) survive into
// the upgraded connection instead of being silently dropped.
func parseHandshakeRequest(conn net.Conn) (*httpproto.Request, *bufio.Reader, error) {
	br := bufio.NewReader(conn)
	tr := textproto.NewReader(br)

	req, perr := httpproto.ParseRequest(tr, br, conn.RemoteAddr().String())
	if perr != nil {
		return nil, nil, fmt.Errorf("wsserver: parse handshake: %s", perr.Message)
	}
	return req, br, nil
}

func newBufWriter(conn net.Conn) *bufio.Writer {
	return bufio.NewWriter(conn)
}
