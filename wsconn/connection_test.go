package wsconn

import (
	"net"
	"testing"
	"time"

	"github.com/gogojames/lightweb/wsproto"
)

func pipeConnections(t *testing.T) (server net.Conn, client net.Conn) {
	t.Helper()
	server, client = net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

func TestSendTextWritesUnmaskedServerFrame(t *testing.T) {
	server, client := pipeConnections(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		frame, masked, err := wsproto.ReadFrame(client)
		if err != nil {
			t.Errorf("ReadFrame: %v", err)
			return
		}
		if masked {
			t.Errorf("server frames must not be masked")
		}
		if string(frame.Payload) != "hi" {
			t.Errorf("payload = %q", frame.Payload)
		}
	}()

	c := New(server, Handler{}, nil)
	if err := c.SendText("hi"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestReadOneDispatchesTextToHandler(t *testing.T) {
	server, client := pipeConnections(t)

	received := make(chan string, 1)
	c := New(server, Handler{
		OnText: func(conn *Connection, message string) { received <- message },
	}, nil)

	go func() {
		frame := &wsproto.Frame{Final: true, Opcode: wsproto.OpcodeText, Payload: []byte("ping")}
		_ = wsproto.WriteFrame(client, frame, true)
	}()

	if err := c.ReadOne(); err != nil {
		t.Fatalf("ReadOne: %v", err)
	}

	select {
	case msg := <-received:
		if msg != "ping" {
			t.Errorf("message = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestReadOneRejectsUnmaskedClientFrame(t *testing.T) {
	server, client := pipeConnections(t)
	c := New(server, Handler{}, nil)

	go func() {
		frame := &wsproto.Frame{Final: true, Opcode: wsproto.OpcodeText, Payload: []byte("x")}
		_ = wsproto.WriteFrame(client, frame, false)
	}()

	if err := c.ReadOne(); err == nil {
		t.Fatalf("expected error for unmasked frame")
	}
	if c.IsOpen() {
		t.Errorf("connection should be closed after protocol violation")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	server, _ := pipeConnections(t)
	c := New(server, Handler{}, nil)

	if err := c.Close(CloseNormal, "bye"); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(CloseNormal, "bye again"); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
	if c.IsOpen() {
		t.Errorf("connection should report closed")
	}
}
