package wsproto

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := &Frame{Final: true, Opcode: OpcodeText, Payload: []byte("hello world")}
	encoded, err := EncodeFrame(f, false)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	decoded, masked, err := ReadFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if masked {
		t.Errorf("unexpected masked frame")
	}
	if decoded.Opcode != OpcodeText || string(decoded.Payload) != "hello world" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestMaskedRoundTrip(t *testing.T) {
	f := &Frame{Final: true, Opcode: OpcodeBinary, Payload: []byte{1, 2, 3, 4, 5}}
	encoded, err := EncodeFrame(f, true)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	decoded, masked, err := ReadFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !masked {
		t.Fatalf("expected masked frame")
	}
	if !bytes.Equal(decoded.Payload, f.Payload) {
		t.Errorf("payload = %v, want %v", decoded.Payload, f.Payload)
	}
}

func TestLargeFrameRejected(t *testing.T) {
	f := &Frame{Final: true, Opcode: OpcodeBinary, Payload: make([]byte, MaxFramePayload+1)}
	if _, err := EncodeFrame(f, false); err != ErrFrameTooLarge {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestIsControl(t *testing.T) {
	cases := []struct {
		opcode byte
		want   bool
	}{
		{OpcodeText, false},
		{OpcodeBinary, false},
		{OpcodeClose, true},
		{OpcodePing, true},
		{OpcodePong, true},
	}
	for _, c := range cases {
		f := &Frame{Opcode: c.opcode}
		if got := f.IsControl(); got != c.want {
			t.Errorf("IsControl(%x) = %v, want %v", c.opcode, got, c.want)
		}
	}
}
