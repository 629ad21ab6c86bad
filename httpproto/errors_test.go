package httpproto

import "testing"

func TestPayloadTooLargeWireStatusIs400(t *testing.T) {
	if got := ErrCodePayloadTooLarge.Status(); got != 413 {
		t.Errorf("Status() = %d, want 413 (logical classification unchanged)", got)
	}
	if got := ErrCodePayloadTooLarge.WireStatus(); got != 400 {
		t.Errorf("WireStatus() = %d, want 400 (surfaced on the wire)", got)
	}
}

func TestWireStatusMatchesStatusForOtherCodes(t *testing.T) {
	codes := []ErrorCode{
		ErrCodeBadRequest, ErrCodeForbidden, ErrCodeNotFound,
		ErrCodeMethodNotAllowed, ErrCodeUnsupportedMediaType, ErrCodeInternal,
	}
	for _, c := range codes {
		if c.WireStatus() != c.Status() {
			t.Errorf("code %v: WireStatus() = %d, Status() = %d, want equal", c, c.WireStatus(), c.Status())
		}
	}
}
