package nfc

import (
	"errors"
	"fmt"
	"testing"
)

func TestNFCError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *NFCError
		expected string
	}{
		{
			name: "with op and message",
			err: &NFCError{
				Code:    ErrCodeTransmitFailed,
				Op:      "Transmit",
				Message: "transmit failed",
			},
			expected: "Transmit: transmit failed",
		},
		{
			name: "with op, reader, and cause",
			err: &NFCError{
				Code:    ErrCodeConnectFailed,
				Op:      "Connect",
				Reader:  "ACS ACR122U",
				Message: "connect failed",
				Cause:   errors.New("sharing violation"),
			},
			expected: "Connect: connect failed (ACS ACR122U): sharing violation",
		},
		{
			name: "message only",
			err: &NFCError{
				Code:    ErrCodeNoReader,
				Message: "no reader available",
			},
			expected: "no reader available",
		},
		{
			name:     "protocol error",
			err:      NewProtocolError("ReadUID", 0x6A, 0x81),
			expected: "ReadUID: unexpected status 6A 81",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("NFCError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNFCError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewConnectError("Connect", "reader", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("NFCError.Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", err), cause) {
		t.Error("errors.Is should find the cause through a wrapped NFCError")
	}

	errNoCause := NewProtocolError("ReadUID", 0x63, 0x00)
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("NFCError.Unwrap() = %v, want nil", unwrapped)
	}
}

func TestNFCError_Is(t *testing.T) {
	err1 := &NFCError{Code: ErrCodeNoCard, Message: "test"}
	err2 := &NFCError{Code: ErrCodeNoCard, Message: "different message"}
	err3 := &NFCError{Code: ErrCodeCardRemoved, Message: "test"}

	if !err1.Is(err2) {
		t.Error("NFCError.Is() should return true for same code")
	}

	if err1.Is(err3) {
		t.Error("NFCError.Is() should return false for different code")
	}

	if err1.Is(errors.New("not an NFCError")) {
		t.Error("NFCError.Is() should return false for non-NFCError")
	}
}

func TestNewProtocolError(t *testing.T) {
	err := NewProtocolError("ReadUID", 0x6A, 0x81)

	if err.Code != ErrCodeProtocol {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeProtocol)
	}
	if err.SW1 != 0x6A || err.SW2 != 0x81 {
		t.Errorf("trailer = %02X %02X, want 6A 81", err.SW1, err.SW2)
	}
	if err.StatusWord() != 0x6A81 {
		t.Errorf("StatusWord() = %04X, want 6A81", err.StatusWord())
	}
}

func TestIsNoCardError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "NFCError with ErrCodeNoCard",
			err:      NewNoCardError("Connect", "reader", nil),
			expected: true,
		},
		{
			name:     "wrapped NFCError",
			err:      fmt.Errorf("poll: %w", NewNoCardError("Connect", "reader", nil)),
			expected: true,
		},
		{
			name:     "NFCError with different code",
			err:      NewConnectError("Connect", "reader", nil),
			expected: false,
		},
		{
			name:     "foreign string error - no smart card",
			err:      errors.New("scard: No smart card inserted."),
			expected: true,
		},
		{
			name:     "unrelated error",
			err:      errors.New("connection lost"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNoCardError(tt.err); got != tt.expected {
				t.Errorf("IsNoCardError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"reader lost", NewReaderLostError("Connect", "r", nil), IsReaderLostError, true},
		{"reader lost vs connect", NewConnectError("Connect", "r", nil), IsReaderLostError, false},
		{"no reader", NewNoReaderError("ListDevices", nil), IsNoReaderError, true},
		{"card removed", NewCardRemovedError("Transmit", nil), IsCardRemovedError, true},
		{"card removed vs transmit", NewTransmitError("Transmit", nil), IsCardRemovedError, false},
		{"protocol", NewProtocolError("ReadUID", 0x6A, 0x82), IsProtocolError, true},
		{"protocol nil", nil, IsProtocolError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("classifier(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	if code := GetErrorCode(NewTransmitError("Transmit", nil)); code != ErrCodeTransmitFailed {
		t.Errorf("GetErrorCode() = %v, want %v", code, ErrCodeTransmitFailed)
	}
	if code := GetErrorCode(errors.New("plain")); code != 0 {
		t.Errorf("GetErrorCode() = %v, want 0", code)
	}
	if s := ErrCodeProtocol.String(); s != "protocol" {
		t.Errorf("ErrCodeProtocol.String() = %q", s)
	}
}
