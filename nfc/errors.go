package nfc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of NFC error for programmatic handling.
type ErrorCode int

const (
	// Reader errors (100-199)
	ErrCodeNoReader ErrorCode = iota + 100
	ErrCodeReaderLost
	ErrCodeConnectFailed
)

const (
	// Card errors (200-299)
	ErrCodeNoCard ErrorCode = iota + 200
	ErrCodeCardRemoved
	ErrCodeTransmitFailed
	ErrCodeProtocol
)

// String returns a short name for the code, used in log fields.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNoReader:
		return "no_reader"
	case ErrCodeReaderLost:
		return "reader_lost"
	case ErrCodeConnectFailed:
		return "connect_failed"
	case ErrCodeNoCard:
		return "no_card"
	case ErrCodeCardRemoved:
		return "card_removed"
	case ErrCodeTransmitFailed:
		return "transmit_failed"
	case ErrCodeProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// NFCError provides structured error information for programmatic handling.
type NFCError struct {
	Code    ErrorCode
	Op      string // Operation that failed (e.g., "Connect", "Transmit")
	Reader  string // Optional: reader involved
	Message string // Human-readable message
	Cause   error  // Underlying error

	// SW1 and SW2 hold the status trailer for ErrCodeProtocol errors.
	SW1 byte
	SW2 byte
}

func (e *NFCError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Reader != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Reader)
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *NFCError) Unwrap() error {
	return e.Cause
}

func (e *NFCError) Is(target error) bool {
	if t, ok := target.(*NFCError); ok {
		return e.Code == t.Code
	}
	return false
}

// StatusWord returns the status trailer as a single 16-bit value.
func (e *NFCError) StatusWord() uint16 {
	return uint16(e.SW1)<<8 | uint16(e.SW2)
}

// NewNoReaderError creates an error for an empty reader list.
func NewNoReaderError(op string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeNoReader,
		Op:      op,
		Message: "no reader available",
		Cause:   cause,
	}
}

// NewNoCardError creates an error for a connection attempt on an empty field.
// This is an expected condition and should not be logged as a device error.
func NewNoCardError(op, reader string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeNoCard,
		Op:      op,
		Reader:  reader,
		Message: "no card present",
		Cause:   cause,
	}
}

// NewReaderLostError creates an error for a reader that disappeared.
func NewReaderLostError(op, reader string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeReaderLost,
		Op:      op,
		Reader:  reader,
		Message: "reader unavailable",
		Cause:   cause,
	}
}

// NewConnectError creates an error for connection failures other than an
// empty field or a lost reader.
func NewConnectError(op, reader string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeConnectFailed,
		Op:      op,
		Reader:  reader,
		Message: "connect failed",
		Cause:   cause,
	}
}

// NewCardRemovedError creates an error for a card that left the field
// while a session was active.
func NewCardRemovedError(op string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeCardRemoved,
		Op:      op,
		Message: "card removed",
		Cause:   cause,
	}
}

// NewTransmitError creates an error for transmit failures.
func NewTransmitError(op string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeTransmitFailed,
		Op:      op,
		Message: "transmit failed",
		Cause:   cause,
	}
}

// NewProtocolError creates an error for a response whose status trailer is
// not the success code.
func NewProtocolError(op string, sw1, sw2 byte) *NFCError {
	return &NFCError{
		Code:    ErrCodeProtocol,
		Op:      op,
		Message: fmt.Sprintf("unexpected status %02X %02X", sw1, sw2),
		SW1:     sw1,
		SW2:     sw2,
	}
}

// GetErrorCode extracts the ErrorCode from an error if it's an NFCError.
// Returns 0 if the error is not an NFCError.
func GetErrorCode(err error) ErrorCode {
	var nfcErr *NFCError
	if errors.As(err, &nfcErr) {
		return nfcErr.Code
	}
	return 0
}

func hasCode(err error, code ErrorCode) bool {
	return err != nil && GetErrorCode(err) == code
}

// IsNoCardError checks if an error indicates no card is present in the reader.
func IsNoCardError(err error) bool {
	if err == nil {
		return false
	}
	if hasCode(err, ErrCodeNoCard) {
		return true
	}
	// Fallback to string matching for errors from other stacks
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "no card present") ||
		strings.Contains(errLower, "no smart card") ||
		strings.Contains(errLower, "card is not present")
}

// IsNoReaderError checks if an error indicates no reader is attached.
func IsNoReaderError(err error) bool {
	return hasCode(err, ErrCodeNoReader)
}

// IsReaderLostError checks if an error indicates the reader went away.
func IsReaderLostError(err error) bool {
	return hasCode(err, ErrCodeReaderLost)
}

// IsCardRemovedError checks if an error indicates the card left the field.
func IsCardRemovedError(err error) bool {
	return hasCode(err, ErrCodeCardRemoved)
}

// IsProtocolError checks if an error carries an unexpected status trailer.
func IsProtocolError(err error) bool {
	return hasCode(err, ErrCodeProtocol)
}
