package nfc

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Status words the bridge cares about.
const (
	SWSuccess         uint16 = 0x9000
	SWInsNotSupported uint16 = 0x6D00

	SW1Success byte = 0x90
	SW2Success byte = 0x00
)

// getUID is the PC/SC pseudo-APDU GET DATA (class FF, INS CA) with P1=P2=00,
// which asks the reader for the UID of the card in the field. Le=00 accepts
// any length.
var getUID = [5]byte{0xFF, 0xCA, 0x00, 0x00, 0x00}

// GetUIDCommand returns a fresh copy of the GET UID command.
func GetUIDCommand() []byte {
	cmd := getUID
	return cmd[:]
}

// Response is a response APDU split into body and status trailer.
type Response struct {
	Data []byte
	SW   uint16
}

// ParseResponse splits raw into body and trailer. A response without a full
// trailer is a protocol error tagged with op.
func ParseResponse(op string, raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, &NFCError{
			Code:    ErrCodeProtocol,
			Op:      op,
			Message: fmt.Sprintf("response of %d bytes has no status trailer", len(raw)),
		}
	}
	n := len(raw) - 2
	return Response{Data: raw[:n], SW: binary.BigEndian.Uint16(raw[n:])}, nil
}

func (r Response) SW1() byte { return byte(r.SW >> 8) }
func (r Response) SW2() byte { return byte(r.SW) }

// OK reports a 90 00 trailer.
func (r Response) OK() bool { return r.SW == SWSuccess }

// Check returns a protocol error carrying the trailer unless r is OK.
func (r Response) Check(op string) error {
	if r.OK() {
		return nil
	}
	return NewProtocolError(op, r.SW1(), r.SW2())
}

// FormatUID renders a UID as uppercase hex, two digits per byte.
func FormatUID(uid []byte) string {
	return strings.ToUpper(hex.EncodeToString(uid))
}
