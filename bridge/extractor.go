package bridge

import (
	"github.com/dotside-studios/rfid-pos-bridge/nfc"
)

// ReadUID sends GET UID over an active session and returns the identifier.
// A status trailer other than 90 00, a truncated response or an empty UID
// yields a protocol error. It does not retry.
func ReadUID(sess nfc.Session) ([]byte, error) {
	raw, err := sess.Transmit(nfc.GetUIDCommand())
	if err != nil {
		return nil, err
	}

	resp, err := nfc.ParseResponse("ReadUID", raw)
	if err != nil {
		return nil, err
	}
	if err := resp.Check("ReadUID"); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, &nfc.NFCError{
			Code:    nfc.ErrCodeProtocol,
			Op:      "ReadUID",
			Message: "empty uid",
			SW1:     resp.SW1(),
			SW2:     resp.SW2(),
		}
	}
	return resp.Data, nil
}
