package bridge

import (
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/dotside-studios/rfid-pos-bridge/config"
	"github.com/dotside-studios/rfid-pos-bridge/nfc"
)

// MaxTrackDigits is the numeric capacity of a magnetic-stripe Track-2 field.
const MaxTrackDigits = 37

// Action is the outcome of Decide.
type Action int

const (
	// Skip means the UID repeats the last one typed for this card session.
	Skip Action = iota
	// Emit means Payload should be typed.
	Emit
	// Reject means the payload was computed but must not be typed.
	Reject
)

func (a Action) String() string {
	switch a {
	case Skip:
		return "skip"
	case Emit:
		return "emit"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is what the worker does with one UID read.
type Decision struct {
	Action     Action
	Payload    string
	PressEnter bool

	HexUID      string
	DecimalUID  string
	TrackDigits int
	Reason      string // Reject only
}

// HexUID renders uid as uppercase hex, two digits per byte.
func HexUID(uid []byte) string {
	return nfc.FormatUID(uid)
}

// DecimalUID renders uid as an unsigned big-endian integer in base 10.
func DecimalUID(uid []byte) string {
	return new(big.Int).SetBytes(uid).String()
}

// Decide turns a UID into a Skip, Emit or Reject decision. The track digit
// count covers the prefix and the decimal UID only; the semicolon sentinel
// and the suffix do not occupy Track-2 digits.
func Decide(uid []byte, cfg config.Config, lastSeen string) Decision {
	cfg = cfg.Normalized()

	d := Decision{
		HexUID:     HexUID(uid),
		DecimalUID: DecimalUID(uid),
	}
	if len(uid) == 0 {
		d.Action = Reject
		d.Reason = "empty uid"
		return d
	}
	if d.HexUID == lastSeen {
		d.Action = Skip
		return d
	}

	payload := cfg.Prefix + d.DecimalUID + cfg.Suffix
	if cfg.SendSemicolon {
		payload = ";" + payload
	}
	d.Payload = payload
	d.TrackDigits = utf8.RuneCountInString(cfg.Prefix) + len(d.DecimalUID)

	if d.TrackDigits > MaxTrackDigits {
		d.Action = Reject
		d.Reason = "track length exceeded"
		return d
	}

	d.Action = Emit
	d.PressEnter = cfg.SendEnter
	return d
}
