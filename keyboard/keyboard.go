// Package keyboard types text into whatever window has focus by injecting
// synthetic key events at the operating system level.
//
// Every platform provides the same Keyboard type:
//
//	kb, err := keyboard.New()
//	if err != nil { ... }
//	defer kb.Close()
//	kb.SendText("199568823868?", 10*time.Millisecond)
//	kb.PressEnter()
package keyboard

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by New on platforms without an injection backend.
var ErrUnsupported = errors.New("keyboard injection not supported on this platform")

// pause sleeps between key strokes; zero or negative delays are skipped.
func pause(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
