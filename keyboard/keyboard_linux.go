//go:build linux

package keyboard

import (
	"fmt"
	"time"

	"github.com/bendahl/uinput"
)

const devicePath = "/dev/uinput"

// Keyboard is a virtual uinput keyboard. The user needs write access to
// /dev/uinput.
type Keyboard struct {
	dev uinput.Keyboard
}

// New creates the virtual keyboard device.
func New() (*Keyboard, error) {
	dev, err := uinput.CreateKeyboard(devicePath, []byte("rfid-pos-bridge"))
	if err != nil {
		return nil, fmt.Errorf("create uinput keyboard: %w", err)
	}
	// Give the input stack time to pick up the new device before the first
	// key event, otherwise the first strokes are dropped.
	time.Sleep(200 * time.Millisecond)
	return &Keyboard{dev: dev}, nil
}

// SendText types text on a US layout. Characters without a key mapping are
// rejected before anything is typed.
func (k *Keyboard) SendText(text string, interKeyDelay time.Duration) error {
	strokes := make([]stroke, 0, len(text))
	for _, r := range text {
		s, ok := usLayout[r]
		if !ok {
			return fmt.Errorf("no key for %q", r)
		}
		strokes = append(strokes, s)
	}

	for i, s := range strokes {
		if i > 0 {
			pause(interKeyDelay)
		}
		if err := k.tap(s); err != nil {
			return err
		}
	}
	return nil
}

// PressEnter taps the Enter key.
func (k *Keyboard) PressEnter() error {
	return k.dev.KeyPress(uinput.KeyEnter)
}

// Close destroys the virtual device.
func (k *Keyboard) Close() error {
	return k.dev.Close()
}

func (k *Keyboard) tap(s stroke) error {
	if !s.shift {
		return k.dev.KeyPress(s.key)
	}
	if err := k.dev.KeyDown(uinput.KeyLeftshift); err != nil {
		return err
	}
	err := k.dev.KeyPress(s.key)
	if upErr := k.dev.KeyUp(uinput.KeyLeftshift); err == nil {
		err = upErr
	}
	return err
}

type stroke struct {
	key   int
	shift bool
}

var usLayout = buildUSLayout()

func buildUSLayout() map[rune]stroke {
	m := map[rune]stroke{
		' ':  {uinput.KeySpace, false},
		'\t': {uinput.KeyTab, false},
		'-':  {uinput.KeyMinus, false},
		'_':  {uinput.KeyMinus, true},
		'=':  {uinput.KeyEqual, false},
		'+':  {uinput.KeyEqual, true},
		';':  {uinput.KeySemicolon, false},
		':':  {uinput.KeySemicolon, true},
		'\'': {uinput.KeyApostrophe, false},
		'"':  {uinput.KeyApostrophe, true},
		',':  {uinput.KeyComma, false},
		'<':  {uinput.KeyComma, true},
		'.':  {uinput.KeyDot, false},
		'>':  {uinput.KeyDot, true},
		'/':  {uinput.KeySlash, false},
		'?':  {uinput.KeySlash, true},
		'[':  {uinput.KeyLeftbrace, false},
		'{':  {uinput.KeyLeftbrace, true},
		']':  {uinput.KeyRightbrace, false},
		'}':  {uinput.KeyRightbrace, true},
		'\\': {uinput.KeyBackslash, false},
		'|':  {uinput.KeyBackslash, true},
		'`':  {uinput.KeyGrave, false},
		'~':  {uinput.KeyGrave, true},
		'!':  {uinput.Key1, true},
		'@':  {uinput.Key2, true},
		'#':  {uinput.Key3, true},
		'$':  {uinput.Key4, true},
		'%':  {uinput.Key5, true},
		'^':  {uinput.Key6, true},
		'&':  {uinput.Key7, true},
		'*':  {uinput.Key8, true},
		'(':  {uinput.Key9, true},
		')':  {uinput.Key0, true},
	}

	digits := []int{uinput.Key0, uinput.Key1, uinput.Key2, uinput.Key3, uinput.Key4,
		uinput.Key5, uinput.Key6, uinput.Key7, uinput.Key8, uinput.Key9}
	for i, key := range digits {
		m[rune('0'+i)] = stroke{key, false}
	}

	letters := []int{uinput.KeyA, uinput.KeyB, uinput.KeyC, uinput.KeyD, uinput.KeyE,
		uinput.KeyF, uinput.KeyG, uinput.KeyH, uinput.KeyI, uinput.KeyJ, uinput.KeyK,
		uinput.KeyL, uinput.KeyM, uinput.KeyN, uinput.KeyO, uinput.KeyP, uinput.KeyQ,
		uinput.KeyR, uinput.KeyS, uinput.KeyT, uinput.KeyU, uinput.KeyV, uinput.KeyW,
		uinput.KeyX, uinput.KeyY, uinput.KeyZ}
	for i, key := range letters {
		m[rune('a'+i)] = stroke{key, false}
		m[rune('A'+i)] = stroke{key, true}
	}
	return m
}
