//go:build windows

package keyboard

import (
	"fmt"
	"time"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	inputKeyboard = 1

	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004

	vkReturn = 0x0D
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// input mirrors INPUT for the keyboard member of the union; the padding
// covers the larger MOUSEINPUT member.
type input struct {
	inputType uint32
	ki        keybdInput
	_         uint64
}

// Keyboard injects key events with SendInput.
type Keyboard struct{}

// New checks that SendInput is available.
func New() (*Keyboard, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("load SendInput: %w", err)
	}
	return &Keyboard{}, nil
}

// SendText types text one UTF-16 unit at a time as unicode key events,
// independent of the active keyboard layout.
func (k *Keyboard) SendText(text string, interKeyDelay time.Duration) error {
	for i, unit := range utf16.Encode([]rune(text)) {
		if i > 0 {
			pause(interKeyDelay)
		}
		if err := sendInputs(
			input{inputType: inputKeyboard, ki: keybdInput{wScan: unit, dwFlags: keyeventfUnicode}},
			input{inputType: inputKeyboard, ki: keybdInput{wScan: unit, dwFlags: keyeventfUnicode | keyeventfKeyUp}},
		); err != nil {
			return err
		}
	}
	return nil
}

// PressEnter taps the Return key.
func (k *Keyboard) PressEnter() error {
	return sendInputs(
		input{inputType: inputKeyboard, ki: keybdInput{wVk: vkReturn}},
		input{inputType: inputKeyboard, ki: keybdInput{wVk: vkReturn, dwFlags: keyeventfKeyUp}},
	)
}

// Close is a no-op on Windows.
func (k *Keyboard) Close() error {
	return nil
}

func sendInputs(inputs ...input) error {
	n, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(n) != len(inputs) {
		return fmt.Errorf("SendInput injected %d of %d events: %w", n, len(inputs), err)
	}
	return nil
}
