//go:build !windows && !linux

package keyboard

import "time"

// Keyboard is unavailable on this platform.
type Keyboard struct{}

// New always fails with ErrUnsupported.
func New() (*Keyboard, error) {
	return nil, ErrUnsupported
}

func (k *Keyboard) SendText(string, time.Duration) error { return ErrUnsupported }

func (k *Keyboard) PressEnter() error { return ErrUnsupported }

func (k *Keyboard) Close() error { return nil }
