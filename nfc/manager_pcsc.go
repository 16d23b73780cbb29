package nfc

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ebfe/scard"
)

// DeviceEnumRetries is the number of attempts ListDevices makes to reach the
// PC/SC service before giving up.
const DeviceEnumRetries = 3

// pcscManager implements Manager using PC/SC via ebfe/scard
type pcscManager struct {
	ctx   *scard.Context
	ctxMu sync.Mutex
}

// NewManager returns a Manager backed by the host's PC/SC service.
func NewManager() Manager {
	return newPCSCManager()
}

// newPCSCManager creates a new PC/SC manager
func newPCSCManager() *pcscManager {
	return &pcscManager{}
}

// ensureContext ensures we have a valid PC/SC context
func (m *pcscManager) ensureContext() (*scard.Context, error) {
	m.ctxMu.Lock()
	defer m.ctxMu.Unlock()

	if m.ctx != nil {
		// A released or broken context reports itself through IsValid
		if ok, err := m.ctx.IsValid(); err == nil && ok {
			return m.ctx, nil
		}
		m.ctx.Release()
		m.ctx = nil
	}

	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("failed to establish PC/SC context: %w", err)
	}
	m.ctx = ctx
	return ctx, nil
}

// dropContext releases the context after a service-level failure so that the
// next call establishes a fresh one.
func (m *pcscManager) dropContext() {
	m.ctxMu.Lock()
	defer m.ctxMu.Unlock()
	if m.ctx != nil {
		m.ctx.Release()
		m.ctx = nil
	}
}

// ListDevices lists available PC/SC readers
func (m *pcscManager) ListDevices() ([]Device, error) {
	var lastErr error

	for i := 0; i < DeviceEnumRetries; i++ {
		ctx, err := m.ensureContext()
		if err != nil {
			lastErr = err
			time.Sleep(100 * time.Millisecond)
			continue
		}

		readers, err := ctx.ListReaders()
		if err != nil {
			// pcsc-lite reports an empty reader list as an error
			if errors.Is(err, scard.ErrNoReadersAvailable) {
				return nil, nil
			}
			lastErr = err
			m.dropContext()
			time.Sleep(100 * time.Millisecond)
			continue
		}

		readers = filterContactlessReaders(readers)
		devices := make([]Device, 0, len(readers))
		for _, r := range readers {
			devices = append(devices, &pcscDevice{manager: m, name: r})
		}
		return devices, nil
	}

	return nil, fmt.Errorf("failed to list PC/SC readers after %d retries: %w", DeviceEnumRetries, lastErr)
}

// Close releases the PC/SC context.
func (m *pcscManager) Close() error {
	m.ctxMu.Lock()
	defer m.ctxMu.Unlock()
	if m.ctx == nil {
		return nil
	}
	err := m.ctx.Release()
	m.ctx = nil
	return err
}

// isReaderLostPCSCError checks if a PC/SC error means the reader itself is
// gone rather than the card.
func isReaderLostPCSCError(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, scard.ErrReaderUnavailable),
		errors.Is(err, scard.ErrUnknownReader),
		errors.Is(err, scard.ErrNoReadersAvailable),
		errors.Is(err, scard.ErrNoService),
		errors.Is(err, scard.ErrServiceStopped):
		return true
	}
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "reader unavailable") ||
		strings.Contains(errLower, "unknown reader")
}

// isNoCardPCSCError checks if a connect error just means the field is empty.
func isNoCardPCSCError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, scard.ErrNoSmartcard) || errors.Is(err, scard.ErrRemovedCard) {
		return true
	}
	// Case-insensitive match for the various PC/SC error messages
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "no card") ||
		strings.Contains(errLower, "no smart card") ||
		strings.Contains(errLower, "card is not present") ||
		strings.Contains(errLower, "card not present")
}

// isCardRemovedPCSCError checks if a PC/SC error indicates the card was removed.
// Uses typed error checking first (most reliable), with string matching fallback.
func isCardRemovedPCSCError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, scard.ErrRemovedCard) {
		return true
	}
	if errors.Is(err, scard.ErrResetCard) {
		return true // Often means removed on macOS
	}
	if errors.Is(err, scard.ErrNoSmartcard) {
		return true
	}
	if errors.Is(err, scard.ErrUnpoweredCard) {
		return true
	}

	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "removed") ||
		strings.Contains(errLower, "reset") ||
		strings.Contains(errLower, "unpowered") ||
		strings.Contains(errLower, "no smart card") ||
		strings.Contains(errLower, "not transacted")
}

// filterContactlessReaders drops SAM slots from the reader list
func filterContactlessReaders(readers []string) []string {
	var filtered []string
	for _, r := range readers {
		if strings.Contains(strings.ToUpper(r), "SAM") {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
