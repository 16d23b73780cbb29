package nfc

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
)

// MockDevice is a test implementation of Device that simulates a reader with
// a card field.
//
// A card is placed with PresentCard and taken away with RemoveCard. Sessions
// connected before a removal keep failing on Transmit even if a card is
// presented again, as a real reader resets the connection.
//
// Example:
//
//	dev := NewMockDevice("Mock Reader 0")
//	dev.PresentCard([]byte{0x04, 0x1A, 0x2B, 0x3C})
//	sess := dev.OpenConnection()
//	_ = sess.Connect()
type MockDevice struct {
	// DeviceName is the simulated reader name returned by String()
	DeviceName string

	mu         sync.Mutex
	uid        []byte
	present    bool
	generation int
	sw1, sw2   byte
	connectErr error
	panicNext  any
	txErr      error
	stats      MockStats

	// CallLog tracks all session calls for verification in tests
	CallLog []string
}

// MockStats counts the session operations performed on a MockDevice.
type MockStats struct {
	Opened       int
	Connected    int
	Disconnected int
	Transmits    int
}

// NewMockDevice creates a MockDevice with an empty field that answers the
// UID command with 90 00.
func NewMockDevice(name string) *MockDevice {
	return &MockDevice{
		DeviceName: name,
		sw1:        SW1Success,
		sw2:        SW2Success,
		CallLog:    make([]string, 0),
	}
}

func (m *MockDevice) String() string {
	return m.DeviceName
}

// PresentCard places a card with the given UID on the reader.
func (m *MockDevice) PresentCard(uid []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uid = append([]byte(nil), uid...)
	m.present = true
	m.generation++
}

// RemoveCard takes the card away from the reader.
func (m *MockDevice) RemoveCard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present = false
	m.generation++
}

// SetStatusWord sets the trailer the card answers the UID command with.
func (m *MockDevice) SetStatusWord(sw1, sw2 byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sw1, m.sw2 = sw1, sw2
}

// SetConnectError makes every Connect fail with err. Pass nil to clear.
func (m *MockDevice) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// PanicOnNextConnect makes the next Connect panic with v, as a misbehaving
// driver would.
func (m *MockDevice) PanicOnNextConnect(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicNext = v
}

// SetTransmitError makes every Transmit fail with err. Pass nil to clear.
func (m *MockDevice) SetTransmitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txErr = err
}

// Stats returns a snapshot of the operation counters.
func (m *MockDevice) Stats() MockStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Calls returns a copy of the call log.
func (m *MockDevice) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}

// OpenConnection returns a new unconnected mock session.
func (m *MockDevice) OpenConnection() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Opened++
	m.CallLog = append(m.CallLog, "OpenConnection")
	return &mockSession{dev: m, id: m.stats.Opened}
}

type mockSession struct {
	dev        *MockDevice
	id         int
	generation int
	connected  bool
}

func (s *mockSession) Connect() error {
	m := s.dev
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallLog = append(m.CallLog, fmt.Sprintf("Connect(%d)", s.id))

	if v := m.panicNext; v != nil {
		m.panicNext = nil
		panic(v)
	}
	if m.connectErr != nil {
		return m.connectErr
	}
	if !m.present {
		return NewNoCardError("Connect", m.DeviceName, nil)
	}
	s.connected = true
	s.generation = m.generation
	m.stats.Connected++
	return nil
}

func (s *mockSession) Transmit(cmd []byte) ([]byte, error) {
	m := s.dev
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallLog = append(m.CallLog, fmt.Sprintf("Transmit(%d)", s.id))
	m.stats.Transmits++

	if !s.connected {
		return nil, NewCardRemovedError("Transmit", errors.New("session not connected"))
	}
	if m.txErr != nil {
		return nil, m.txErr
	}
	if !m.present || m.generation != s.generation {
		return nil, NewCardRemovedError("Transmit", nil)
	}
	if !bytes.Equal(cmd, GetUIDCommand()) {
		return []byte{byte(SWInsNotSupported >> 8), byte(SWInsNotSupported & 0xFF)}, nil
	}

	resp := append([]byte(nil), m.uid...)
	return append(resp, m.sw1, m.sw2), nil
}

func (s *mockSession) Disconnect() error {
	m := s.dev
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallLog = append(m.CallLog, fmt.Sprintf("Disconnect(%d)", s.id))
	m.stats.Disconnected++
	s.connected = false
	return nil
}
