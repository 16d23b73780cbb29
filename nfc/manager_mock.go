package nfc

import (
	"sync"
)

// MockManager is a test implementation of Manager that simulates reader
// discovery.
//
// Example:
//
//	dev := NewMockDevice("Mock Reader 0")
//	manager := NewMockManager(dev)
//	devices, _ := manager.ListDevices()
type MockManager struct {
	mu      sync.Mutex
	devices []*MockDevice
	listErr error
	closed  bool

	// CallLog tracks all method calls for verification in tests
	CallLog []string
}

// NewMockManager creates a MockManager exposing the given devices.
func NewMockManager(devices ...*MockDevice) *MockManager {
	return &MockManager{
		devices: devices,
		CallLog: make([]string, 0),
	}
}

// SetDevices replaces the simulated reader list. Call with no arguments to
// simulate unplugging every reader.
func (m *MockManager) SetDevices(devices ...*MockDevice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = devices
}

// SetListError makes ListDevices fail with err. Pass nil to clear.
func (m *MockManager) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// ListDevices returns the simulated reader list.
func (m *MockManager) ListDevices() ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallLog = append(m.CallLog, "ListDevices")

	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out, nil
}

// Close marks the manager closed.
func (m *MockManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "Close")
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockManager) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Calls returns a copy of the call log.
func (m *MockManager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}
