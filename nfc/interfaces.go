package nfc

// Manager enumerates the card readers attached to the host.
type Manager interface {
	// ListDevices returns the readers currently available, in a stable order.
	// An empty list with a nil error means no reader is plugged in.
	ListDevices() ([]Device, error)

	// Close releases any resources held by the manager.
	Close() error
}

// Device is a handle to a single reader. Holding a Device does not keep any
// hardware resource open; a card connection only exists inside a Session.
type Device interface {
	String() string

	// OpenConnection prepares a connection attempt. Nothing is sent to the
	// reader until Connect is called.
	OpenConnection() Session
}

// Session is one connection to a card presented on a Device.
//
// Connect fails with an error satisfying IsNoCardError when the field is
// empty. Disconnect must be called once for every session returned by
// OpenConnection, whether Connect succeeded or not.
type Session interface {
	Connect() error
	Transmit(cmd []byte) ([]byte, error)
	Disconnect() error
}
