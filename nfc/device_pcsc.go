package nfc

import (
	"fmt"
	"sync"

	"github.com/ebfe/scard"
)

// pcscDevice is a reader known to the PC/SC service.
type pcscDevice struct {
	manager *pcscManager
	name    string
}

func (d *pcscDevice) String() string {
	return d.name
}

// OpenConnection returns an unconnected session on this reader.
func (d *pcscDevice) OpenConnection() Session {
	return &pcscSession{manager: d.manager, reader: d.name}
}

// pcscSession wraps a scard.Card for the lifetime of one card presentation.
type pcscSession struct {
	manager *pcscManager
	reader  string

	mu   sync.Mutex
	card *scard.Card
}

// Connect connects to the card in shared mode so other applications keep
// access to the reader.
func (s *pcscSession) Connect() error {
	ctx, err := s.manager.ensureContext()
	if err != nil {
		return NewReaderLostError("Connect", s.reader, err)
	}

	card, err := ctx.Connect(s.reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		switch {
		case isNoCardPCSCError(err):
			return NewNoCardError("Connect", s.reader, err)
		case isReaderLostPCSCError(err):
			s.manager.dropContext()
			return NewReaderLostError("Connect", s.reader, err)
		default:
			return NewConnectError("Connect", s.reader, err)
		}
	}

	s.mu.Lock()
	s.card = card
	s.mu.Unlock()
	return nil
}

// Transmit sends an APDU and returns the raw response including the status
// trailer.
func (s *pcscSession) Transmit(cmd []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.card == nil {
		return nil, NewCardRemovedError("Transmit", fmt.Errorf("session not connected"))
	}

	// Validate protocol before transmit - the scard library panics on invalid protocol
	proto := s.card.ActiveProtocol()
	if proto != scard.ProtocolT0 && proto != scard.ProtocolT1 {
		return nil, NewCardRemovedError("Transmit", fmt.Errorf("invalid card protocol"))
	}

	rx, err := s.card.Transmit(cmd)
	if err != nil {
		if isCardRemovedPCSCError(err) {
			return nil, NewCardRemovedError("Transmit", err)
		}
		return nil, NewTransmitError("Transmit", err)
	}
	return rx, nil
}

// Disconnect releases the card handle. Calling it on a session whose
// Connect failed is a no-op.
func (s *pcscSession) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.card == nil {
		return nil
	}
	err := s.card.Disconnect(scard.LeaveCard)
	s.card = nil
	if err != nil {
		return fmt.Errorf("pcscSession.Disconnect: %w", err)
	}
	return nil
}
