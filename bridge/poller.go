package bridge

import (
	"context"

	"github.com/dotside-studios/rfid-pos-bridge/nfc"
)

// waitForCard polls dev until a card connects. An empty field is expected
// and retried every CardPoll; any other connect failure is returned. Every
// session that fails to connect is disconnected before the next attempt.
// It returns nil, nil when ctx is cancelled.
func (w *Worker) waitForCard(ctx context.Context, dev nfc.Device) (nfc.Session, error) {
	for ctx.Err() == nil {
		sess, err := connect(dev)
		if err == nil {
			return sess, nil
		}

		if !nfc.IsNoCardError(err) {
			return nil, err
		}
		if !w.sleep(ctx, w.timings.CardPoll) {
			return nil, nil
		}
	}
	return nil, nil
}

// connect opens a session and connects it. A session that does not connect,
// including one whose Connect panics, is disconnected before returning.
func connect(dev nfc.Device) (sess nfc.Session, err error) {
	sess = dev.OpenConnection()
	ok := false
	defer func() {
		if !ok {
			_ = sess.Disconnect()
		}
	}()

	if err := sess.Connect(); err != nil {
		return nil, err
	}
	ok = true
	return sess, nil
}
