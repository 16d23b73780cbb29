package bridge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dotside-studios/rfid-pos-bridge/config"
	"github.com/dotside-studios/rfid-pos-bridge/nfc"
)

// holdCard reads the UID of the card on sess and keeps re-reading it every
// CardPoll while the card stays on the reader, so a held card is typed once.
// It returns nil once the card leaves the field.
func (w *Worker) holdCard(ctx context.Context, sess nfc.Session) error {
	log := w.log.With().Str("session", uuid.NewString()).Logger()
	log.Debug().Msg("card session opened")
	defer log.Debug().Msg("card session closed")

	reads := 0
	skipLogged := false

	for ctx.Err() == nil {
		w.setPhase(PhaseReadingUID)
		uid, err := ReadUID(sess)
		if err != nil {
			if nfc.IsCardRemovedError(err) || (reads > 0 && !nfc.IsProtocolError(err)) {
				log.Debug().Err(err).Msg("card left the field")
				return nil
			}
			return fmt.Errorf("reading card: %w", err)
		}
		reads++

		if reads == 1 {
			w.announce(CardPresent)
		}

		// One snapshot per decision; a concurrent Reload applies to the next read.
		cfg := w.Config()
		d := Decide(uid, cfg, w.lastSeen)

		switch d.Action {
		case Skip:
			if !skipLogged {
				w.logf(zerolog.InfoLevel, "Duplicate UID %s skipped.", d.HexUID)
				skipLogged = true
			}
		case Reject:
			w.logf(zerolog.InfoLevel, "Card UID (hex): %s", d.HexUID)
			w.logf(zerolog.WarnLevel, "Track data has %d digits (max %d), not sending: %s", d.TrackDigits, MaxTrackDigits, d.Payload)
			w.lastSeen = d.HexUID
			skipLogged = true
		case Emit:
			w.logf(zerolog.InfoLevel, "Card UID (hex): %s", d.HexUID)
			w.logf(zerolog.InfoLevel, "Sending: %s", d.Payload)
			w.setPhase(PhaseEmitting)
			w.lastSeen = d.HexUID
			if err := w.emit(d, cfg); err != nil {
				return err
			}
		}

		w.setPhase(PhaseHoldingCard)
		if !w.sleep(ctx, w.timings.CardPoll) {
			return nil
		}
	}
	return nil
}

func (w *Worker) emit(d Decision, cfg config.Config) error {
	if w.sink == nil {
		return nil
	}
	if err := w.sink.SendText(d.Payload, cfg.TypingInterval); err != nil {
		return fmt.Errorf("typing payload: %w", err)
	}
	if d.PressEnter {
		if err := w.sink.PressEnter(); err != nil {
			return fmt.Errorf("pressing enter: %w", err)
		}
	}
	return nil
}
