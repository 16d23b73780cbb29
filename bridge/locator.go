package bridge

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dotside-studios/rfid-pos-bridge/nfc"
)

// locate blocks until a reader is available and returns the first one.
// The configured startup delay is honoured once, on the first acquisition
// after Start, to let a reader enumerate after login. It returns nil when
// ctx is cancelled.
func (w *Worker) locate(ctx context.Context, first bool) nfc.Device {
	if first {
		if delay := w.Config().StartupDelay; delay > 0 {
			w.announce(WaitingForReader)
			w.logf(zerolog.InfoLevel, "[STATUS] waiting %.1fs before searching for reader...", delay.Seconds())
			if !w.sleep(ctx, delay) {
				return nil
			}
		}
	}

	for ctx.Err() == nil {
		devices, err := w.manager.ListDevices()
		switch {
		case err != nil && !nfc.IsNoReaderError(err):
			w.logf(zerolog.WarnLevel, "Listing readers failed: %v", err)
		case len(devices) > 0:
			dev := devices[0]
			w.announce(WaitingForCard)
			w.logf(zerolog.InfoLevel, "[STATUS] using reader: %s", dev)
			return dev
		}

		w.announce(WaitingForReader)
		w.logf(zerolog.WarnLevel, "[STATUS] no reader yet, retrying in %s.", w.timings.ReaderRetry)
		if !w.sleep(ctx, w.timings.ReaderRetry) {
			return nil
		}
	}
	return nil
}
