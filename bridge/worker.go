// Package bridge turns card taps on a contactless reader into keystrokes.
//
// A Worker runs one cancellable loop: find a reader, wait for a card, read
// its UID, decide whether and what to type, and recover from hardware
// failures. Progress is reported as Events on a Publisher.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotside-studios/rfid-pos-bridge/config"
	"github.com/dotside-studios/rfid-pos-bridge/nfc"
)

// ErrAlreadyRunning is returned by Start on a running worker.
var ErrAlreadyRunning = errors.New("worker already running")

// Sink types text into the focused application.
type Sink interface {
	SendText(text string, interKeyDelay time.Duration) error
	PressEnter() error
}

// Phase is the worker's position in its loop, exposed for diagnostics.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseAcquiringReader
	PhasePollingForCard
	PhaseReadingUID
	PhaseEmitting
	PhaseHoldingCard
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAcquiringReader:
		return "acquiring_reader"
	case PhasePollingForCard:
		return "polling_for_card"
	case PhaseReadingUID:
		return "reading_uid"
	case PhaseEmitting:
		return "emitting"
	case PhaseHoldingCard:
		return "holding_card"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Timings are the fixed waits of the loop.
type Timings struct {
	ReaderRetry   time.Duration
	CardPoll      time.Duration
	ErrorCooldown time.Duration
}

// DefaultTimings returns the production waits.
func DefaultTimings() Timings {
	return Timings{
		ReaderRetry:   5 * time.Second,
		CardPoll:      200 * time.Millisecond,
		ErrorCooldown: 500 * time.Millisecond,
	}
}

// Options configures a Worker.
type Options struct {
	Manager nfc.Manager
	Sink    Sink
	Events  Publisher
	Logger  zerolog.Logger
	Config  config.Config
	// Timings defaults to DefaultTimings when zero.
	Timings Timings
}

// Worker drives the reader loop in its own goroutine.
type Worker struct {
	manager nfc.Manager
	sink    Sink
	events  Publisher
	log     zerolog.Logger
	timings Timings

	cfg   atomic.Pointer[config.Config]
	phase atomic.Int32

	// Owned by the loop goroutine.
	announced    State
	hasAnnounced bool
	lastSeen     string

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker creates an idle worker.
func NewWorker(opts Options) *Worker {
	if opts.Timings == (Timings{}) {
		opts.Timings = DefaultTimings()
	}
	w := &Worker{
		manager: opts.Manager,
		sink:    opts.Sink,
		events:  opts.Events,
		log:     opts.Logger,
		timings: opts.Timings,
	}
	cfg := opts.Config.Normalized()
	w.cfg.Store(&cfg)
	return w
}

// Start runs the loop in a new goroutine until ctx is cancelled or Stop is
// called.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running.Store(true)

	go func(done chan struct{}) {
		defer close(done)
		defer w.running.Store(false)
		w.Run(ctx)
	}(w.done)

	return nil
}

// Stop requests cancellation and returns immediately. Use Wait or Done to
// observe the loop exiting.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
}

// Done returns a channel closed when the goroutine started by Start exits.
// It returns a closed channel if Start was never called.
func (w *Worker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return w.done
}

// Wait blocks until the loop exits or timeout elapses, and reports whether
// the loop exited.
func (w *Worker) Wait(timeout time.Duration) bool {
	select {
	case <-w.Done():
		return true
	case <-time.After(timeout):
		return false
	}
}

// Running reports whether the goroutine started by Start is alive.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Reload replaces the configuration used from the next encode decision on.
func (w *Worker) Reload(cfg config.Config) {
	cfg = cfg.Normalized()
	w.cfg.Store(&cfg)
}

// Config returns the snapshot currently in effect.
func (w *Worker) Config() config.Config {
	return *w.cfg.Load()
}

// Phase returns the loop's current phase.
func (w *Worker) Phase() Phase {
	return Phase(w.phase.Load())
}

func (w *Worker) setPhase(p Phase) {
	w.phase.Store(int32(p))
}

// Run executes the loop on the calling goroutine until ctx is cancelled.
// No error escapes: failures are reported as events and retried.
func (w *Worker) Run(ctx context.Context) {
	defer w.setPhase(PhaseStopped)

	var dev nfc.Device
	first := true

	for ctx.Err() == nil {
		if dev == nil {
			w.setPhase(PhaseAcquiringReader)
			dev = w.locate(ctx, first)
			first = false
			if dev == nil {
				return
			}
		}

		err := w.cycle(ctx, dev)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case nfc.IsReaderLostError(err):
			w.logf(zerolog.WarnLevel, "Reader %s lost: %v", dev, err)
			w.announce(WaitingForReader)
			dev = nil
			if !w.sleep(ctx, w.timings.ErrorCooldown) {
				return
			}
		default:
			w.logf(zerolog.ErrorLevel, "%v", err)
			w.lastSeen = ""
			if !w.sleep(ctx, w.timings.ErrorCooldown) {
				return
			}
		}
	}
}

// cycle handles one card presentation: wait for it, hold the session while
// it stays on the reader, and close the session exactly once.
func (w *Worker) cycle(ctx context.Context, dev nfc.Device) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()

	w.setPhase(PhasePollingForCard)
	w.announce(WaitingForCard)

	sess, err := w.waitForCard(ctx, dev)
	if err != nil || sess == nil {
		return err
	}
	defer w.closeSession(sess)

	return w.holdCard(ctx, sess)
}

func (w *Worker) closeSession(sess nfc.Session) {
	if err := sess.Disconnect(); err != nil {
		w.log.Debug().Err(err).Msg("disconnect failed")
	}
	w.lastSeen = ""
}

// announce publishes a status change unless s is already the announced state.
func (w *Worker) announce(s State) {
	if w.hasAnnounced && w.announced == s {
		return
	}
	w.announced = s
	w.hasAnnounced = true
	w.publish(StatusEvent(s))
}

func (w *Worker) logf(level zerolog.Level, format string, args ...any) {
	w.publish(LogEvent(level, fmt.Sprintf(format, args...)))
}

func (w *Worker) publish(ev Event) {
	if w.events != nil {
		w.events.Publish(ev)
	}
}

// sleep waits for d and reports false if ctx was cancelled first.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
