package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotside-studios/rfid-pos-bridge/bridge"
	"github.com/dotside-studios/rfid-pos-bridge/buildinfo"
	"github.com/dotside-studios/rfid-pos-bridge/config"
	"github.com/dotside-studios/rfid-pos-bridge/nfc"
	"github.com/dotside-studios/rfid-pos-bridge/protocol"
)

// defaultStopTimeout bounds how long Stop waits for the worker to exit.
const defaultStopTimeout = 2 * time.Second

var (
	errAgentClosed = errors.New("agent has quit")
	errWorkerBusy  = errors.New("previous worker is still shutting down")
)

// Feed receives the events forwarded to status feed clients.
type Feed interface {
	PublishStatus(protocol.StatusPayload)
	PublishLog(level, text string, at time.Time)
}

// AgentOptions configures an Agent.
type AgentOptions struct {
	Logger  zerolog.Logger
	Store   *config.Store
	Manager nfc.Manager
	Sink    bridge.Sink
	// Feed is optional.
	Feed Feed
	// Timings is passed to every worker; zero means bridge.DefaultTimings.
	Timings bridge.Timings
	// StopTimeout defaults to two seconds.
	StopTimeout time.Duration
}

// Agent owns the worker and the event queue shared by every worker it
// starts. Its methods are safe to call from the tray's goroutines.
type Agent struct {
	log     zerolog.Logger
	store   *config.Store
	manager nfc.Manager
	sink    bridge.Sink
	feed    Feed
	timings bridge.Timings
	events  *bridge.EventQueue

	stopTimeout time.Duration

	mu     sync.Mutex
	worker *bridge.Worker
	// abandoned is a worker that outlived Stop. It may still hold a card
	// session, so no new worker starts until it exits.
	abandoned *bridge.Worker
	closed    bool
}

func NewAgent(opts AgentOptions) *Agent {
	return &Agent{
		log:     opts.Logger,
		store:   opts.Store,
		manager: opts.Manager,
		sink:    opts.Sink,
		feed:    opts.Feed,
		timings: opts.Timings,
		events:  bridge.NewEventQueue(),

		stopTimeout: opts.StopTimeout,
	}
}

// Start loads the configuration afresh and starts a worker. Starting while
// a worker runs is a no-op.
func (a *Agent) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return errAgentClosed
	}
	if a.worker != nil && a.worker.Running() {
		a.logf(zerolog.InfoLevel, "Scanning is already running.")
		return nil
	}
	if a.abandoned != nil {
		select {
		case <-a.abandoned.Done():
			a.abandoned = nil
		default:
			a.logf(zerolog.WarnLevel, "Cannot start scanning: %v.", errWorkerBusy)
			return errWorkerBusy
		}
	}

	cfg, err := a.store.Load()
	if err != nil {
		a.logf(zerolog.ErrorLevel, "Loading configuration failed, keeping previous values: %v", err)
		cfg = a.store.Current()
	}

	w := bridge.NewWorker(bridge.Options{
		Manager: a.manager,
		Sink:    a.sink,
		Events:  a.events,
		Logger:  a.log,
		Config:  cfg,
		Timings: a.timings,
	})
	if err := w.Start(context.Background()); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	a.worker = w
	a.logf(zerolog.InfoLevel, "Scanning started.")
	return nil
}

// Stop cancels the worker and waits up to two seconds for it to exit.
func (a *Agent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Agent) stopLocked() {
	w := a.worker
	if w == nil {
		return
	}
	a.worker = nil

	timeout := a.stopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	w.Stop()
	if !w.Wait(timeout) {
		a.abandoned = w
		a.logf(zerolog.WarnLevel, "Worker did not stop within %s, abandoning it.", timeout)
	}
	a.events.Publish(bridge.StatusEvent(bridge.Stopped))
	a.logf(zerolog.InfoLevel, "Scanning stopped.")
}

// Reload re-reads the configuration file and hands it to the running worker.
func (a *Agent) Reload() error {
	cfg, err := a.store.Load()
	if err != nil {
		a.logf(zerolog.ErrorLevel, "Reloading configuration failed: %v", err)
		return err
	}
	a.ApplyConfig(cfg)
	return nil
}

// ApplyConfig hands cfg to the running worker. It is the callback for
// config.Store.Watch.
func (a *Agent) ApplyConfig(cfg config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.worker != nil {
		a.worker.Reload(cfg)
	}
	a.logf(zerolog.InfoLevel, "Configuration reloaded.")
}

// Quit stops the worker and closes the event queue. Pump returns once the
// remaining events are delivered.
func (a *Agent) Quit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.stopLocked()
	a.closed = true
	a.events.Close()
}

// Running reports whether a worker is active.
func (a *Agent) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.worker != nil && a.worker.Running()
}

// Pump delivers events until ctx is done or Quit has drained the queue. Log
// events are written to the logger, everything goes to the feed, and state
// changes are passed to onStatus, which may be nil.
func (a *Agent) Pump(ctx context.Context, onStatus func(bridge.State)) {
	events := a.events.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.dispatch(ev, onStatus)
		}
	}
}

func (a *Agent) dispatch(ev bridge.Event, onStatus func(bridge.State)) {
	switch ev.Kind {
	case bridge.KindLog:
		a.log.WithLevel(ev.Level).Msg(ev.Text)
		if a.feed != nil {
			a.feed.PublishLog(ev.Level.String(), ev.Text, ev.Time)
		}
	case bridge.KindStatus:
		a.log.Debug().Stringer("state", ev.State).Msg("status changed")
		if a.feed != nil {
			a.feed.PublishStatus(protocol.StatusPayload{
				State:   ev.State.String(),
				Running: ev.State != bridge.Stopped,
				Version: buildinfo.Version,
				At:      ev.Time.Format(time.RFC3339),
			})
		}
		if onStatus != nil {
			onStatus(ev.State)
		}
	}
}

// logf routes controller messages through the queue so they reach the feed
// in order with the worker's.
func (a *Agent) logf(level zerolog.Level, format string, args ...any) {
	a.events.Publish(bridge.LogEvent(level, fmt.Sprintf(format, args...)))
}
