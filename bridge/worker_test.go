package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotside-studios/rfid-pos-bridge/config"
	"github.com/dotside-studios/rfid-pos-bridge/nfc"
)

var testUID = []byte{0x04, 0x1A, 0x2B, 0x3C}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) statuses() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for _, ev := range r.events {
		if ev.Kind == KindStatus {
			out = append(out, ev.State)
		}
	}
	return out
}

func (r *recorder) logs(level zerolog.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Kind == KindLog && ev.Level == level {
			out = append(out, ev.Text)
		}
	}
	return out
}

func (r *recorder) hasLog(level zerolog.Level, substr string) bool {
	for _, l := range r.logs(level) {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

type fakeSink struct {
	mu        sync.Mutex
	texts     []string
	delays    []time.Duration
	enters    int
	panicOnce bool
	err       error
}

func (s *fakeSink) SendText(text string, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicOnce {
		s.panicOnce = false
		panic("keyboard exploded")
	}
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	s.delays = append(s.delays, delay)
	return nil
}

func (s *fakeSink) PressEnter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enters++
	return nil
}

func (s *fakeSink) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func (s *fakeSink) enterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enters
}

type harness struct {
	dev     *nfc.MockDevice
	manager *nfc.MockManager
	sink    *fakeSink
	events  *recorder
	worker  *Worker
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	h := &harness{
		dev:    nfc.NewMockDevice("Mock Reader 0"),
		sink:   &fakeSink{},
		events: &recorder{},
	}
	h.manager = nfc.NewMockManager(h.dev)
	h.worker = NewWorker(Options{
		Manager: h.manager,
		Sink:    h.sink,
		Events:  h.events,
		Logger:  zerolog.Nop(),
		Config:  cfg,
		Timings: Timings{
			ReaderRetry:   20 * time.Millisecond,
			CardPoll:      5 * time.Millisecond,
			ErrorCooldown: 10 * time.Millisecond,
		},
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.worker.Start(context.Background()))
	t.Cleanup(func() {
		h.worker.Stop()
		require.True(t, h.worker.Wait(time.Second), "worker did not stop")
		h.assertSessionsClosed(t)
		assertNoRepeatedStatus(t, h.events.statuses())
	})
}

func (h *harness) assertSessionsClosed(t *testing.T) {
	t.Helper()
	stats := h.dev.Stats()
	assert.Equal(t, stats.Opened, stats.Disconnected, "every opened session is disconnected exactly once")
}

func (h *harness) waitSent(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.sink.sent()) >= n }, 2*time.Second, time.Millisecond)
}

func (h *harness) waitStatuses(t *testing.T, want ...State) {
	t.Helper()
	require.Eventually(t, func() bool {
		got := h.events.statuses()
		return len(got) >= len(want) && equalStates(got[len(got)-len(want):], want)
	}, 2*time.Second, time.Millisecond)
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func assertNoRepeatedStatus(t *testing.T, states []State) {
	t.Helper()
	for i := 1; i < len(states); i++ {
		assert.NotEqual(t, states[i-1], states[i], "status %d repeats %v", i, states[i])
	}
}

func TestWorker_EmitsCard(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.PresentCard(testUID)
	h.start(t)

	h.waitSent(t, 1)
	assert.Equal(t, []string{"199568823868?"}, h.sink.sent())
	assert.Equal(t, 1, h.sink.enterCount())
	assert.Equal(t, []State{WaitingForCard, CardPresent}, h.events.statuses())
	assert.True(t, h.events.hasLog(zerolog.InfoLevel, "Card UID (hex): 041A2B3C"))
	assert.True(t, h.events.hasLog(zerolog.InfoLevel, "Sending: 199568823868?"))
}

func TestWorker_HeldCardTypedOnce(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.PresentCard(testUID)
	h.start(t)

	h.waitSent(t, 1)
	before := h.dev.Stats().Transmits
	time.Sleep(60 * time.Millisecond)

	assert.Len(t, h.sink.sent(), 1)
	assert.Greater(t, h.dev.Stats().Transmits, before, "held card is re-read")
	dups := 0
	for _, l := range h.events.logs(zerolog.InfoLevel) {
		if strings.Contains(l, "Duplicate UID 041A2B3C skipped") {
			dups++
		}
	}
	assert.Equal(t, 1, dups, "duplicate notice is logged once per session")
}

func TestWorker_RetapEmitsAgain(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.PresentCard(testUID)
	h.start(t)

	h.waitSent(t, 1)
	h.dev.RemoveCard()
	h.waitStatuses(t, WaitingForCard, CardPresent, WaitingForCard)

	h.dev.PresentCard(testUID)
	h.waitSent(t, 2)
	assert.Equal(t, []string{"199568823868?", "199568823868?"}, h.sink.sent())
}

func TestWorker_ReloadAppliesToNextDecision(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.PresentCard(testUID)
	h.start(t)
	h.waitSent(t, 1)

	cfg := posConfig()
	cfg.Prefix = "77"
	cfg.TypingInterval = 30 * time.Millisecond
	h.worker.Reload(cfg)
	assert.Equal(t, "77", h.worker.Config().Prefix)

	h.dev.RemoveCard()
	h.waitStatuses(t, WaitingForCard)
	h.dev.PresentCard(testUID)
	h.waitSent(t, 2)

	assert.Equal(t, "7768823868?", h.sink.sent()[1])
	h.sink.mu.Lock()
	assert.Equal(t, 30*time.Millisecond, h.sink.delays[1])
	h.sink.mu.Unlock()
}

func TestWorker_ProtocolErrorRecovers(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.SetStatusWord(0x6A, 0x81)
	h.dev.PresentCard(testUID)
	h.start(t)

	require.Eventually(t, func() bool {
		return h.events.hasLog(zerolog.ErrorLevel, "unexpected status 6A 81")
	}, 2*time.Second, time.Millisecond)
	assert.Empty(t, h.sink.sent())

	h.dev.SetStatusWord(0x90, 0x00)
	h.waitSent(t, 1)
	assert.Equal(t, "199568823868?", h.sink.sent()[0])
}

func TestWorker_TrackTooLongIsRejected(t *testing.T) {
	cfg := posConfig()
	cfg.Prefix = strings.Repeat("9", 30)
	h := newHarness(t, cfg)
	h.dev.PresentCard(testUID)
	h.start(t)

	require.Eventually(t, func() bool {
		return h.events.hasLog(zerolog.WarnLevel, "Track data has 38 digits (max 37)")
	}, 2*time.Second, time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	assert.Empty(t, h.sink.sent())
	assert.Len(t, h.events.logs(zerolog.WarnLevel), 1, "held card is warned about once")
	assert.Empty(t, h.events.logs(zerolog.ErrorLevel))
}

func TestWorker_WaitsForReader(t *testing.T) {
	cfg := posConfig()
	cfg.StartupDelay = 10 * time.Millisecond
	h := newHarness(t, cfg)
	h.manager.SetDevices()
	h.start(t)

	require.Eventually(t, func() bool {
		return h.events.hasLog(zerolog.WarnLevel, "no reader yet")
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, []State{WaitingForReader}, h.events.statuses())
	assert.True(t, h.events.hasLog(zerolog.InfoLevel, "before searching for reader"))
	assert.Equal(t, PhaseAcquiringReader, h.worker.Phase())

	h.dev.PresentCard(testUID)
	h.manager.SetDevices(h.dev)
	h.waitSent(t, 1)
	assert.Equal(t, []State{WaitingForReader, WaitingForCard, CardPresent}, h.events.statuses())
	assert.True(t, h.events.hasLog(zerolog.InfoLevel, "using reader: Mock Reader 0"))
}

func TestWorker_ListErrorIsRetried(t *testing.T) {
	h := newHarness(t, posConfig())
	h.manager.SetListError(errors.New("pcsc service down"))
	h.start(t)

	require.Eventually(t, func() bool {
		return h.events.hasLog(zerolog.WarnLevel, "pcsc service down")
	}, 2*time.Second, time.Millisecond)
	assert.Empty(t, h.events.logs(zerolog.ErrorLevel))

	h.manager.SetListError(nil)
	h.dev.PresentCard(testUID)
	h.waitSent(t, 1)
}

func TestWorker_ReaderLostIsReacquired(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.SetConnectError(nfc.NewReaderLostError("Connect", "Mock Reader 0", nil))
	h.start(t)

	require.Eventually(t, func() bool {
		n := 0
		for _, c := range h.manager.Calls() {
			if c == "ListDevices" {
				n++
			}
		}
		return n >= 3
	}, 2*time.Second, time.Millisecond)
	assert.True(t, h.events.hasLog(zerolog.WarnLevel, "Reader Mock Reader 0 lost"))

	h.dev.SetConnectError(nil)
	h.dev.PresentCard(testUID)
	h.waitSent(t, 1)
}

func TestWorker_ConnectErrorCoolsDown(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.SetConnectError(nfc.NewConnectError("Connect", "Mock Reader 0", errors.New("sharing violation")))
	h.start(t)

	require.Eventually(t, func() bool {
		return h.events.hasLog(zerolog.ErrorLevel, "sharing violation")
	}, 2*time.Second, time.Millisecond)

	h.dev.SetConnectError(nil)
	h.dev.PresentCard(testUID)
	h.waitSent(t, 1)
}

func TestWorker_ConnectPanicClosesSession(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.PresentCard(testUID)
	h.dev.PanicOnNextConnect("driver exploded")
	h.start(t)

	h.waitSent(t, 1)
	assert.True(t, h.events.hasLog(zerolog.ErrorLevel, "driver exploded"))

	stats := h.dev.Stats()
	assert.Equal(t, 2, stats.Opened)
	assert.Equal(t, 1, stats.Disconnected, "the session whose Connect panicked is closed")
}

func TestWorker_SinkPanicIsRecovered(t *testing.T) {
	h := newHarness(t, posConfig())
	h.sink.panicOnce = true
	h.dev.PresentCard(testUID)
	h.start(t)

	h.waitSent(t, 1)
	assert.True(t, h.events.hasLog(zerolog.ErrorLevel, "recovered from panic: keyboard exploded"))
}

func TestWorker_SinkErrorIsLogged(t *testing.T) {
	h := newHarness(t, posConfig())
	h.sink.err = errors.New("no input desktop")
	h.dev.PresentCard(testUID)
	h.start(t)

	require.Eventually(t, func() bool {
		return h.events.hasLog(zerolog.ErrorLevel, "typing payload: no input desktop")
	}, 2*time.Second, time.Millisecond)
}

func TestWorker_StopWhilePolling(t *testing.T) {
	h := newHarness(t, posConfig())
	require.NoError(t, h.worker.Start(context.Background()))

	require.Eventually(t, func() bool {
		return h.dev.Stats().Opened >= 3
	}, 2*time.Second, time.Millisecond)

	h.worker.Stop()
	require.True(t, h.worker.Wait(200*time.Millisecond), "worker must stop within one poll interval")
	assert.Equal(t, PhaseStopped, h.worker.Phase())
	assert.False(t, h.worker.Running())

	stats := h.dev.Stats()
	calls := len(h.dev.Calls())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stats, h.dev.Stats(), "no hardware calls after stop")
	assert.Len(t, h.dev.Calls(), calls)
	h.assertSessionsClosed(t)
}

func TestWorker_PhaseWhileHoldingCard(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.PresentCard(testUID)
	h.start(t)
	h.waitSent(t, 1)

	require.Eventually(t, func() bool {
		return h.worker.Phase() == PhaseHoldingCard
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, "holding_card", h.worker.Phase().String())

	h.dev.RemoveCard()
	require.Eventually(t, func() bool {
		return h.worker.Phase() == PhasePollingForCard
	}, 2*time.Second, time.Millisecond)
}

func TestWorker_StopWhileHoldingCard(t *testing.T) {
	h := newHarness(t, posConfig())
	h.dev.PresentCard(testUID)
	require.NoError(t, h.worker.Start(context.Background()))
	h.waitSent(t, 1)

	h.worker.Stop()
	require.True(t, h.worker.Wait(200*time.Millisecond))
	h.assertSessionsClosed(t)
}

func TestWorker_StartTwice(t *testing.T) {
	h := newHarness(t, posConfig())
	h.start(t)
	assert.ErrorIs(t, h.worker.Start(context.Background()), ErrAlreadyRunning)
	assert.True(t, h.worker.Running())
}

func TestWorker_RunReturnsOnCancelledContext(t *testing.T) {
	h := newHarness(t, posConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.worker.Run(ctx)
	assert.Equal(t, PhaseStopped, h.worker.Phase())
	assert.Empty(t, h.manager.Calls())
}
