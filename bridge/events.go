package bridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the coarse reader status shown to the user.
type State int

const (
	WaitingForReader State = iota
	WaitingForCard
	CardPresent
	// Stopped is published by the controller once a worker has exited.
	// Workers never announce it.
	Stopped
)

func (s State) String() string {
	switch s {
	case WaitingForReader:
		return "waiting"
	case WaitingForCard:
		return "scanning"
	case CardPresent:
		return "card"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind tags an Event.
type EventKind int

const (
	KindLog EventKind = iota
	KindStatus
)

// Event is a log line or a status change produced by the worker.
type Event struct {
	Kind  EventKind
	Time  time.Time
	Level zerolog.Level // KindLog only
	Text  string        // KindLog only
	State State         // KindStatus only
}

// LogEvent builds a KindLog event.
func LogEvent(level zerolog.Level, text string) Event {
	return Event{Kind: KindLog, Time: time.Now(), Level: level, Text: text}
}

// StatusEvent builds a KindStatus event.
func StatusEvent(s State) Event {
	return Event{Kind: KindStatus, Time: time.Now(), State: s}
}

// Publisher accepts events from the worker. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// EventQueue is an unbounded FIFO between one producer and one consumer.
// Publish never blocks; events are delivered on the channel returned by
// Events until Close, after which the remaining events are flushed and the
// channel is closed.
type EventQueue struct {
	mu      sync.Mutex
	pending []Event
	closed  bool

	notify chan struct{}
	out    chan Event
}

// NewEventQueue creates a queue and starts its delivery goroutine.
func NewEventQueue() *EventQueue {
	q := &EventQueue{
		notify: make(chan struct{}, 1),
		out:    make(chan Event),
	}
	go q.forward()
	return q
}

// Publish appends ev to the queue. Events published after Close are dropped.
func (q *EventQueue) Publish(ev Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
	q.wake()
}

// Events returns the delivery channel.
func (q *EventQueue) Events() <-chan Event {
	return q.out
}

// Close stops accepting events. It is safe to call more than once.
func (q *EventQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *EventQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *EventQueue) forward() {
	defer close(q.out)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, ev := range batch {
			q.out <- ev
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.notify
	}
}
