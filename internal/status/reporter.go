// Package status carries events from session workers to the single
// consuming context. Workers only ever publish; the consumer drains the
// channel. A full buffer never blocks a worker.
package status

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// EventKind discriminates the event union.
type EventKind int

const (
	KindLog EventKind = iota
	KindStatus
	KindTerminal
)

func (k EventKind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindStatus:
		return "status"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a session.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Color classes understood by the consuming layer. The reporter does not
// interpret them; they map 1:1 to the presentation palette.
const (
	ColorWorking = "working"
	ColorSuccess = "success"
	ColorError   = "error"
	ColorIdle    = "idle"
)

// Event is a single atomic unit delivered to the consumer. Fields are
// populated according to Kind; unrelated fields stay zero.
type Event struct {
	Kind      EventKind `json:"kind"`
	RunID     string    `json:"run_id,omitempty"`
	ProfileID string    `json:"profile_id,omitempty"`
	Line      string    `json:"line,omitempty"`
	State     string    `json:"state,omitempty"`
	Color     string    `json:"color,omitempty"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Reporter is a one-directional fan-in channel from session workers to the
// consumer. Publish never blocks: when the buffer is full the event is
// dropped and counted.
type Reporter struct {
	ch      chan Event
	dropped atomic.Int64
}

func NewReporter(buffer int) *Reporter {
	if buffer <= 0 {
		buffer = 256
	}
	return &Reporter{ch: make(chan Event, buffer)}
}

// Events returns the receive side for the single consumer.
func (r *Reporter) Events() <-chan Event {
	return r.ch
}

// Publish enqueues an event without blocking. Returns false if the event
// was dropped because the consumer is behind.
func (r *Reporter) Publish(ev Event) bool {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case r.ch <- ev:
		return true
	default:
		n := r.dropped.Add(1)
		slog.Warn("status event dropped, consumer behind",
			"kind", ev.Kind.String(), "profile", ev.ProfileID, "dropped_total", n)
		return false
	}
}

// Dropped reports how many events were discarded since creation.
func (r *Reporter) Dropped() int64 {
	return r.dropped.Load()
}

// Log publishes a free-form log line attributed to a profile.
func (r *Reporter) Log(runID, profileID, line string) {
	r.Publish(Event{Kind: KindLog, RunID: runID, ProfileID: profileID, Line: line})
}

// Status publishes a per-profile state transition with its color class.
func (r *Reporter) Status(runID, profileID, state, color string) {
	r.Publish(Event{Kind: KindStatus, RunID: runID, ProfileID: profileID, State: state, Color: color})
}

// Terminal publishes the final result for a profile's session.
func (r *Reporter) Terminal(runID, profileID string, outcome Outcome, reason string) {
	r.Publish(Event{Kind: KindTerminal, RunID: runID, ProfileID: profileID, Outcome: outcome, Reason: reason})
}
