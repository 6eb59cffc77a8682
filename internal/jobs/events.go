package jobs

import (
	"encoding/json"
	"sync"
	"time"

	"glb-merger/internal/domain"
)

// EventKind names the channel an event is delivered on.
type EventKind string

const (
	EventKindLog    EventKind = "merge-log"
	EventKindStatus EventKind = "merge-status"
)

// Event is a sequenced payload consumed by UI subscribers. JobID is empty
// for batch-level log lines and encodes as a JSON null.
type Event struct {
	Seq        int64            `json:"seq"`
	Timestamp  time.Time        `json:"timestamp"`
	Kind       EventKind        `json:"kind"`
	JobID      string           `json:"-"`
	Type       domain.LogType   `json:"type,omitempty"`
	Text       string           `json:"text,omitempty"`
	Status     domain.JobStatus `json:"status,omitempty"`
	OutputPath string           `json:"outputPath,omitempty"`
}

// MarshalJSON always writes jobId, using null for batch-level events.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	var jobID *string
	if e.JobID != "" {
		jobID = &e.JobID
	}
	return json.Marshal(struct {
		plain
		JobID *string `json:"jobId"`
	}{plain: plain(e), JobID: jobID})
}

// LogEvent builds a merge-log event.
func LogEvent(jobID string, kind domain.LogType, text string) Event {
	return Event{Kind: EventKindLog, JobID: jobID, Type: kind, Text: text}
}

// StatusEvent builds a merge-status event.
func StatusEvent(jobID string, status domain.JobStatus, outputPath string) Event {
	return Event{Kind: EventKindStatus, JobID: jobID, Status: status, OutputPath: outputPath}
}

// Sink receives events produced by the scheduler.
type Sink interface {
	Publish(event Event) Event
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event Event) Event

// Publish calls f.
func (f SinkFunc) Publish(event Event) Event {
	return f(event)
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
