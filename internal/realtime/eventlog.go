package realtime

import (
	"sync"
	"time"

	"github.com/joelikeyan/Open-world-game/internal/models"
)

// DefaultLogCapacity bounds the replay history when no capacity is given.
const DefaultLogCapacity = 1000

// EventLog is a bounded, time-ordered buffer of broadcast events. Appending
// past capacity evicts the oldest entry. Insertion order is chronological
// order: timestamps are assigned here, at append time.
type EventLog struct {
	mu       sync.Mutex
	capacity int
	events   []models.Event
	now      func() time.Time
}

func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &EventLog{
		capacity: capacity,
		events:   make([]models.Event, 0, capacity),
		now:      time.Now,
	}
}

// Append stamps the event with the current time, adds it to the tail and
// returns the stamped copy. The head is evicted once capacity is exceeded.
func (l *EventLog) Append(event models.Event) models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.Timestamp = l.now().UnixMilli()
	l.events = append(l.events, event)
	if len(l.events) > l.capacity {
		l.events = l.events[1:]
	}
	return event
}

// Query returns a copy of the retained events with Timestamp >= since,
// preserving order. A since of zero or less returns the full buffer.
func (l *EventLog) Query(since int64) []models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if since <= 0 {
		out := make([]models.Event, len(l.events))
		copy(out, l.events)
		return out
	}

	out := make([]models.Event, 0, len(l.events))
	for _, event := range l.events {
		if event.Timestamp >= since {
			out = append(out, event)
		}
	}
	return out
}

// Len reports the number of retained events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
