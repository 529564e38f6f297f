// Package notify fans domain events out to live-monitoring sessions. The
// dispatcher owns the session registry; it is constructed at startup,
// passed by reference, and closed at shutdown.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventStateChanged = "assignment.state_changed"
	EventLotCompleted = "lot.completed"
)

type Event struct {
	Type            string    `json:"type"`
	AssignmentID    uuid.UUID `json:"assignment_id"`
	LotID           uuid.UUID `json:"lot_id"`
	OldState        string    `json:"old_state"`
	NewState        string    `json:"new_state"`
	LotStateChanged bool      `json:"lot_state_changed"`
	LotStatus       string    `json:"lot_status,omitempty"`
	At              time.Time `json:"at"`
}

type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan Event
	closed bool
	log    zerolog.Logger
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		subs: make(map[uuid.UUID]chan Event),
		log:  log,
	}
}

// Subscribe registers a monitoring session and returns its id and event
// channel. The channel is buffered; a slow consumer drops events rather
// than blocking publishers.
func (d *Dispatcher) Subscribe() (uuid.UUID, <-chan Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.New()
	ch := make(chan Event, 64)
	if d.closed {
		close(ch)
		return id, ch
	}
	d.subs[id] = ch
	return id, ch
}

func (d *Dispatcher) Unsubscribe(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ch, ok := d.subs[id]; ok {
		delete(d.subs, id)
		close(ch)
	}
}

// Publish delivers the event to every session without blocking.
func (d *Dispatcher) Publish(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}
	for id, ch := range d.subs {
		select {
		case ch <- event:
		default:
			d.log.Debug().Str("session", id.String()).Str("event", event.Type).Msg("dropping event for slow session")
		}
	}
}

func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	for id, ch := range d.subs {
		delete(d.subs, id)
		close(ch)
	}
}
