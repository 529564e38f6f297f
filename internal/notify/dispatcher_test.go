package notify

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	defer d.Close()

	_, first := d.Subscribe()
	_, second := d.Subscribe()

	event := Event{Type: EventStateChanged, AssignmentID: uuid.New()}
	d.Publish(event)

	got := <-first
	assert.Equal(t, event.AssignmentID, got.AssignmentID)
	got = <-second
	assert.Equal(t, EventStateChanged, got.Type)
}

func TestPublishNeverBlocksOnSlowSession(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	defer d.Close()

	id, ch := d.Subscribe()
	defer d.Unsubscribe(id)

	// fill the buffer without draining; publishing must still return
	for i := 0; i < cap(ch)+10; i++ {
		d.Publish(Event{Type: EventStateChanged})
	}

	assert.Len(t, ch, cap(ch))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	defer d.Close()

	id, ch := d.Subscribe()
	d.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)

	// publishing after unsubscribe is a no-op for that session
	d.Publish(Event{Type: EventLotCompleted})
}

func TestCloseDrainsRegistry(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	_, ch := d.Subscribe()
	d.Close()

	_, open := <-ch
	require.False(t, open)

	// operations on a closed dispatcher are safe
	d.Publish(Event{Type: EventStateChanged})
	_, lateCh := d.Subscribe()
	_, open = <-lateCh
	assert.False(t, open)
	d.Close()
}
