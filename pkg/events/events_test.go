package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevelEvent_Frame(t *testing.T) {
	assert.Equal(t, "Event:NewLevel:0", NewLevelEvent(0).Frame())
	assert.Equal(t, "Event:NewLevel:100", NewLevelEvent(100).Frame())
}

func TestParse(t *testing.T) {
	e, err := Parse("Event:NewLevel:42")
	require.NoError(t, err)
	assert.Equal(t, Event{Name: NewLevel, Data: "42"}, e)

	l, err := e.Level()
	require.NoError(t, err)
	assert.Equal(t, 42, l)

	for _, bad := range []string{"x", "Event:", "Event::1", "Event:NewLevel"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}

	_, err = Event{Name: "Other", Data: "1"}.Level()
	assert.Error(t, err)
}

func TestHub_Broadcast(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	assert.Equal(t, 2, h.Len())

	assert.Equal(t, 2, h.Publish(NewLevelEvent(7)))
	assert.Equal(t, "Event:NewLevel:7", <-a)
	assert.Equal(t, "Event:NewLevel:7", <-b)

	h.Unsubscribe(b)
	assert.Equal(t, 1, h.Len())
	_, open := <-b
	assert.False(t, open)

	// Unsubscribing twice is harmless.
	h.Unsubscribe(b)
}

func TestHub_DropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()

	for i := 0; i < cap(ch); i++ {
		require.Equal(t, 1, h.Broadcast("x"))
	}
	assert.Equal(t, 0, h.Broadcast("overflow"))
	assert.Len(t, ch, cap(ch))
}

func TestHub_NilIsNoop(t *testing.T) {
	var h *Hub
	assert.Equal(t, 0, h.Broadcast("x"))
}
