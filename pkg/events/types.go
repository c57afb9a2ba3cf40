package events

import (
	"fmt"
	"strconv"
	"strings"
)

// Event name constants
const (
	NewLevel = "NewLevel"
)

const framePrefix = "Event:"

// Event is a named notification sent to push clients as a text frame of
// the form "Event:<Name>:<Data>".
type Event struct {
	Name string
	Data string
}

// NewLevelEvent returns the event announcing a newly emitted level.
func NewLevelEvent(level int) Event {
	return Event{Name: NewLevel, Data: strconv.Itoa(level)}
}

// Frame encodes the event as a push frame.
func (e Event) Frame() string {
	return framePrefix + e.Name + ":" + e.Data
}

// Parse decodes a push frame. Frames that are not events, such as raw
// console characters, return an error.
func Parse(frame string) (Event, error) {
	rest, ok := strings.CutPrefix(frame, framePrefix)
	if !ok {
		return Event{}, fmt.Errorf("not an event frame: %q", frame)
	}
	name, data, ok := strings.Cut(rest, ":")
	if !ok || name == "" {
		return Event{}, fmt.Errorf("malformed event frame: %q", frame)
	}
	return Event{Name: name, Data: data}, nil
}

// Level returns the level carried by a NewLevel event.
func (e Event) Level() (int, error) {
	if e.Name != NewLevel {
		return 0, fmt.Errorf("event %s does not carry a level", e.Name)
	}
	return strconv.Atoi(e.Data)
}
