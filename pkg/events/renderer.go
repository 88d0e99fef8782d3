package events

import (
	"github.com/go-go-golems/beauty-bot/pkg/dialogue"
)

type EventType string

const (
	EventTypeAppend         EventType = "append"
	EventTypePending        EventType = "pending"
	EventTypePendingCleared EventType = "pending-cleared"
	EventTypeInputCleared   EventType = "input-cleared"
)

// Event is one call the dialogue controller made on its renderer.
type Event struct {
	Type     EventType     `json:"type"`
	Text     string        `json:"text,omitempty"`
	Kind     dialogue.Kind `json:"kind,omitempty"`
	Sequence uint64        `json:"-"`
}

// Renderer turns renderer calls into events on a Bus.
type Renderer struct {
	bus *Bus
}

var _ dialogue.Renderer = (*Renderer)(nil)

func NewRenderer(bus *Bus) *Renderer {
	return &Renderer{bus: bus}
}

func (r *Renderer) Append(text string, kind dialogue.Kind) {
	r.bus.PublishBlind(Event{Type: EventTypeAppend, Text: text, Kind: kind})
}

func (r *Renderer) ShowPending() {
	r.bus.PublishBlind(Event{Type: EventTypePending})
}

func (r *Renderer) ClearPending() {
	r.bus.PublishBlind(Event{Type: EventTypePendingCleared})
}

func (r *Renderer) ClearInput() {
	r.bus.PublishBlind(Event{Type: EventTypeInputCleared})
}
