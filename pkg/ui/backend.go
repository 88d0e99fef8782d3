package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/beauty-bot/pkg/dialogue"
	"github.com/go-go-golems/beauty-bot/pkg/events"
	"github.com/pkg/errors"
)

// ErrBackendClosed is reported for submissions that start after Close.
var ErrBackendClosed = errors.New("backend is closed")

// EventMsg carries one renderer event into the bubbletea loop.
type EventMsg struct {
	Event events.Event
}

// EventsClosedMsg is sent once the event channel is closed.
type EventsClosedMsg struct{}

// SubmitDoneMsg is sent when the controller finished handling a submission.
type SubmitDoneMsg struct {
	Result dialogue.Result
	Err    error
}

// Backend connects the bubbletea model to a dialogue controller. The controller
// renders through the event bus, the model only reads the bus.
type Backend struct {
	controller *dialogue.Controller
	events     <-chan events.Event

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewBackend(controller *dialogue.Controller, events <-chan events.Event) *Backend {
	return &Backend{
		controller: controller,
		events:     events,
	}
}

func (b *Backend) Submit(ctx context.Context, text string) tea.Cmd {
	return func() tea.Msg {
		if !b.begin() {
			return SubmitDoneMsg{Err: ErrBackendClosed}
		}
		defer b.inflight.Done()

		res, err := b.controller.HandleSubmit(ctx, text)
		return SubmitDoneMsg{Result: res, Err: err}
	}
}

func (b *Backend) begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.inflight.Add(1)
	return true
}

// Close turns away new submissions and waits for the running one, if any.
// bubbletea does not wait for commands when the program exits, so the
// conversation store is only safe to read after Close returns.
func (b *Backend) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
}

// WaitForEvent returns a command reading the next event. It has to be
// reissued after every EventMsg.
func (b *Backend) WaitForEvent() tea.Cmd {
	if b.events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-b.events
		if !ok {
			return EventsClosedMsg{}
		}
		return EventMsg{Event: e}
	}
}

func (b *Backend) IsDemoMode() bool {
	return b.controller.IsDemoMode()
}
