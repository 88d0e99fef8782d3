package dialogue

import (
	"fmt"
	"io"
	"sync"
)

// Kind tells the UI how to present an appended message.
type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
	KindIntro     Kind = "assistant-intro"
	KindError     Kind = "error"
)

// Renderer is the UI side of a conversation. The controller calls it from the
// goroutine running HandleSubmit.
type Renderer interface {
	Append(text string, kind Kind)
	ShowPending()
	ClearPending()
	ClearInput()
}

// WriterRenderer prints messages line by line, for non-interactive use.
type WriterRenderer struct {
	w  io.Writer
	mu sync.Mutex
}

var _ Renderer = (*WriterRenderer)(nil)

func NewWriterRenderer(w io.Writer) *WriterRenderer {
	return &WriterRenderer{w: w}
}

func (r *WriterRenderer) Append(text string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case KindUser:
		// the user already sees what they typed
		return
	case KindError:
		_, _ = fmt.Fprintf(r.w, "! %s\n", text)
	default:
		_, _ = fmt.Fprintf(r.w, "%s\n", text)
	}
}

func (r *WriterRenderer) ShowPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprint(r.w, "...\n")
}

func (r *WriterRenderer) ClearPending() {}

func (r *WriterRenderer) ClearInput() {}

// NopRenderer discards everything.
type NopRenderer struct{}

var _ Renderer = NopRenderer{}

func (NopRenderer) Append(string, Kind) {}
func (NopRenderer) ShowPending()        {}
func (NopRenderer) ClearPending()       {}
func (NopRenderer) ClearInput()         {}
