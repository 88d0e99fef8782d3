package dialogue

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/go-go-golems/beauty-bot/pkg/completion"
	"github.com/go-go-golems/beauty-bot/pkg/conversation"
	"github.com/go-go-golems/beauty-bot/pkg/gate"
	"github.com/go-go-golems/beauty-bot/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   [][]conversation.Turn
	block   chan struct{}
	started chan struct{}
}

func (f *fakeClient) Complete(ctx context.Context, history []conversation.Turn) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, history)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return f.text, f.err
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type event struct {
	op   string
	text string
	kind Kind
}

type recordingRenderer struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingRenderer) record(e event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingRenderer) Append(text string, kind Kind) {
	r.record(event{op: "append", text: text, kind: kind})
}
func (r *recordingRenderer) ShowPending()  { r.record(event{op: "pending"}) }
func (r *recordingRenderer) ClearPending() { r.record(event{op: "clear-pending"}) }
func (r *recordingRenderer) ClearInput()   { r.record(event{op: "clear-input"}) }

func (r *recordingRenderer) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ret []string
	for _, e := range r.events {
		ret = append(ret, e.op)
	}
	return ret
}

func newTestController(client completion.Client) (*Controller, *recordingRenderer) {
	r := &recordingRenderer{}
	options := []Option{WithRenderer(r)}
	if client != nil {
		options = append(options, WithClient(client))
	}
	return NewController(profile.Default(), options...), r
}

func TestBlankSubmitIsIgnored(t *testing.T) {
	client := &fakeClient{text: "hi"}
	c, r := newTestController(client)

	res, err := c.HandleSubmit(context.Background(), "   \n\t")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, res.State)
	assert.Equal(t, 1, c.Store().Len())
	assert.Empty(t, r.events)
	assert.Equal(t, 0, client.callCount())
}

func TestOffTopicIsRefused(t *testing.T) {
	client := &fakeClient{text: "should not be used"}
	c, r := newTestController(client)
	p := profile.Default()

	res, err := c.HandleSubmit(context.Background(), "tell me about the weather")
	require.NoError(t, err)

	assert.Equal(t, gate.OffTopic, res.Decision)
	assert.Equal(t, StateRefusing, res.State)
	assert.Equal(t, p.Refusal, res.Reply)
	assert.Equal(t, 0, client.callCount())

	h := c.Store().FullHistory()
	require.Len(t, h, 3)
	assert.Equal(t, conversation.Turn{Role: conversation.RoleUser, Content: "tell me about the weather"}, h[1])
	assert.Equal(t, conversation.Turn{Role: conversation.RoleAssistant, Content: p.Refusal}, h[2])

	assert.Equal(t, []event{
		{op: "append", text: "You: tell me about the weather", kind: KindUser},
		{op: "append", text: p.Refusal, kind: KindAssistant},
		{op: "clear-input"},
	}, r.events)
	assert.Equal(t, StateIdle, c.State())
}

func TestRecommendationFlow(t *testing.T) {
	client := &fakeClient{text: "Try the CeraVe Foaming Cleanser."}
	c, _ := newTestController(client)
	p := profile.Default()

	res, err := c.HandleSubmit(context.Background(), "recommend a cleanser")
	require.NoError(t, err)
	assert.Equal(t, gate.NeedsBudgetClarification, res.Decision)
	assert.Equal(t, StateClarifying, res.State)
	assert.Equal(t, p.Clarify, c.Store().Last().Content)
	assert.Equal(t, 0, client.callCount())

	res, err = c.HandleSubmit(context.Background(), "recommend a cleanser under $15")
	require.NoError(t, err)
	assert.Equal(t, gate.Proceed, res.Decision)
	assert.Equal(t, StateAwaitingCompletion, res.State)
	assert.True(t, res.Appended)
	require.Equal(t, 1, client.callCount())

	sent := client.calls[0]
	assert.Equal(t, []conversation.Turn{
		{Role: conversation.RoleSystem, Content: p.SystemPrompt},
		{Role: conversation.RoleUser, Content: "recommend a cleanser"},
		{Role: conversation.RoleAssistant, Content: p.Clarify},
		{Role: conversation.RoleUser, Content: "recommend a cleanser under $15"},
	}, sent)

	assert.Equal(t, conversation.Turn{Role: conversation.RoleAssistant, Content: "Try the CeraVe Foaming Cleanser."}, c.Store().Last())
	assert.Equal(t, 5, c.Store().Len())
}

func TestSuccessfulCompletionRendering(t *testing.T) {
	client := &fakeClient{text: "Use SPF 50 daily."}
	c, r := newTestController(client)

	_, err := c.HandleSubmit(context.Background(), "  how often should I use sunscreen?  ")
	require.NoError(t, err)

	assert.Equal(t, "how often should I use sunscreen?", client.calls[0][1].Content)
	assert.Equal(t, []event{
		{op: "append", text: "You: how often should I use sunscreen?", kind: KindUser},
		{op: "pending"},
		{op: "clear-pending"},
		{op: "append", text: "Use SPF 50 daily.", kind: KindAssistant},
		{op: "clear-input"},
	}, r.events)
}

func TestEmptyCompletionIsNotAppended(t *testing.T) {
	client := &fakeClient{text: "  "}
	c, r := newTestController(client)

	res, err := c.HandleSubmit(context.Background(), "my skin is oily")
	require.NoError(t, err)

	assert.False(t, res.Appended)
	assert.Equal(t, "No response from the model.", res.Reply)
	assert.Equal(t, conversation.Turn{Role: conversation.RoleUser, Content: "my skin is oily"}, c.Store().Last())
	assert.Equal(t, []string{"append", "pending", "clear-pending", "append", "clear-input"}, r.ops())
}

func TestUpstreamErrorIsRenderedNotAppended(t *testing.T) {
	client := &fakeClient{err: &completion.UpstreamError{StatusCode: 429, Message: "Rate limit reached"}}
	c, r := newTestController(client)

	res, err := c.HandleSubmit(context.Background(), "my skin is oily")
	require.NoError(t, err)

	ue, ok := completion.IsUpstreamError(res.Err)
	require.True(t, ok)
	assert.Equal(t, 429, ue.StatusCode)
	assert.False(t, res.Appended)

	assert.Equal(t, conversation.Turn{Role: conversation.RoleUser, Content: "my skin is oily"}, c.Store().Last())
	assert.Equal(t, 2, c.Store().Len())

	last := r.events[len(r.events)-2]
	assert.Equal(t, KindError, last.kind)
	assert.Equal(t, "Error: API error: 429 Rate limit reached", last.text)
	assert.Equal(t, []string{"append", "pending", "clear-pending", "append", "clear-input"}, r.ops())
	assert.Equal(t, StateIdle, c.State())
}

func TestTransportErrorIsRendered(t *testing.T) {
	client := &fakeClient{err: &completion.TransportError{Message: "connection refused"}}
	c, r := newTestController(client)

	res, err := c.HandleSubmit(context.Background(), "my skin is oily")
	require.NoError(t, err)
	require.Error(t, res.Err)

	found := false
	for _, e := range r.events {
		if e.kind == KindError {
			found = true
			assert.Equal(t, "Error: connection refused", e.text)
		}
	}
	assert.True(t, found)
	assert.Equal(t, 2, c.Store().Len())
}

func TestDemoModeRendersNoticeOnly(t *testing.T) {
	c, r := newTestController(nil)
	p := profile.Default()

	assert.True(t, c.IsDemoMode())

	res, err := c.HandleSubmit(context.Background(), "my skin is oily")
	require.NoError(t, err)
	assert.Equal(t, StateDemoReply, res.State)
	assert.Equal(t, p.DemoNotice, res.Reply)
	assert.False(t, res.Appended)
	assert.Equal(t, 2, c.Store().Len())
	assert.Equal(t, []event{
		{op: "append", text: "You: my skin is oily", kind: KindUser},
		{op: "append", text: p.DemoNotice, kind: KindAssistant},
		{op: "clear-input"},
	}, r.events)
}

func TestClarifyingTurnCountsAsBudget(t *testing.T) {
	client := &fakeClient{text: "Here are some options."}
	c, _ := newTestController(client)

	res, err := c.HandleSubmit(context.Background(), "which serum is best?")
	require.NoError(t, err)
	assert.Equal(t, gate.NeedsBudgetClarification, res.Decision)

	res, err = c.HandleSubmit(context.Background(), "which serum is best?")
	require.NoError(t, err)
	assert.Equal(t, gate.Proceed, res.Decision)
	assert.Equal(t, 1, client.callCount())
}

func TestConcurrentSubmitIsRejected(t *testing.T) {
	client := &fakeClient{
		text:    "done",
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	c, _ := newTestController(client)

	done := make(chan Result)
	go func() {
		res, err := c.HandleSubmit(context.Background(), "my skin is oily")
		assert.NoError(t, err)
		done <- res
	}()

	<-client.started
	assert.Equal(t, StateAwaitingCompletion, c.State())
	before := c.Store().Len()

	_, err := c.HandleSubmit(context.Background(), "my skin is dry")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, before, c.Store().Len())

	close(client.block)
	res := <-done
	assert.True(t, res.Appended)
	assert.Equal(t, 1, client.callCount())

	_, err = c.HandleSubmit(context.Background(), "tell me about the weather")
	assert.NoError(t, err)
}

func TestStartRendersIntro(t *testing.T) {
	c, r := newTestController(nil)
	c.Start()

	require.Len(t, r.events, 1)
	assert.Equal(t, KindIntro, r.events[0].kind)
	assert.Equal(t, profile.Default().Intro, r.events[0].text)
	assert.Equal(t, 1, c.Store().Len())
}

func TestWriterRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriterRenderer(&buf)

	r.Append("You: hi", KindUser)
	r.Append("hello", KindAssistant)
	r.ShowPending()
	r.ClearPending()
	r.Append("boom", KindError)
	r.ClearInput()

	assert.Equal(t, "hello\n...\n! boom\n", buf.String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting-completion", StateAwaitingCompletion.String())
	assert.Equal(t, "unknown", State(42).String())
}
