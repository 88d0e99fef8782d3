// Package dialogue runs one user turn at a time through the topic gate and,
// when the gate lets it through, through the completion client.
//
// Each submission moves the controller out of Idle into exactly one of
// Clarifying, Refusing, DemoReply or AwaitingCompletion, and back to Idle when
// the turn is done. AwaitingCompletion is the only state in which the
// controller waits on anything.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-go-golems/beauty-bot/pkg/completion"
	"github.com/go-go-golems/beauty-bot/pkg/conversation"
	"github.com/go-go-golems/beauty-bot/pkg/gate"
	"github.com/go-go-golems/beauty-bot/pkg/profile"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateIdle State = iota
	StateClarifying
	StateRefusing
	StateDemoReply
	StateAwaitingCompletion
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClarifying:
		return "clarifying"
	case StateRefusing:
		return "refusing"
	case StateDemoReply:
		return "demo-reply"
	case StateAwaitingCompletion:
		return "awaiting-completion"
	default:
		return "unknown"
	}
}

// ErrBusy is returned when a submission arrives while another one is still
// being handled.
var ErrBusy = errors.New("a submission is already in progress")

// Result describes how a submitted turn was handled. State is the state the
// turn went through before returning to idle. Err holds a completion failure,
// which has already been rendered.
type Result struct {
	Decision gate.Decision
	State    State
	Reply    string
	Appended bool
	Err      error
}

type Controller struct {
	store    *conversation.Store
	gate     *gate.Gate
	profile  *profile.Profile
	client   completion.Client
	renderer Renderer

	busy    atomic.Bool
	stateMu sync.Mutex
	state   State
}

type Option func(*Controller)

// WithClient enables live answers. Without a client the controller answers
// in demo mode.
func WithClient(client completion.Client) Option {
	return func(c *Controller) {
		c.client = client
	}
}

func WithRenderer(renderer Renderer) Option {
	return func(c *Controller) {
		c.renderer = renderer
	}
}

func WithGate(g *gate.Gate) Option {
	return func(c *Controller) {
		c.gate = g
	}
}

func WithStore(store *conversation.Store) Option {
	return func(c *Controller) {
		c.store = store
	}
}

func NewController(p *profile.Profile, options ...Option) *Controller {
	ret := &Controller{
		profile:  p,
		renderer: NopRenderer{},
		state:    StateIdle,
	}
	for _, option := range options {
		option(ret)
	}
	if ret.gate == nil {
		ret.gate = gate.New(p.Keywords)
	}
	if ret.store == nil {
		ret.store = conversation.NewStore(p.SystemPrompt)
	}

	return ret
}

func (c *Controller) Store() *conversation.Store {
	return c.store
}

func (c *Controller) IsDemoMode() bool {
	return c.client == nil
}

func (c *Controller) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = s
}

// Start shows the greeting. It is not part of the history.
func (c *Controller) Start() {
	if c.profile.Intro != "" {
		c.renderer.Append(c.profile.Intro, KindIntro)
	}
}

// HandleSubmit processes one user turn. Blank input is ignored. The user turn
// is always recorded, and so are clarifying questions, refusals and non-empty
// model answers. Demo notices, empty answers and completion failures are only
// rendered. Completion failures are reported in Result.Err; the returned error
// is only ever ErrBusy.
func (c *Controller) HandleSubmit(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{State: StateIdle}, nil
	}

	if !c.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer c.busy.Store(false)
	defer c.setState(StateIdle)
	defer c.renderer.ClearInput()

	c.renderer.Append("You: "+text, KindUser)
	c.store.Append(conversation.RoleUser, text)

	decision := c.gate.Decide(text, c.store)
	log.Debug().
		Str("conversation_id", c.store.ID().String()).
		Str("decision", decision.String()).
		Int("turns", c.store.Len()).
		Msg("gate decided")

	switch decision {
	case gate.NeedsBudgetClarification:
		return c.reply(decision, StateClarifying, c.profile.Clarify), nil
	case gate.OffTopic:
		return c.reply(decision, StateRefusing, c.profile.Refusal), nil
	}

	if c.client == nil {
		c.setState(StateDemoReply)
		c.renderer.Append(c.profile.DemoNotice, KindAssistant)
		return Result{Decision: decision, State: StateDemoReply, Reply: c.profile.DemoNotice}, nil
	}

	return c.complete(ctx, decision), nil
}

// reply renders a canned answer and records it.
func (c *Controller) reply(decision gate.Decision, state State, text string) Result {
	c.setState(state)
	c.renderer.Append(text, KindAssistant)
	c.store.Append(conversation.RoleAssistant, text)
	return Result{Decision: decision, State: state, Reply: text, Appended: true}
}

func (c *Controller) complete(ctx context.Context, decision gate.Decision) Result {
	c.setState(StateAwaitingCompletion)

	pending := true
	c.renderer.ShowPending()
	clearPending := func() {
		if pending {
			pending = false
			c.renderer.ClearPending()
		}
	}
	defer clearPending()

	ret := Result{Decision: decision, State: StateAwaitingCompletion}

	text, err := c.client.Complete(ctx, c.store.FullHistory())
	clearPending()

	if err != nil {
		log.Warn().
			Err(err).
			Str("conversation_id", c.store.ID().String()).
			Msg("completion failed")
		ret.Err = err
		c.renderer.Append(fmt.Sprintf("Error: %s", errorReason(err)), KindError)
		return ret
	}

	if strings.TrimSpace(text) == "" {
		ret.Reply = c.profile.NoResponse
		c.renderer.Append(c.profile.NoResponse, KindAssistant)
		return ret
	}

	c.store.Append(conversation.RoleAssistant, text)
	ret.Reply = text
	ret.Appended = true
	c.renderer.Append(text, KindAssistant)

	return ret
}

func errorReason(err error) string {
	if ue, ok := completion.IsUpstreamError(err); ok {
		return fmt.Sprintf("API error: %d %s", ue.StatusCode, ue.Message)
	}
	if te, ok := completion.IsTransportError(err); ok {
		return te.Message
	}
	return err.Error()
}
