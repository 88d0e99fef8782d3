package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/beauty-bot/pkg/dialogue"
	"github.com/go-go-golems/beauty-bot/pkg/events"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultWidth = 80

type entry struct {
	text string
	kind dialogue.Kind
}

type Model struct {
	ctx     context.Context
	backend *Backend

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model

	keyMap KeyMap
	style  *Style

	title         string
	markdownStyle string
	markdown      *glamour.TermRenderer

	entries []entry
	pending bool
	busy    bool
	err     error

	width  int
	height int
}

type ModelOption func(*Model)

func WithTitle(title string) ModelOption {
	return func(m *Model) {
		m.title = title
	}
}

// WithMarkdownStyle picks the glamour style used for assistant answers. "auto"
// follows the terminal background, an empty string disables markdown.
func WithMarkdownStyle(style string) ModelOption {
	return func(m *Model) {
		m.markdownStyle = style
	}
}

func NewModel(ctx context.Context, backend *Backend, options ...ModelOption) Model {
	ret := Model{
		ctx:           ctx,
		backend:       backend,
		keyMap:        DefaultKeyMap,
		style:         DefaultStyles(),
		title:         "BEAUTY ADVISOR",
		markdownStyle: "auto",
		viewport:      viewport.New(defaultWidth, 0),
		help:          help.New(),
		width:         defaultWidth,
	}
	for _, o := range options {
		o(&ret)
	}

	ret.input = textinput.New()
	ret.input.Placeholder = "Ask about skincare, makeup, haircare..."
	ret.input.CharLimit = 2000
	ret.input.Prompt = "❯ "
	ret.input.Focus()

	ret.spinner = spinner.New()
	ret.spinner.Spinner = spinner.Dot

	if backend != nil && backend.IsDemoMode() {
		ret.title += " (demo mode)"
	}

	ret.updateMarkdown()

	return ret
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.backend.WaitForEvent())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()

		case key.Matches(msg, m.keyMap.SubmitMessage):
			return m, m.submit()

		case key.Matches(msg, m.keyMap.ScrollUp), key.Matches(msg, m.keyMap.ScrollDown):
			if key.Matches(msg, m.keyMap.ScrollUp) {
				m.viewport.HalfPageUp()
			} else {
				m.viewport.HalfPageDown()
			}

		default:
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateMarkdown()
		m.recomputeSize()

	case EventMsg:
		cmds = append(cmds, m.applyEvent(msg.Event), m.backend.WaitForEvent())

	case EventsClosedMsg:
		log.Debug().Msg("event channel closed")

	case SubmitDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.err = msg.Err
		}

	case spinner.TickMsg:
		if m.pending {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if m.busy {
		m.err = dialogue.ErrBusy
		return nil
	}

	m.busy = true
	m.err = nil
	return m.backend.Submit(m.ctx, text)
}

func (m *Model) applyEvent(e events.Event) tea.Cmd {
	var cmd tea.Cmd

	switch e.Type {
	case events.EventTypeAppend:
		m.entries = append(m.entries, entry{text: e.Text, kind: e.Kind})
	case events.EventTypePending:
		m.pending = true
		cmd = m.spinner.Tick
	case events.EventTypePendingCleared:
		m.pending = false
	case events.EventTypeInputCleared:
		m.input.Reset()
	default:
		log.Warn().Str("type", string(e.Type)).Msg("unknown event")
	}

	m.refresh()
	return cmd
}

func (m *Model) updateMarkdown() {
	m.markdown = nil
	if m.markdownStyle == "" {
		return
	}

	styleOption := glamour.WithStylePath(m.markdownStyle)
	if m.markdownStyle == "auto" {
		styleOption = glamour.WithAutoStyle()
	}

	r, err := glamour.NewTermRenderer(styleOption, glamour.WithWordWrap(m.contentWidth()))
	if err != nil {
		log.Warn().Err(err).Str("style", m.markdownStyle).Msg("could not create markdown renderer")
		return
	}
	m.markdown = r
}

func (m Model) contentWidth() int {
	w, _ := m.style.Assistant.GetFrameSize()
	ret := m.width - w
	if ret < 10 {
		ret = 10
	}
	return ret
}

func (m *Model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	inputHeight := lipgloss.Height(m.inputView())
	helpHeight := lipgloss.Height(m.help.View(m.keyMap))

	newHeight := m.height - headerHeight - inputHeight - helpHeight
	if newHeight < 0 {
		newHeight = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = newHeight
	m.viewport.YPosition = headerHeight

	h, _ := m.style.Input.GetFrameSize()
	m.input.Width = m.width - h - lipgloss.Width(m.input.Prompt) - 1

	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.messageView())
	m.viewport.GotoBottom()
}

func (m Model) headerView() string {
	return m.style.Header.Render(m.title)
}

func (m Model) renderEntry(e entry) string {
	width := m.contentWidth()

	switch e.kind {
	case dialogue.KindUser:
		return m.style.User.Render(wordwrap.String(e.text, width))
	case dialogue.KindError:
		return m.style.Error.Width(width).Render(wordwrap.String(e.text, width))
	case dialogue.KindIntro:
		return m.style.Intro.Width(width).Render(wordwrap.String(e.text, width))
	}

	text := e.text
	if m.markdown != nil {
		rendered, err := m.markdown.Render(e.text)
		if err == nil {
			text = strings.Trim(rendered, "\n")
		}
	} else {
		text = wordwrap.String(text, width)
	}
	return m.style.Assistant.Width(width).Render(text)
}

func (m Model) messageView() string {
	views := make([]string, 0, len(m.entries)+1)
	for _, e := range m.entries {
		views = append(views, m.renderEntry(e))
	}
	if m.pending {
		views = append(views, m.style.Pending.Render(m.spinner.View()+" thinking..."))
	}
	return strings.Join(views, "\n")
}

func (m Model) inputView() string {
	v := m.style.Input.Render(m.input.View())
	if m.err != nil {
		v = m.style.Error.Render(errors.Cause(m.err).Error()) + "\n" + v
	}
	return v
}

func (m Model) View() string {
	return m.headerView() + "\n" +
		m.viewport.View() + "\n" +
		m.inputView() + "\n" +
		m.help.View(m.keyMap)
}

// Transcript returns the rendered entries as plain text, one per line.
func (m Model) Transcript() []string {
	ret := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		ret = append(ret, e.text)
	}
	return ret
}

func (m Model) IsPending() bool {
	return m.pending
}

func (m Model) InputValue() string {
	return m.input.Value()
}
