// Package conversation holds the history of a single chat session.
//
// A Store is an append-only, ordered list of turns. Its first element is the
// system turn given at creation, and that turn is never replaced. The order of
// the turns is the order in which they are sent to the language model, so the
// store is the model's context window.
package conversation

import (
	"iter"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Store struct {
	id    uuid.UUID
	turns []Turn
}

type StoreOption func(*Store)

func WithConversationID(id uuid.UUID) StoreOption {
	return func(s *Store) {
		s.id = id
	}
}

// NewStore creates a store holding exactly one system turn.
func NewStore(systemPrompt string, options ...StoreOption) *Store {
	ret := &Store{
		id:    uuid.Nil,
		turns: []Turn{NewTurn(RoleSystem, systemPrompt)},
	}
	for _, option := range options {
		option(ret)
	}
	if ret.id == uuid.Nil {
		ret.id = uuid.New()
	}

	return ret
}

func (s *Store) ID() uuid.UUID {
	return s.id
}

// Append adds a turn at the end of the history. Content validation is the
// caller's business.
//
// TODO(beauty-bot) Add a truncation policy once histories outgrow the model
// context; today the full history is forwarded on every completion.
func (s *Store) Append(role Role, content string) Turn {
	t := NewTurn(role, content)
	s.turns = append(s.turns, t)

	log.Trace().
		Str("conversation_id", s.id.String()).
		Str("role", string(role)).
		Int("turns", len(s.turns)).
		Msg("appended turn")

	return t
}

func (s *Store) Len() int {
	return len(s.turns)
}

// Last returns the most recently appended turn, which is the system turn for a
// fresh store.
func (s *Store) Last() Turn {
	return s.turns[len(s.turns)-1]
}

// SystemPrompt returns the content of the leading system turn.
func (s *Store) SystemPrompt() string {
	return s.turns[0].Content
}

// FullHistory returns a copy of the entire history in order.
func (s *Store) FullHistory() []Turn {
	ret := make([]Turn, len(s.turns))
	copy(ret, s.turns)
	return ret
}

func (s *Store) windowStart(n int) int {
	if n <= 0 {
		return len(s.turns)
	}
	if n >= len(s.turns) {
		return 0
	}
	return len(s.turns) - n
}

// RecentWindow yields the last n turns in chronological order. The window is
// computed when iteration starts, so the sequence can be ranged over any
// number of times.
func (s *Store) RecentWindow(n int) iter.Seq[Turn] {
	return func(yield func(Turn) bool) {
		for i := s.windowStart(n); i < len(s.turns); i++ {
			if !yield(s.turns[i]) {
				return
			}
		}
	}
}

// RecentWindowReverse yields the same turns as RecentWindow, most recent first.
func (s *Store) RecentWindowReverse(n int) iter.Seq[Turn] {
	return func(yield func(Turn) bool) {
		start := s.windowStart(n)
		for i := len(s.turns) - 1; i >= start; i-- {
			if !yield(s.turns[i]) {
				return
			}
		}
	}
}
