// Package gate classifies a user turn before anything is sent to the model.
//
// The classifier is a keyword heuristic: every check is a case-folded substring
// match against a fixed vocabulary. It misfires on phrases like "which way is
// north", and that behavior is kept as is.
package gate

import (
	"strings"

	"github.com/go-go-golems/beauty-bot/pkg/conversation"
	"github.com/go-go-golems/beauty-bot/pkg/profile"
)

// BudgetLookback is the number of most recent turns searched for a budget.
const BudgetLookback = 8

type Decision int

const (
	Proceed Decision = iota
	NeedsBudgetClarification
	OffTopic
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case NeedsBudgetClarification:
		return "needs-budget-clarification"
	case OffTopic:
		return "off-topic"
	default:
		return "unknown"
	}
}

type Gate struct {
	topic          []string
	recommendation []string
	budgetLow      []string
	budgetMid      []string
	budgetHigh     []string
}

func lowered(keywords []string) []string {
	ret := make([]string, 0, len(keywords))
	for _, k := range keywords {
		ret = append(ret, strings.ToLower(k))
	}
	return ret
}

func New(keywords profile.Keywords) *Gate {
	return &Gate{
		topic:          lowered(keywords.Topic),
		recommendation: lowered(keywords.Recommendation),
		budgetLow:      lowered(keywords.BudgetLow),
		budgetMid:      lowered(keywords.BudgetMid),
		budgetHigh:     lowered(keywords.BudgetHigh),
	}
}

// NewDefault builds a gate over the built-in profile's vocabulary.
func NewDefault() *Gate {
	return New(profile.Default().Keywords)
}

// IsOnTopic reports whether text mentions any topic keyword. The vocabulary
// includes recommendation words so that follow-ups like "which is best" pass
// without naming a brand.
func (g *Gate) IsOnTopic(text string) bool {
	if text == "" {
		return false
	}
	return containsAny(strings.ToLower(text), g.topic)
}

func (g *Gate) IsRecommendationRequest(text string) bool {
	if text == "" {
		return false
	}
	return containsAny(strings.ToLower(text), g.recommendation)
}

// HasBudgetInRecentHistory scans the last BudgetLookback turns, newest first,
// and stops at the first one carrying a budget. Canned replies count too. The
// system turn is skipped: the default system prompt itself talks about budgets.
// While the system turn is still inside the window, at most BudgetLookback-1
// non-system turns are looked at.
func (g *Gate) HasBudgetInRecentHistory(store *conversation.Store) bool {
	for turn := range store.RecentWindowReverse(BudgetLookback) {
		if turn.Role == conversation.RoleSystem || turn.Content == "" {
			continue
		}
		if !g.DetectBudget(turn.Content).IsNone() {
			return true
		}
	}
	return false
}

// Decide asks for a budget before anything else, so a recommendation request
// is clarified whether or not it would pass the topic check.
func (g *Gate) Decide(text string, store *conversation.Store) Decision {
	if g.IsRecommendationRequest(text) && !g.HasBudgetInRecentHistory(store) {
		return NeedsBudgetClarification
	}
	if !g.IsOnTopic(text) {
		return OffTopic
	}
	return Proceed
}
