package completion

import (
	"context"
	"time"

	"github.com/go-go-golems/beauty-bot/pkg/conversation"
)

const (
	DefaultModel   = "gpt-4o"
	DefaultTimeout = 60 * time.Second
)

// Client performs one completion over a full conversation history.
type Client interface {
	Complete(ctx context.Context, history []conversation.Turn) (string, error)
}

type Settings struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func NewSettings(apiKey string) *Settings {
	return &Settings{
		APIKey:      apiKey,
		Model:       DefaultModel,
		Temperature: 0.5,
		Timeout:     DefaultTimeout,
	}
}
