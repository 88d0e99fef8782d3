package completion

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-go-golems/beauty-bot/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to an OpenAI compatible chat completion endpoint directly.
type OpenAIClient struct {
	settings *Settings
	client   *go_openai.Client
}

var _ Client = (*OpenAIClient)(nil)

func NewOpenAIClient(settings *Settings) (*OpenAIClient, error) {
	if settings == nil {
		return nil, errors.New("missing client settings")
	}
	if strings.TrimSpace(settings.APIKey) == "" {
		return nil, &TransportError{Message: "missing client settings api key"}
	}

	config := go_openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		config.BaseURL = settings.BaseURL
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		settings: settings,
		client:   go_openai.NewClientWithConfig(config),
	}, nil
}

func toOpenAIMessages(history []conversation.Turn) []go_openai.ChatCompletionMessage {
	ret := make([]go_openai.ChatCompletionMessage, 0, len(history))
	for _, t := range history {
		ret = append(ret, go_openai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}
	return ret
}

func (c *OpenAIClient) Complete(ctx context.Context, history []conversation.Turn) (string, error) {
	if len(history) == 0 {
		return "", ErrEmptyHistory
	}

	model := c.settings.Model
	if model == "" {
		model = DefaultModel
	}

	req := go_openai.ChatCompletionRequest{
		Model:            model,
		Messages:         toOpenAIMessages(history),
		Temperature:      c.settings.Temperature,
		MaxTokens:        c.settings.MaxTokens,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	}

	log.Debug().
		Str("model", model).
		Float32("temperature", req.Temperature).
		Int("max_tokens", req.MaxTokens).
		Int("messages", len(req.Messages)).
		Msg("sending chat completion request")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		log.Debug().Str("id", resp.ID).Msg("chat completion returned no choices")
		return "", nil
	}

	log.Debug().
		Str("id", resp.ID).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat completion finished")

	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps go-openai errors onto UpstreamError when the API
// answered, and TransportError otherwise.
func classifyOpenAIError(err error) error {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}

	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}

	return &TransportError{Message: err.Error(), Err: err}
}
