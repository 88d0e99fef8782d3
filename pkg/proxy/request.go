package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-go-golems/beauty-bot/pkg/completion"
	"github.com/go-go-golems/beauty-bot/pkg/conversation"
	"github.com/pkg/errors"
)

// maxBodySize caps what is read from a request body.
const maxBodySize = 1 << 20

// ValidationError is returned for request bodies that are not valid JSON or
// carry invalid turns. The handler degrades to the default message.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid request body: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// request is what a caller asked for once the body or query has been read.
// Exactly one of message and messages is set.
type request struct {
	message  string
	messages []conversation.Turn
}

// parseRequest extracts the caller's input. POST bodies win over the q query
// parameter; an empty body falls back to q. GET only looks at q. When nothing
// usable was sent the default message is used. A malformed body yields the
// default message together with a *ValidationError.
func parseRequest(r *http.Request, defaultMessage string) (request, error) {
	fromQuery := func() request {
		if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
			return request{message: q}
		}
		return request{message: defaultMessage}
	}

	if r.Method != http.MethodPost || r.Body == nil {
		return fromQuery(), nil
	}

	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return request{message: defaultMessage}, &ValidationError{Err: errors.Wrap(err, "could not read body")}
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return fromQuery(), nil
	}

	var body completion.ProxyRequest
	if err := json.Unmarshal(b, &body); err != nil {
		return request{message: defaultMessage}, &ValidationError{Err: err}
	}

	if len(body.Messages) > 0 {
		for i, t := range body.Messages {
			if !t.Role.IsValid() {
				return request{message: defaultMessage},
					&ValidationError{Err: errors.Errorf("message %d has invalid role %q", i, t.Role)}
			}
		}
		return request{messages: body.Messages}, nil
	}

	if m := strings.TrimSpace(body.Message); m != "" {
		return request{message: m}, nil
	}

	return fromQuery(), nil
}

// history builds what is sent upstream. A single message becomes a system and
// user exchange; a caller supplied history gets the system prompt prepended
// unless it already starts with a system turn.
func (req request) history(systemPrompt string) []conversation.Turn {
	if req.messages == nil {
		return []conversation.Turn{
			conversation.NewTurn(conversation.RoleSystem, systemPrompt),
			conversation.NewTurn(conversation.RoleUser, req.message),
		}
	}

	if req.messages[0].Role == conversation.RoleSystem {
		return req.messages
	}

	ret := make([]conversation.Turn, 0, len(req.messages)+1)
	ret = append(ret, conversation.NewTurn(conversation.RoleSystem, systemPrompt))
	return append(ret, req.messages...)
}
