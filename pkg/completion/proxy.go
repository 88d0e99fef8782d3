package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-go-golems/beauty-bot/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// upstreamErrorPrefix is what the proxy puts in front of upstream failures.
const upstreamErrorPrefix = "Upstream error: "

// ProxyRequest is the JSON body accepted by the proxy. Message is the single
// turn form, Messages carries a full history.
type ProxyRequest struct {
	Message  string              `json:"message,omitempty"`
	Messages []conversation.Turn `json:"messages,omitempty"`
}

// ProxyClient sends the whole history to a beauty-bot proxy, which holds the
// API credential.
type ProxyClient struct {
	url        string
	httpClient *http.Client
}

var _ Client = (*ProxyClient)(nil)

type ProxyClientOption func(*ProxyClient)

func WithHTTPClient(c *http.Client) ProxyClientOption {
	return func(p *ProxyClient) {
		p.httpClient = c
	}
}

func NewProxyClient(url string, options ...ProxyClientOption) *ProxyClient {
	ret := &ProxyClient{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (p *ProxyClient) Complete(ctx context.Context, history []conversation.Turn) (string, error) {
	if len(history) == 0 {
		return "", ErrEmptyHistory
	}

	body, err := json.Marshal(ProxyRequest{Messages: history})
	if err != nil {
		return "", errors.Wrap(err, "could not encode proxy request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug().Str("url", p.url).Int("messages", len(history)).Msg("forwarding history to proxy")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Message: err.Error(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Message: err.Error(), Err: err}
	}
	text := string(b)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimPrefix(strings.TrimSpace(text), upstreamErrorPrefix)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	return text, nil
}
