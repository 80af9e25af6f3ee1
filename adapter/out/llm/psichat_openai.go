// Package llm writes tutor replies with an OpenAI compatible chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"psichat_server/core/port/out"
	"psichat_server/pkg/httputil"
	"psichat_server/pkg/logger"
	"psichat_server/pkg/metrics"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

const DefaultModel = "gpt-4o-mini"

// ErrEmptyReply is returned when the model answers without any text.
var ErrEmptyReply = errors.New("model returned an empty reply")

type ClientConfig struct {
	APIKey      string
	BaseURL     string // empty for api.openai.com
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// Client generates tutor replies behind a circuit breaker.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	topP        float32
	timeout     time.Duration
	cb          *gobreaker.CircuitBreaker
}

var _ out.ReplyGenerator = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 150
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	topP := cfg.TopP
	if topP == 0 {
		topP = 0.9
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	// The transport gets headroom over the per call timeout, which is applied
	// through the request context.
	oc.HTTPClient = httputil.NewClient(httputil.LLMClientConfig(timeout + 5*time.Second))

	cbSettings := gobreaker.Settings{
		Name:        "llm-reply",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !tripsBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
		topP:        float32(topP),
		timeout:     timeout,
		cb:          gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// GenerateReply sends the system prompt, prior turns and the user text as one conversation.
func (c *Client) GenerateReply(ctx context.Context, req *out.ReplyRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer metrics.Since("llm.reply", time.Now())

	reply, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    BuildMessages(req),
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			TopP:        c.topP,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, ErrEmptyReply
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return nil, ErrEmptyReply
		}
		return text, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	return reply.(string), nil
}

// Open reports whether the breaker is rejecting calls.
func (c *Client) Open() bool {
	return c.cb.State() == gobreaker.StateOpen
}

// BuildMessages lays out a reply request as chat messages: the system prompt,
// each prior turn as a user/assistant pair, then the new user text.
func BuildMessages(req *out.ReplyRequest) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 2+2*len(req.Turns))
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	for _, turn := range req.Turns {
		msgs = append(msgs,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.User},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Bot},
		)
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserText})
}

// tripsBreaker reports whether err points at the upstream being unhealthy.
// Client side errors and caller cancellations do not count.
func tripsBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	return true
}
