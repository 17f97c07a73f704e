package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	model          = "claude-3-haiku-20240307"
	maxTokens      = 512
)

// ErrEmptyResponse is returned when the model answered without usable text.
var ErrEmptyResponse = errors.New("empty response from ai")

// Client defines the interface for AI text generation.
type Client interface {
	GenerateInsights(ctx context.Context, summary string, count int) ([]string, error)
}

type anthropicClient struct {
	httpClient *resty.Client
}

// Option customises the client.
type Option func(*resty.Client)

// WithBaseURL points the client at another host.
func WithBaseURL(url string) Option {
	return func(c *resty.Client) { c.SetBaseURL(url) }
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string, opts ...Option) Client {
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(15 * time.Second)

	for _, opt := range opts {
		opt(client)
	}
	return &anthropicClient{httpClient: client}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateInsights asks for count short recommendations about the inventory
// described by summary and returns them as a list.
func (c *anthropicClient) GenerateInsights(ctx context.Context, summary string, count int) ([]string, error) {
	systemPrompt := fmt.Sprintf(`You advise a warehouse manager. Analyse the inventory state you are given and provide %d short, professional recommendations focused on efficiency, stock optimisation and potential risks.
	Your output must be ONLY a JSON array of strings.`, count)

	reqBody := messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []Message{
			{Role: "user", Content: "Inventory summary:\n" + summary},
			// Prefill the assistant response to force a JSON array
			{Role: "assistant", Content: "["},
		},
	}

	var respBody messageResponse
	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		SetError(apiErr).
		Post("/v1/messages")
	if err != nil {
		return nil, fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("anthropic api error: status=%d, message=%s", resp.StatusCode(), apiErr.Error.Message)
	}
	if len(respBody.Content) == 0 {
		return nil, ErrEmptyResponse
	}

	insights, err := parseList("[" + respBody.Content[0].Text)
	if err != nil {
		return nil, err
	}
	if len(insights) == 0 {
		return nil, ErrEmptyResponse
	}
	return insights, nil
}

// parseList decodes a JSON array of strings, tolerating markdown fences and
// blank entries.
func parseList(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "[```") {
		text = strings.TrimPrefix(text, "[")
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw []string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ai response: %w", err)
	}

	out := raw[:0]
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
