// Package llm is a minimal chat-completions client for OpenAI and Azure OpenAI
// that asks for JSON output.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookworm/internal/config"
	"bookworm/internal/embedding/openai"
)

// ErrEmptyCompletion is returned when the model answers with no content.
var ErrEmptyCompletion = errors.New("llm returned no content")

// Role of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Config configures the chat client.
type Config struct {
	Backend     config.Backend
	Model       string
	Deployment  string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Client sends chat completions with response_format json_object.
type Client struct {
	transport   *openai.Transport
	model       string
	deployment  string
	temperature float64
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Deployment == "" {
		cfg.Deployment = cfg.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		transport:   openai.NewTransport(cfg.Backend, cfg.Timeout, cfg.MaxRetries),
		model:       cfg.Model,
		deployment:  cfg.Deployment,
		temperature: cfg.Temperature,
	}
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model,omitempty"`
	Messages       []Message      `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// CompleteJSON sends messages and decodes the JSON answer into out.
func (c *Client) CompleteJSON(ctx context.Context, messages []Message, out any) error {
	body := chatRequest{
		Messages:       messages,
		Temperature:    c.temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	backend := c.transport.Backend()
	if backend.Provider != config.ProviderAzure {
		body.Model = c.model
	}

	payload, err := c.transport.PostJSON(ctx, backend.URL(c.deployment, "chat/completions"), body)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("decode chat response: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return ErrEmptyCompletion
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("decode model output (finish reason %q): %w", resp.Choices[0].FinishReason, err)
	}
	return nil
}
