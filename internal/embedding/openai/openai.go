package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"bookworm/internal/config"
)

// ErrNoEmbedding is returned when the service answers without a vector.
var ErrNoEmbedding = errors.New("no embedding returned")

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	transport  *Transport
	model      string
	deployment string
}

// Config configures the embeddings client.
type Config struct {
	Backend    config.Backend
	Model      string
	Deployment string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Deployment == "" {
		cfg.Deployment = cfg.Model
	}
	return &Client{
		transport:  NewTransport(cfg.Backend, cfg.Timeout, cfg.MaxRetries),
		model:      cfg.Model,
		deployment: cfg.Deployment,
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return string(c.transport.Backend().Provider) }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := c.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embeddings: sent %d inputs, got %d vectors", len(texts), len(vecs))
	}
	return vecs, nil
}

type embedRequest struct {
	Input any    `json:"input"`
	Model string `json:"model,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	// Ollama-native shape.
	Embedding []float64 `json:"embedding"`
}

func (c *Client) embed(ctx context.Context, input any) ([][]float64, error) {
	body := embedRequest{Input: input}
	// Azure routes by deployment; the model field is ignored there.
	if c.transport.Backend().Provider != config.ProviderAzure {
		body.Model = c.model
	}

	payload, err := c.transport.PostJSON(ctx, c.transport.Backend().URL(c.deployment, "embeddings"), body)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	var out embedResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(out.Data) > 0 {
		sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
		vecs := make([][]float64, len(out.Data))
		for i, d := range out.Data {
			if len(d.Embedding) == 0 {
				return nil, ErrNoEmbedding
			}
			vecs[i] = d.Embedding
		}
		return vecs, nil
	}
	if len(out.Embedding) > 0 {
		return [][]float64{out.Embedding}, nil
	}
	return nil, ErrNoEmbedding
}
