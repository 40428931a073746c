package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// ErrNoCredentials is returned when no supported API key is present in the environment.
var ErrNoCredentials = errors.New("embeddings service could not be configured: set OPENAI_API_KEY or AZURE_OPENAI_API_KEY")

// Provider names a hosted embedding/LLM backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderAzure  Provider = "azure"
)

// Backend is a resolved endpoint plus credential for one provider.
type Backend struct {
	Provider   Provider
	BaseURL    string
	APIKey     string
	APIVersion string
}

// ResolveBackend picks the provider from the credentials present in the
// environment: OPENAI_API_KEY wins over AZURE_OPENAI_API_KEY.
func ResolveBackend(cfg *AppConfig, getenv func(string) string) (Backend, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if key := getenv("OPENAI_API_KEY"); key != "" {
		base := cfg.OpenAI.BaseURL
		if v := getenv("OPENAI_BASE_URL"); v != "" {
			base = v
		}
		return Backend{Provider: ProviderOpenAI, BaseURL: strings.TrimRight(base, "/"), APIKey: key}, nil
	}
	if key := getenv("AZURE_OPENAI_API_KEY"); key != "" {
		endpoint := cfg.Azure.Endpoint
		if v := getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
			endpoint = v
		}
		if endpoint == "" {
			return Backend{}, fmt.Errorf("%w: AZURE_OPENAI_ENDPOINT is not set", ErrNoCredentials)
		}
		version := cfg.Azure.APIVersion
		if v := getenv("OPENAI_API_VERSION"); v != "" {
			version = v
		}
		return Backend{Provider: ProviderAzure, BaseURL: strings.TrimRight(endpoint, "/"), APIKey: key, APIVersion: version}, nil
	}
	return Backend{}, ErrNoCredentials
}

// URL returns the request URL for an API operation such as "embeddings" or
// "chat/completions". Azure routes by deployment, OpenAI by model in the body.
func (b Backend) URL(deployment, operation string) string {
	if b.Provider == ProviderAzure {
		q := url.Values{"api-version": {b.APIVersion}}
		return fmt.Sprintf("%s/openai/deployments/%s/%s?%s", b.BaseURL, url.PathEscape(deployment), operation, q.Encode())
	}
	return fmt.Sprintf("%s/%s", b.BaseURL, operation)
}

// Authorize sets the credential header on req.
func (b Backend) Authorize(req *http.Request) {
	if b.Provider == ProviderAzure {
		req.Header.Set("api-key", b.APIKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+b.APIKey)
}

// EmbeddingDeployment returns the Azure deployment name for embeddings,
// falling back to the model name.
func (c *AppConfig) EmbeddingDeployment() string {
	if c.Azure.EmbeddingDeployment != "" {
		return c.Azure.EmbeddingDeployment
	}
	return c.Embedder.Model
}

// ChatDeployment returns the Azure deployment name for chat, falling back to the model name.
func (c *AppConfig) ChatDeployment() string {
	if c.Azure.ChatDeployment != "" {
		return c.Azure.ChatDeployment
	}
	return c.LLM.Model
}
