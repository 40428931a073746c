package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const appName = "bookworm"

// EmbedderConfig configures the embeddings endpoint.
type EmbedderConfig struct {
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// LLMConfig configures the chat model used to answer queries.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// OpenAIConfig holds settings for api.openai.com or a compatible server.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// AzureConfig holds Azure OpenAI deployment settings.
type AzureConfig struct {
	Endpoint            string `yaml:"endpoint"`
	APIVersion          string `yaml:"api_version"`
	EmbeddingDeployment string `yaml:"embedding_deployment"`
	ChatDeployment      string `yaml:"chat_deployment"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Path   string        `yaml:"path"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// CostConfig configures embedding cost estimation.
type CostConfig struct {
	Encoding string `yaml:"encoding"`
}

// AskConfig configures retrieval for the ask command.
type AskConfig struct {
	TopK int `yaml:"top_k"`
}

// LogConfig configures the log file.
type LogConfig struct {
	File string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Azure       AzureConfig       `yaml:"azure"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Cost        CostConfig        `yaml:"cost"`
	Ask         AskConfig         `yaml:"ask"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./bookworm.yaml first, then the user config file.
// If neither exists, it writes defaults to the user config file and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := appName + ".yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath := DefaultUserConfigPath()
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath is the per-user config file location.
func DefaultUserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// DataDir is the per-user directory holding the database and log file.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Embedder.MaxRetries == 0 {
		cfg.Embedder.MaxRetries = 5
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Azure.APIVersion == "" {
		cfg.Azure.APIVersion = "2024-06-01"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Type == "sqlite" && cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = filepath.Join(DataDir(), "bookmarks.db")
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "bookmarks"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Cost.Encoding == "" {
		cfg.Cost.Encoding = "cl100k_base"
	}
	if cfg.Ask.TopK == 0 {
		cfg.Ask.TopK = 4
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(DataDir(), appName+".log")
	}
}
