package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"bookworm/internal/config"
	"bookworm/internal/embedding/openai"
	"bookworm/internal/llm"
	"bookworm/internal/logger"
	"bookworm/internal/service"
	"bookworm/internal/vectorstore"
	"bookworm/internal/vectorstore/qdrant"
	"bookworm/internal/vectorstore/sqlite"
)

// app holds what every command needs: configuration and a logger.
type app struct {
	cfg *config.AppConfig
	log *zap.Logger
}

func newApp() (*app, error) {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{Debug: debug, FilePath: cfg.Log.File, Console: os.Stderr})
	log.Debug("starting bookworm", zap.String("config", cfgPath), zap.String("store", cfg.VectorStore.Type))
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) close() { _ = a.log.Sync() }

func (a *app) backend() (config.Backend, error) {
	return config.ResolveBackend(a.cfg, os.Getenv)
}

func (a *app) embedder(b config.Backend) *openai.Client {
	return openai.NewClient(openai.Config{
		Backend:    b,
		Model:      a.cfg.Embedder.Model,
		Deployment: a.cfg.EmbeddingDeployment(),
		Timeout:    time.Duration(a.cfg.Embedder.TimeoutSecs) * time.Second,
		MaxRetries: a.cfg.Embedder.MaxRetries,
	})
}

func (a *app) completer(b config.Backend) *llm.Client {
	return llm.New(llm.Config{
		Backend:     b,
		Model:       a.cfg.LLM.Model,
		Deployment:  a.cfg.ChatDeployment(),
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     time.Duration(a.cfg.LLM.TimeoutSecs) * time.Second,
		MaxRetries:  a.cfg.Embedder.MaxRetries,
	})
}

// storeOpener returns a function that opens the configured vector store.
func (a *app) storeOpener() (service.StoreOpener, error) {
	vs := a.cfg.VectorStore
	switch vs.Type {
	case "sqlite", "":
		return func(context.Context) (vectorstore.Storage, error) {
			st, err := sqlite.Open(vs.Path)
			if err != nil {
				return nil, err
			}
			return st, nil
		}, nil
	case "qdrant":
		if vs.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		qcfg := qdrant.Config{
			URL:        vs.Qdrant.URL,
			APIKey:     vs.Qdrant.APIKey,
			Collection: vs.Qdrant.Collection,
			Timeout:    time.Duration(vs.Qdrant.TimeoutSecs) * time.Second,
		}
		return func(context.Context) (vectorstore.Storage, error) {
			return qdrant.NewStorage(qcfg), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", vs.Type)
	}
}
