package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bookworm/internal/domain"
	"bookworm/internal/vectorstore"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

type recordingStore struct {
	calls [][]domain.Document
	err   error
}

func (r *recordingStore) StoreDocuments(_ context.Context, docs []domain.Document) error {
	r.calls = append(r.calls, docs)
	return r.err
}

type staticLoader struct {
	docs []domain.Document
	err  error
}

func (l staticLoader) Load() ([]domain.Document, error) { return l.docs, l.err }

// lenEmbedder maps a text to a two-dimensional vector.
type lenEmbedder struct{ err error }

func (lenEmbedder) Name() string { return "fake" }

func (e lenEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float64{float64(len(text)), 1}, nil
}

// memStore is an in-memory vectorstore.Storage that remembers being closed.
type memStore struct {
	docs       []domain.Document
	vectors    [][]float64
	hits       []domain.SearchResult
	replaceErr error
	closed     int
	lastTopK   int
}

func (m *memStore) Replace(_ context.Context, docs []domain.Document, vectors [][]float64) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	if _, err := vectorstore.CheckBatch(docs, vectors); err != nil {
		return err
	}
	m.docs, m.vectors = docs, vectors
	return nil
}

func (m *memStore) Search(_ context.Context, _ []float64, topK int) ([]domain.SearchResult, error) {
	m.lastTopK = topK
	return m.hits, nil
}

func (m *memStore) Count(context.Context) (int, error) { return len(m.docs), nil }

func (m *memStore) Documents(context.Context) ([]domain.Document, error) { return m.docs, nil }

func (m *memStore) Close() error {
	m.closed++
	return nil
}

func (m *memStore) opener() StoreOpener {
	return func(context.Context) (vectorstore.Storage, error) { return m, nil }
}

func failingOpener(context.Context) (vectorstore.Storage, error) {
	return nil, errors.New("disk on fire")
}
