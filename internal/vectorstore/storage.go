package vectorstore

import (
	"context"
	"errors"

	"bookworm/internal/domain"
)

var (
	// ErrDimensionMismatch is returned when vectors in one write or a query
	// vector disagree on length with the stored set.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrLengthMismatch is returned when documents and vectors are not paired one to one.
	ErrLengthMismatch = errors.New("documents and vectors length mismatch")
)

// Storage persists embedded documents and supports similarity search.
type Storage interface {
	// Replace drops everything previously stored and writes docs.
	Replace(ctx context.Context, docs []domain.Document, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
	// Documents returns every stored document in insertion order.
	Documents(ctx context.Context) ([]domain.Document, error)
	Close() error
}

// CheckBatch validates that docs and vectors pair up and share one dimension.
// It returns that dimension, or 0 for an empty batch.
func CheckBatch(docs []domain.Document, vectors [][]float64) (int, error) {
	if len(docs) != len(vectors) {
		return 0, ErrLengthMismatch
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, ErrDimensionMismatch
	}
	for _, v := range vectors {
		if len(v) != dim {
			return 0, ErrDimensionMismatch
		}
	}
	return dim, nil
}
