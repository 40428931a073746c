package embedding

import (
	"context"
	"fmt"

	"bookworm/internal/domain"
)

// DefaultBatchSize bounds the number of inputs sent in one embeddings request.
const DefaultBatchSize = 96

// Batcher is implemented by embedders that accept several inputs per request.
type Batcher interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// EmbedAll returns one vector per text, in order. It uses batch requests when
// e implements Batcher and falls back to one call per text otherwise.
func EmbedAll(ctx context.Context, e domain.Embedder, texts []string, batchSize int) ([][]float64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make([][]float64, 0, len(texts))

	if b, ok := e.(Batcher); ok {
		for start := 0; start < len(texts); start += batchSize {
			end := min(start+batchSize, len(texts))
			vecs, err := b.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				return nil, fmt.Errorf("%s: embed batch %d-%d: %w", e.Name(), start, end, err)
			}
			if len(vecs) != end-start {
				return nil, fmt.Errorf("%s: embed batch %d-%d: got %d vectors", e.Name(), start, end, len(vecs))
			}
			out = append(out, vecs...)
		}
		return out, nil
	}

	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%s: embed document %d: %w", e.Name(), i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
