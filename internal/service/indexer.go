package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bookworm/internal/domain"
	"bookworm/internal/embedding"
	"bookworm/internal/logger"
	"bookworm/internal/vectorstore"
)

// StoreOpener acquires a vector store handle. The caller closes it.
type StoreOpener func(ctx context.Context) (vectorstore.Storage, error)

// Indexer is the full-replace document store: it embeds documents and
// rewrites the vector store with them.
type Indexer struct {
	embedder  domain.Embedder
	open      StoreOpener
	batchSize int
	log       *zap.Logger
}

func NewIndexer(embedder domain.Embedder, open StoreOpener, log *zap.Logger) *Indexer {
	return &Indexer{embedder: embedder, open: open, batchSize: embedding.DefaultBatchSize, log: logger.OrNop(log)}
}

// StoreDocuments embeds docs and replaces the stored set with them.
func (ix *Indexer) StoreDocuments(ctx context.Context, docs []domain.Document) (err error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.PageContent
	}

	ix.log.Info("embedding bookmarks", zap.Int("count", len(docs)), zap.String("embedder", ix.embedder.Name()))
	vectors, err := embedding.EmbedAll(ctx, ix.embedder, texts, ix.batchSize)
	if err != nil {
		return err
	}

	store, err := ix.open(ctx)
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := store.Replace(ctx, docs, vectors); err != nil {
		return fmt.Errorf("replace stored documents: %w", err)
	}
	ix.log.Info("stored bookmarks", zap.Int("count", len(docs)))
	return nil
}

var _ domain.DocumentStore = (*Indexer)(nil)
