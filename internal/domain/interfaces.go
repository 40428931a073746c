package domain

import "context"

// Loader produces the documents of a single bookmark source.
// Every call re-reads the source.
type Loader interface {
	Load() ([]Document, error)
}

// DocumentStore persists a full set of documents, replacing whatever was stored before.
type DocumentStore interface {
	StoreDocuments(ctx context.Context, docs []Document) error
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// SearchResult represents a stored document with a relevance score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Asker answers a natural-language query with a ranked list of bookmarks.
type Asker interface {
	IsValid(ctx context.Context) (bool, error)
	Ask(ctx context.Context, query string) (Bookmarks, error)
}
