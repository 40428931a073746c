package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"bookworm/internal/domain"
	"bookworm/internal/vectorstore"
)

const (
	payloadText     = "text"
	payloadMetadata = "metadata"
	payloadPosition = "position"

	scrollPageSize = 256
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and recreates the collection on every Replace.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// Replace deletes the collection, recreates it sized for vectors and uploads docs.
func (s *Storage) Replace(ctx context.Context, docs []domain.Document, vectors [][]float64) error {
	dim, err := vectorstore.CheckBatch(docs, vectors)
	if err != nil {
		return err
	}

	if _, err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	points := make([]map[string]any, len(docs))
	for i := range docs {
		points[i] = map[string]any{
			"id":     uuid.NewString(),
			"vector": vectors[i],
			"payload": map[string]any{
				payloadText:     docs[i].PageContent,
				payloadMetadata: docs[i].Metadata,
				payloadPosition: i,
			},
		}
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

type point struct {
	Score   float64 `json:"score"`
	Payload struct {
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata"`
		Position int            `json:"position"`
	} `json:"payload"`
}

func (p point) document() domain.Document {
	return domain.NewDocument(p.Payload.Text, p.Payload.Metadata)
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 4
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []point `json:"result"`
	}
	found, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{Document: r.document(), Score: r.Score})
	}
	return results, nil
}

// Count returns the number of points, 0 when the collection does not exist.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	found, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), map[string]any{"exact": true}, &resp)
	if err != nil || !found {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Documents scrolls through the whole collection and returns documents in upload order.
func (s *Storage) Documents(ctx context.Context) ([]domain.Document, error) {
	var all []point
	var offset any
	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points         []point `json:"points"`
				NextPageOffset any     `json:"next_page_offset"`
			} `json:"result"`
		}
		found, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), req, &resp)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		all = append(all, resp.Result.Points...)
		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Payload.Position < all[j].Payload.Position })
	docs := make([]domain.Document, len(all))
	for i, p := range all {
		docs[i] = p.document()
	}
	return docs, nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// do sends a JSON request. It reports found=false for 404 responses.
func (s *Storage) do(ctx context.Context, method, url string, body, out any) (found bool, err error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return true, fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return true, nil
}

var _ vectorstore.Storage = (*Storage)(nil)
