package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bookworm/internal/domain"
	"bookworm/internal/llm"
	"bookworm/internal/logger"
)

// ErrNotSynced is returned by Ask when the store holds no bookmarks yet.
var ErrNotSynced = errors.New("no bookmarks stored, run `bookworm sync` first")

const systemPrompt = `You have knowledge about all the browser bookmarks stored by an individual.
When a user asks a question, you should be able to search the bookmarks and return the most relevant bookmark title and URL.
It could be multiple bookmarks.

Answer with a JSON object of the form {"bookmarks": [{"title": "...", "url": "...", "source": "..."}]}.
"source" is the JSON document the bookmark came from, copied verbatim.

The bookmarks available are from the context:
%s`

// Completer sends a chat and decodes the JSON answer into out.
type Completer interface {
	CompleteJSON(ctx context.Context, messages []llm.Message, out any) error
}

// AskService retrieves the bookmarks closest to a query and lets the
// language model pick and rank the relevant ones.
type AskService struct {
	embedder domain.Embedder
	open     StoreOpener
	llm      Completer
	topK     int
	log      *zap.Logger
}

func NewAskService(embedder domain.Embedder, open StoreOpener, completer Completer, topK int, log *zap.Logger) *AskService {
	if topK <= 0 {
		topK = 4
	}
	return &AskService{embedder: embedder, open: open, llm: completer, topK: topK, log: logger.OrNop(log)}
}

// IsValid reports whether at least one bookmark has been synced.
func (s *AskService) IsValid(ctx context.Context) (ok bool, err error) {
	store, err := s.open(ctx)
	if err != nil {
		return false, fmt.Errorf("open vector store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	n, err := store.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ask answers query with the bookmarks the model considers relevant.
// Entries without a title or a valid URL are dropped.
func (s *AskService) Ask(ctx context.Context, query string) (_ domain.Bookmarks, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Bookmarks{}, errors.New("query must not be empty")
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return domain.Bookmarks{}, fmt.Errorf("embed query: %w", err)
	}

	store, err := s.open(ctx)
	if err != nil {
		return domain.Bookmarks{}, fmt.Errorf("open vector store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	hits, err := store.Search(ctx, vec, s.topK)
	if err != nil {
		return domain.Bookmarks{}, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		return domain.Bookmarks{}, ErrNotSynced
	}
	s.log.Debug("retrieved context", zap.Int("hits", len(hits)), zap.Float64("best_score", hits[0].Score))

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(systemPrompt, formatContext(hits))},
		{Role: llm.RoleUser, Content: query},
	}
	var answer domain.Bookmarks
	if err := s.llm.CompleteJSON(ctx, messages, &answer); err != nil {
		return domain.Bookmarks{}, err
	}

	valid := answer.Bookmarks[:0]
	for _, b := range answer.Bookmarks {
		if err := b.Validate(); err != nil {
			s.log.Warn("dropping invalid bookmark from answer", zap.String("title", b.Title), zap.String("url", b.URL), zap.Error(err))
			continue
		}
		valid = append(valid, b)
	}
	answer.Bookmarks = valid
	return answer, nil
}

func formatContext(hits []domain.SearchResult) string {
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(h.Document.PageContent)
		if browser, ok := h.Document.Metadata[domain.MetadataBrowser]; ok {
			fmt.Fprintf(&b, "\nbrowser: %v", browser)
		}
	}
	return b.String()
}

var _ domain.Asker = (*AskService)(nil)
