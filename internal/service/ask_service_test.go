package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookworm/internal/domain"
	"bookworm/internal/llm"
)

type fakeCompleter struct {
	answer   string
	messages []llm.Message
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, messages []llm.Message, out any) error {
	f.messages = messages
	return json.Unmarshal([]byte(f.answer), out)
}

func TestAskService_IsValid(t *testing.T) {
	store := &memStore{}
	svc := NewAskService(lenEmbedder{}, store.opener(), &fakeCompleter{}, 0, nil)

	ok, err := svc.IsValid(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	store.docs = []domain.Document{domain.NewDocument("x", nil)}
	ok, err = svc.IsValid(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, store.closed)

	_, err = NewAskService(lenEmbedder{}, failingOpener, &fakeCompleter{}, 0, nil).IsValid(context.Background())
	assert.Error(t, err)
}

func TestAskService_Ask(t *testing.T) {
	log, logs := observedLogger()
	store := &memStore{hits: []domain.SearchResult{
		{Document: domain.NewDocument(`{"name": "Go", "url": "https://go.dev"}`, map[string]any{domain.MetadataBrowser: "chrome"}), Score: 0.9},
		{Document: domain.NewDocument(`{"name": "Zap", "url": "https://github.com/uber-go/zap"}`, nil), Score: 0.5},
	}}
	completer := &fakeCompleter{answer: `{"bookmarks": [
		{"title": "Go", "url": "https://go.dev", "source": "{\"name\": \"Go\"}"},
		{"title": "", "url": "https://broken.example"},
		{"title": "Zap", "url": "https://github.com/uber-go/zap"}
	]}`}
	svc := NewAskService(lenEmbedder{}, store.opener(), completer, 3, log)

	got, err := svc.Ask(context.Background(), "  go logging  ")
	require.NoError(t, err)

	require.Len(t, got.Bookmarks, 2)
	assert.Equal(t, "Go", got.Bookmarks[0].Title)
	assert.Equal(t, `{"name": "Go"}`, got.Bookmarks[0].Source)
	assert.Equal(t, "Zap", got.Bookmarks[1].Title)
	assert.Len(t, logs.FilterMessage("dropping invalid bookmark from answer").All(), 1)

	assert.Equal(t, 3, store.lastTopK)
	assert.Equal(t, 1, store.closed)
	require.Len(t, completer.messages, 2)
	assert.Equal(t, llm.RoleSystem, completer.messages[0].Role)
	assert.Contains(t, completer.messages[0].Content, `{"name": "Go", "url": "https://go.dev"}`+"\nbrowser: chrome")
	assert.Contains(t, completer.messages[0].Content, "https://github.com/uber-go/zap")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "go logging"}, completer.messages[1])
}

func TestAskService_AskEmptyStore(t *testing.T) {
	store := &memStore{}
	svc := NewAskService(lenEmbedder{}, store.opener(), &fakeCompleter{}, 0, nil)

	_, err := svc.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotSynced)
	assert.Equal(t, 4, store.lastTopK)
}

func TestAskService_AskEmptyQuery(t *testing.T) {
	svc := NewAskService(lenEmbedder{}, (&memStore{}).opener(), &fakeCompleter{}, 0, nil)
	_, err := svc.Ask(context.Background(), "   ")
	assert.Error(t, err)
}
