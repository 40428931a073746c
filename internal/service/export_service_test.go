package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookworm/internal/domain"
)

func TestExportService_WriteCSV(t *testing.T) {
	store := &memStore{docs: []domain.Document{
		domain.NewDocument(`{"type":"url","name":"Go, the language","url":"https://go.dev"}`, map[string]any{
			domain.MetadataBrowser: "chrome",
			domain.MetadataSource:  "/home/u/.config/google-chrome/Default/Bookmarks",
		}),
		domain.NewDocument(`{"id": 1, "url": "https://zap.dev", "dateAdded": "d1", "lastModified": "d2", "source": "/tmp/bookworm/firefox.sqlite", "name": "Zap"}`, map[string]any{
			domain.MetadataBrowser: "firefox",
			domain.MetadataSource:  "/tmp/bookworm/firefox.sqlite",
		}),
	}}
	svc := NewExportService(store.opener())

	var buf bytes.Buffer
	n, err := svc.WriteCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "name,url,browser,source\n"+
		"\"Go, the language\",https://go.dev,chrome,/home/u/.config/google-chrome/Default/Bookmarks\n"+
		"Zap,https://zap.dev,firefox,/tmp/bookworm/firefox.sqlite\n", buf.String())
	assert.Equal(t, 1, store.closed)
}

func TestExportService_RowsMissingMetadata(t *testing.T) {
	store := &memStore{docs: []domain.Document{domain.NewDocument(`{"name":"n","url":"u"}`, nil)}}
	rows, err := NewExportService(store.opener()).Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ExportRow{{Name: "n", URL: "u"}}, rows)
}

func TestExportService_OpenError(t *testing.T) {
	_, err := NewExportService(failingOpener).Rows(context.Background())
	assert.Error(t, err)
}
