package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"bookworm/internal/domain"
)

// ExportRow is one stored bookmark in export form.
type ExportRow struct {
	Name    string
	URL     string
	Browser string
	Source  string
}

// ExportService dumps the stored bookmarks.
type ExportService struct {
	open StoreOpener
}

func NewExportService(open StoreOpener) *ExportService {
	return &ExportService{open: open}
}

// Rows returns every stored bookmark in sync order.
func (s *ExportService) Rows(ctx context.Context) (rows []ExportRow, err error) {
	store, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	docs, err := store.Documents(ctx)
	if err != nil {
		return nil, err
	}
	rows = make([]ExportRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, toExportRow(d))
	}
	return rows, nil
}

// WriteCSV writes the stored bookmarks with a header line to w.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "url", "browser", "source"}); err != nil {
		return 0, err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Name, r.URL, r.Browser, r.Source}); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(rows), nil
}

func toExportRow(d domain.Document) ExportRow {
	content := gjson.Parse(d.PageContent)
	return ExportRow{
		Name:    content.Get("name").String(),
		URL:     content.Get("url").String(),
		Browser: metadataString(d.Metadata, domain.MetadataBrowser),
		Source:  metadataString(d.Metadata, domain.MetadataSource),
	}
}

func metadataString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
