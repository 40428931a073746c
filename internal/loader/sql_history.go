package loader

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"bookworm/internal/browsers"
	"bookworm/internal/domain"
)

// SQLHistory loads bookmarks by querying a browser's SQLite database.
type SQLHistory struct {
	args browsers.SQLHistoryArgs
}

// NewSQLHistory creates a loader for the configured database and query.
func NewSQLHistory(args browsers.SQLHistoryArgs) *SQLHistory {
	return &SQLHistory{args: args}
}

// Load runs the query and maps every row to a document. Rows without a
// source column get the database path as their source.
func (l *SQLHistory) Load() (docs []domain.Document, err error) {
	path := l.args.DatabasePath
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	db, err := sql.Open("sqlite3", readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open history database %s: %w", path, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close history database: %w", cerr)
		}
	}()

	rows, err := db.Query(l.args.Query)
	if err != nil {
		return nil, fmt.Errorf("query history database %s: %w", path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(cols)+1)
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		if _, ok := row[domain.MetadataSource]; !ok {
			row[domain.MetadataSource] = path
		}

		content, err := l.args.PageContentMapper(row)
		if err != nil {
			return nil, fmt.Errorf("map row: %w", err)
		}

		metadata := make(map[string]any, len(l.args.SourceColumns)+1)
		for _, c := range l.args.SourceColumns {
			metadata[c] = row[c]
		}
		metadata[domain.MetadataSource] = row[domain.MetadataSource]

		docs = append(docs, domain.NewDocument(content, metadata))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return docs, nil
}

func readOnlyDSN(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String()
}
