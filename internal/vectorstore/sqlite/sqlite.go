// Package sqlite stores embedded documents in a single SQLite table and
// answers similarity queries with a brute-force cosine scan.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"bookworm/internal/domain"
	"bookworm/internal/vectorstore"
)

// Table is the name of the table holding the embedded documents.
const Table = "embeddings"

const createTable = `CREATE TABLE ` + Table + ` (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	embedding TEXT NOT NULL,
	metadata TEXT NOT NULL
)`

// Storage is a vectorstore.Storage backed by a SQLite file.
type Storage struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the database at path.
// The caller must call Close when done.
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &Storage{conn: conn, path: path}, nil
}

// Path returns the database file location.
func (s *Storage) Path() string { return s.path }

// Close closes the database connection.
func (s *Storage) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Replace drops the embeddings table and recreates it holding exactly docs.
func (s *Storage) Replace(ctx context.Context, docs []domain.Document, vectors [][]float64) (err error) {
	if _, err := vectorstore.CheckBatch(docs, vectors); err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+Table); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err = tx.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+Table+" (id, text, embedding, metadata) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		vec, merr := json.Marshal(vectors[i])
		if merr != nil {
			return fmt.Errorf("encode embedding: %w", merr)
		}
		meta, merr := json.Marshal(doc.Metadata)
		if merr != nil {
			return fmt.Errorf("encode metadata: %w", merr)
		}
		if _, err = stmt.ExecContext(ctx, uuid.NewString(), doc.PageContent, string(vec), string(meta)); err != nil {
			return fmt.Errorf("insert document %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of stored documents, 0 when nothing was ever synced.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+Table).Scan(&n)
	if err != nil {
		if isMissingTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Search scores every stored row against vector and returns the topK best.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 4
	}
	rows, err := s.scan(ctx, true)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(rows))
	for i, r := range rows {
		if len(r.vector) != len(vector) {
			return nil, fmt.Errorf("%w: stored %d, query %d", vectorstore.ErrDimensionMismatch, len(r.vector), len(vector))
		}
		scores[i] = vectorstore.Cosine(r.vector, vector)
	}

	idxs := vectorstore.TopK(scores, topK)
	results := make([]domain.SearchResult, 0, len(idxs))
	for _, j := range idxs {
		results = append(results, domain.SearchResult{Document: rows[j].doc, Score: scores[j]})
	}
	return results, nil
}

// Documents returns every stored document in insertion order.
func (s *Storage) Documents(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.scan(ctx, false)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, len(rows))
	for i, r := range rows {
		docs[i] = r.doc
	}
	return docs, nil
}

type row struct {
	doc    domain.Document
	vector []float64
}

func (s *Storage) scan(ctx context.Context, withVectors bool) ([]row, error) {
	rs, err := s.conn.QueryContext(ctx, "SELECT text, embedding, metadata FROM "+Table+" ORDER BY rowid")
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rs.Close()

	var out []row
	for rs.Next() {
		var text, vec, meta string
		if err := rs.Scan(&text, &vec, &meta); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}

		metadata := map[string]any{}
		dec := json.NewDecoder(bytes.NewReader([]byte(meta)))
		dec.UseNumber()
		if err := dec.Decode(&metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}

		r := row{doc: domain.NewDocument(text, metadata)}
		if withVectors {
			if err := json.Unmarshal([]byte(vec), &r.vector); err != nil {
				return nil, fmt.Errorf("decode embedding: %w", err)
			}
		}
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func isMissingTable(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && strings.Contains(err.Error(), "no such table")
}

var _ vectorstore.Storage = (*Storage)(nil)
