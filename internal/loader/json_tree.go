package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"bookworm/internal/browsers"
	"bookworm/internal/domain"
)

// JSONTree flattens a Chromium-style Bookmarks file into one document per url node.
type JSONTree struct {
	path  string
	roots []string
}

// NewJSONTree creates a loader for the given bookmark file.
func NewJSONTree(args browsers.JSONTreeArgs) *JSONTree {
	return &JSONTree{path: args.FilePath, roots: args.Roots}
}

// Load reads the file and returns every object with "type": "url" below the
// configured roots, in document order. Folders are walked, not emitted.
func (l *JSONTree) Load() ([]domain.Document, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read bookmarks %s: %w", l.path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrMalformedSource, l.path)
	}

	var docs []domain.Document
	emit := func(node gjson.Result) error {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(node.Raw)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedSource, l.path, err)
		}
		docs = append(docs, domain.NewDocument(buf.String(), map[string]any{
			domain.MetadataSource: l.path,
			domain.MetadataSeqNum: len(docs) + 1,
		}))
		return nil
	}

	for _, root := range l.roots {
		res := gjson.GetBytes(data, root)
		if !res.Exists() {
			continue
		}
		if err := walk(res, emit); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// walk visits node and everything below it in pre-order, calling emit for url nodes.
func walk(node gjson.Result, emit func(gjson.Result) error) error {
	if node.IsObject() && node.Get("type").String() == "url" {
		if err := emit(node); err != nil {
			return err
		}
	}
	if !node.IsObject() && !node.IsArray() {
		return nil
	}
	var err error
	node.ForEach(func(_, child gjson.Result) bool {
		err = walk(child, emit)
		return err == nil
	})
	return err
}
