// Package browsers describes where each browser keeps its bookmarks on each
// platform and how those bookmarks are loaded.
package browsers

import (
	"errors"
	"fmt"

	"bookworm/internal/domain"
)

var (
	// ErrUnsupportedPlatform is returned when a path cannot be resolved for the host platform.
	ErrUnsupportedPlatform = errors.New("platform is not supported")

	// ErrDuplicateDescriptor is returned when a registry receives two descriptors for the same pair.
	ErrDuplicateDescriptor = errors.New("duplicate descriptor")

	// ErrInvalidDescriptor is returned when a descriptor's arguments do not match its kind.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// LoaderKind selects the loader strategy of a descriptor.
type LoaderKind int

const (
	KindJSONTree LoaderKind = iota + 1
	KindSQLHistory
)

func (k LoaderKind) String() string {
	switch k {
	case KindJSONTree:
		return "JSON_TREE"
	case KindSQLHistory:
		return "SQL_HISTORY"
	default:
		return fmt.Sprintf("LoaderKind(%d)", int(k))
	}
}

// PageContentMapper turns a database row into a document's page content.
type PageContentMapper func(row map[string]any) (string, error)

// JSONTreeArgs configures the bookmark-file loader.
type JSONTreeArgs struct {
	FilePath string
	// Roots are gjson paths whose subtrees are flattened into url nodes.
	Roots []string
}

// SQLHistoryArgs configures the history-database loader.
type SQLHistoryArgs struct {
	DatabasePath      string
	Query             string
	SourceColumns     []string
	PageContentMapper PageContentMapper
}

// CopySpec describes a snapshot taken before a locked source is read.
type CopySpec struct {
	From string // glob
	To   string
}

// Descriptor is the registry entry for one browser on one platform.
type Descriptor struct {
	Browser  domain.Browser
	Platform domain.Platform
	Kind     LoaderKind
	JSON     *JSONTreeArgs
	SQL      *SQLHistoryArgs
	Copy     *CopySpec
}

func (d Descriptor) validate() error {
	switch d.Kind {
	case KindJSONTree:
		if d.JSON == nil || d.SQL != nil {
			return fmt.Errorf("%w: %s/%s: %s needs JSON args only", ErrInvalidDescriptor, d.Browser, d.Platform, d.Kind)
		}
	case KindSQLHistory:
		if d.SQL == nil || d.JSON != nil {
			return fmt.Errorf("%w: %s/%s: %s needs SQL args only", ErrInvalidDescriptor, d.Browser, d.Platform, d.Kind)
		}
		if d.SQL.PageContentMapper == nil {
			return fmt.Errorf("%w: %s/%s: missing page content mapper", ErrInvalidDescriptor, d.Browser, d.Platform)
		}
	default:
		return fmt.Errorf("%w: %s/%s: unknown kind %s", ErrInvalidDescriptor, d.Browser, d.Platform, d.Kind)
	}
	return nil
}

type key struct {
	browser  domain.Browser
	platform domain.Platform
}

// Registry maps (browser, platform) pairs to descriptors. It is immutable once built.
type Registry struct {
	entries map[key]Descriptor
	order   []domain.Browser
}

// NewRegistry builds a registry from descs. Browsers are iterated in the
// order they first appear.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{entries: make(map[key]Descriptor, len(descs))}
	seen := make(map[domain.Browser]struct{})
	for _, d := range descs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		k := key{d.Browser, d.Platform}
		if _, exists := r.entries[k]; exists {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateDescriptor, d.Browser, d.Platform)
		}
		r.entries[k] = d
		if _, ok := seen[d.Browser]; !ok {
			seen[d.Browser] = struct{}{}
			r.order = append(r.order, d.Browser)
		}
	}
	return r, nil
}

// Lookup returns the descriptor for the pair. A false result means the
// browser is not supported on that platform.
func (r *Registry) Lookup(b domain.Browser, p domain.Platform) (Descriptor, bool) {
	d, ok := r.entries[key{b, p}]
	return d, ok
}

// Browsers returns every configured browser in iteration order.
func (r *Registry) Browsers() []domain.Browser {
	out := make([]domain.Browser, len(r.order))
	copy(out, r.order)
	return out
}

// AllBrowsers returns the set of configured browsers.
func (r *Registry) AllBrowsers() map[domain.Browser]struct{} {
	out := make(map[domain.Browser]struct{}, len(r.order))
	for _, b := range r.order {
		out[b] = struct{}{}
	}
	return out
}

// Len returns the number of descriptors.
func (r *Registry) Len() int { return len(r.entries) }
