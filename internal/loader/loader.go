// Package loader reads browser bookmark sources into documents.
package loader

import (
	"errors"
	"fmt"

	"bookworm/internal/browsers"
	"bookworm/internal/domain"
)

var (
	// ErrSourceMissing is returned when a snapshot glob matches no file.
	ErrSourceMissing = errors.New("source missing")

	// ErrMalformedSource is returned when a bookmark file cannot be parsed.
	ErrMalformedSource = errors.New("malformed source")
)

// Factory builds the loader for a descriptor.
type Factory func(desc browsers.Descriptor) (domain.Loader, error)

// New selects the loader implementation from the descriptor's kind. A SQL
// descriptor with a copy step reads the snapshot, not the original file.
func New(desc browsers.Descriptor) (domain.Loader, error) {
	switch desc.Kind {
	case browsers.KindJSONTree:
		if desc.JSON == nil {
			return nil, fmt.Errorf("%w: %s has no JSON arguments", browsers.ErrInvalidDescriptor, desc.Browser)
		}
		return NewJSONTree(*desc.JSON), nil
	case browsers.KindSQLHistory:
		if desc.SQL == nil {
			return nil, fmt.Errorf("%w: %s has no SQL arguments", browsers.ErrInvalidDescriptor, desc.Browser)
		}
		args := *desc.SQL
		if desc.Copy != nil {
			args.DatabasePath = desc.Copy.To
		}
		return NewSQLHistory(args), nil
	default:
		return nil, fmt.Errorf("%w: unknown loader kind %s", browsers.ErrInvalidDescriptor, desc.Kind)
	}
}
