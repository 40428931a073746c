package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"bookworm/internal/browsers"
	"bookworm/internal/cost"
	"bookworm/internal/domain"
	"bookworm/internal/loader"
	"bookworm/internal/logger"
)

// BrowserState is the outcome of one browser within a sync run.
type BrowserState int

const (
	StatePending BrowserState = iota
	StateSkippedFiltered
	StateSkippedUnsupportedPlatform
	StateSkippedSourceMissing
	StateSkippedLoadFailed
	StateLoaded
)

func (s BrowserState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSkippedFiltered:
		return "skipped (filtered)"
	case StateSkippedUnsupportedPlatform:
		return "skipped (unsupported platform)"
	case StateSkippedSourceMissing:
		return "skipped (source missing)"
	case StateSkippedLoadFailed:
		return "skipped (load failed)"
	case StateLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("BrowserState(%d)", int(s))
	}
}

// SyncOptions controls one sync run.
type SyncOptions struct {
	// BrowserFilter limits the run to these browsers. Empty means all.
	BrowserFilter []domain.Browser
	// EstimateCost turns the run into a dry run that only prices the documents.
	EstimateCost bool
	// FailFast aborts the run on a loader error instead of skipping the browser.
	// Unsupported platforms and missing copy sources are always skipped.
	FailFast bool
}

// SyncResult reports what a sync run did.
type SyncResult struct {
	States        map[domain.Browser]BrowserState
	Documents     int
	EstimatedCost float64
	Stored        bool
}

// SyncService extracts bookmarks from every configured browser and hands the
// combined set to the document store.
type SyncService struct {
	registry  *browsers.Registry
	platform  domain.Platform
	newLoader loader.Factory
	snapshot  func(browsers.CopySpec) (string, error)
	store     domain.DocumentStore
	estimator *cost.Estimator
	log       *zap.Logger
}

// SyncOption customises a SyncService.
type SyncOption func(*SyncService)

// WithPlatform overrides the detected host platform.
func WithPlatform(p domain.Platform) SyncOption {
	return func(s *SyncService) { s.platform = p }
}

// WithLoaderFactory replaces loader.New.
func WithLoaderFactory(f loader.Factory) SyncOption {
	return func(s *SyncService) { s.newLoader = f }
}

// WithSnapshot replaces loader.Snapshot as the copy-before-read step.
func WithSnapshot(f func(browsers.CopySpec) (string, error)) SyncOption {
	return func(s *SyncService) { s.snapshot = f }
}

// WithEstimator sets the estimator used for dry runs.
func WithEstimator(e *cost.Estimator) SyncOption {
	return func(s *SyncService) { s.estimator = e }
}

func NewSyncService(registry *browsers.Registry, store domain.DocumentStore, log *zap.Logger, opts ...SyncOption) *SyncService {
	s := &SyncService{
		registry:  registry,
		platform:  domain.CurrentPlatform(),
		newLoader: loader.New,
		snapshot:  loader.Snapshot,
		store:     store,
		log:       logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs the pipeline once. Errors of a single browser are logged and
// contained unless opts.FailFast is set; storage and estimation errors are returned.
func (s *SyncService) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	result := SyncResult{States: make(map[domain.Browser]BrowserState)}

	var filter map[domain.Browser]struct{}
	if len(opts.BrowserFilter) > 0 {
		filter = make(map[domain.Browser]struct{}, len(opts.BrowserFilter))
		for _, b := range opts.BrowserFilter {
			filter[b] = struct{}{}
		}
	}

	var docs []domain.Document
	for _, browser := range s.registry.Browsers() {
		result.States[browser] = StatePending

		if filter != nil {
			if _, ok := filter[browser]; !ok {
				result.States[browser] = StateSkippedFiltered
				continue
			}
		}

		state, loaded, err := s.syncBrowser(browser)
		result.States[browser] = state
		if err != nil {
			if opts.FailFast {
				return result, fmt.Errorf("sync %s: %w", browser, err)
			}
			continue
		}
		docs = append(docs, loaded...)
	}
	result.Documents = len(docs)

	if opts.EstimateCost {
		if s.estimator == nil {
			return result, errors.New("cost estimation is not configured")
		}
		estimate, err := s.estimator.EstimateInteractive(ctx, docs)
		if err != nil {
			return result, fmt.Errorf("estimate cost: %w", err)
		}
		result.EstimatedCost = estimate
		return result, nil
	}

	if len(docs) == 0 {
		s.log.Info("no bookmarks found, nothing stored")
		return result, nil
	}

	s.log.Debug("storing documents", zap.Int("count", len(docs)))
	if err := s.store.StoreDocuments(ctx, docs); err != nil {
		return result, fmt.Errorf("store documents: %w", err)
	}
	result.Stored = true
	return result, nil
}

// syncBrowser returns a non-nil error only for loader failures that FailFast
// may escalate.
func (s *SyncService) syncBrowser(browser domain.Browser) (BrowserState, []domain.Document, error) {
	log := s.log.With(zap.Stringer("browser", browser), zap.Stringer("platform", s.platform))

	desc, ok := s.registry.Lookup(browser, s.platform)
	if !ok {
		log.Warn("platform not supported for browser")
		return StateSkippedUnsupportedPlatform, nil, nil
	}

	if desc.Copy != nil {
		src, err := s.snapshot(*desc.Copy)
		if err != nil {
			if errors.Is(err, loader.ErrSourceMissing) {
				log.Warn("bookmark source not found, skipping", zap.String("glob", desc.Copy.From))
			} else {
				log.Error("could not copy bookmark source, skipping", zap.Error(err))
			}
			return StateSkippedSourceMissing, nil, nil
		}
		log.Debug("copied bookmark source", zap.String("from", src), zap.String("to", desc.Copy.To))
	}

	l, err := s.newLoader(desc)
	if err != nil {
		log.Error("could not build loader, skipping", zap.Error(err))
		return StateSkippedLoadFailed, nil, err
	}
	docs, err := l.Load()
	if err != nil {
		log.Error("could not load bookmarks, skipping", zap.Error(err))
		return StateSkippedLoadFailed, nil, err
	}

	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			log.Debug("bookmark without name or url", zap.Int("index", i))
		}
		domain.AttachBrowser(&docs[i], browser)
	}
	log.Info("loaded bookmarks", zap.Int("count", len(docs)))
	return StateLoaded, docs, nil
}
