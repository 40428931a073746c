package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookworm/internal/browsers"
	"bookworm/internal/cost"
	"bookworm/internal/domain"
	"bookworm/internal/loader"
)

var allPlatforms = []domain.Platform{domain.PlatformLinux, domain.PlatformDarwin, domain.PlatformWindows}

func productionRegistry(t *testing.T) *browsers.Registry {
	t.Helper()
	reg, err := browsers.Build("/home/user", "/tmp")
	require.NoError(t, err)
	return reg
}

// fakeFactory records the descriptor of every loader it builds and returns
// one document per browser carrying loader metadata.
type fakeFactory struct {
	built []browsers.Descriptor
	errs  map[domain.Browser]error
}

func (f *fakeFactory) New(desc browsers.Descriptor) (domain.Loader, error) {
	f.built = append(f.built, desc)
	if err := f.errs[desc.Browser]; err != nil {
		return staticLoader{err: err}, nil
	}
	doc := domain.NewDocument(
		fmt.Sprintf(`{"name": "%s bookmark", "url": "https://%s.example"}`, desc.Browser, desc.Browser),
		map[string]any{domain.MetadataSource: "src-" + string(desc.Browser), domain.MetadataSeqNum: 1},
	)
	return staticLoader{docs: []domain.Document{doc}}, nil
}

func snapshotOK(spec browsers.CopySpec) (string, error) { return spec.From, nil }

func TestSync_InvokesConfiguredLoaderForEverySupportedPair(t *testing.T) {
	reg := productionRegistry(t)

	for _, platform := range allPlatforms {
		t.Run(string(platform), func(t *testing.T) {
			factory := &fakeFactory{}
			store := &recordingStore{}
			svc := NewSyncService(reg, store, nil,
				WithPlatform(platform), WithLoaderFactory(factory.New), WithSnapshot(snapshotOK))

			res, err := svc.Sync(context.Background(), SyncOptions{})
			require.NoError(t, err)

			var want []browsers.Descriptor
			for _, b := range reg.Browsers() {
				if d, ok := reg.Lookup(b, platform); ok {
					want = append(want, d)
					assert.Equal(t, StateLoaded, res.States[b])
				}
			}
			require.Len(t, factory.built, len(want))
			for i := range want {
				assert.Equal(t, want[i].Browser, factory.built[i].Browser)
				assert.Equal(t, want[i].Kind, factory.built[i].Kind)
				assert.Same(t, want[i].JSON, factory.built[i].JSON)
				assert.Same(t, want[i].SQL, factory.built[i].SQL)
				assert.Same(t, want[i].Copy, factory.built[i].Copy)
			}

			require.Len(t, store.calls, 1)
			require.Len(t, store.calls[0], len(want))
			for i, doc := range store.calls[0] {
				assert.Equal(t, string(want[i].Browser), doc.Metadata[domain.MetadataBrowser])
			}
		})
	}
}

func TestSync_UnsupportedPlatformWarnsAndSkips(t *testing.T) {
	log, logs := observedLogger()
	factory := &fakeFactory{}
	store := &recordingStore{}
	reg := productionRegistry(t)

	svc := NewSyncService(reg, store, log,
		WithPlatform("plan9"), WithLoaderFactory(factory.New), WithSnapshot(snapshotOK))
	res, err := svc.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)

	warnings := logs.FilterMessage("platform not supported for browser").All()
	require.Len(t, warnings, len(reg.Browsers()))
	for i, b := range reg.Browsers() {
		ctx := warnings[i].ContextMap()
		assert.Equal(t, string(b), ctx["browser"])
		assert.Equal(t, "plan9", ctx["platform"])
		assert.Equal(t, StateSkippedUnsupportedPlatform, res.States[b])
	}
	assert.Empty(t, factory.built)
	assert.Empty(t, store.calls)
	assert.False(t, res.Stored)
}

func TestSync_FirefoxOnWindowsSkippedOthersStored(t *testing.T) {
	log, logs := observedLogger()
	factory := &fakeFactory{}
	store := &recordingStore{}

	svc := NewSyncService(productionRegistry(t), store, log,
		WithPlatform(domain.PlatformWindows), WithLoaderFactory(factory.New), WithSnapshot(snapshotOK))
	res, err := svc.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, StateSkippedUnsupportedPlatform, res.States[domain.BrowserFirefox])
	warnings := logs.FilterMessage("platform not supported for browser").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "firefox", warnings[0].ContextMap()["browser"])
	assert.Equal(t, "windows", warnings[0].ContextMap()["platform"])

	require.Len(t, store.calls, 1)
	for _, doc := range store.calls[0] {
		assert.NotEqual(t, "firefox", doc.Metadata[domain.MetadataBrowser])
	}
}

func TestSync_BrowserFilter(t *testing.T) {
	log, logs := observedLogger()
	factory := &fakeFactory{}
	store := &recordingStore{}

	svc := NewSyncService(productionRegistry(t), store, log,
		WithPlatform(domain.PlatformLinux), WithLoaderFactory(factory.New), WithSnapshot(snapshotOK))
	res, err := svc.Sync(context.Background(), SyncOptions{BrowserFilter: []domain.Browser{domain.BrowserBrave}})
	require.NoError(t, err)

	require.Len(t, factory.built, 1)
	assert.Equal(t, domain.BrowserBrave, factory.built[0].Browser)
	assert.Equal(t, StateLoaded, res.States[domain.BrowserBrave])
	assert.Equal(t, StateSkippedFiltered, res.States[domain.BrowserChrome])
	assert.Equal(t, StateSkippedFiltered, res.States[domain.BrowserFirefox])
	for _, entry := range logs.All() {
		assert.NotEqual(t, "chrome", entry.ContextMap()["browser"])
	}

	require.Len(t, store.calls, 1)
	require.Len(t, store.calls[0], 1)
}

func TestSync_NoDocumentsNeverCallsStore(t *testing.T) {
	store := &recordingStore{}
	svc := NewSyncService(productionRegistry(t), store, nil,
		WithPlatform(domain.PlatformLinux),
		WithLoaderFactory(func(browsers.Descriptor) (domain.Loader, error) { return staticLoader{}, nil }),
		WithSnapshot(snapshotOK))

	res, err := svc.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Empty(t, store.calls)
	assert.Zero(t, res.Documents)

	// everything filtered
	res, err = svc.Sync(context.Background(), SyncOptions{BrowserFilter: []domain.Browser{"netscape"}})
	require.NoError(t, err)
	assert.Empty(t, store.calls)
	for _, state := range res.States {
		assert.Equal(t, StateSkippedFiltered, state)
	}
}

func TestSync_MissingCopySourceSkipsOnlyThatBrowser(t *testing.T) {
	log, logs := observedLogger()
	factory := &fakeFactory{}
	store := &recordingStore{}

	missing := func(spec browsers.CopySpec) (string, error) {
		return "", fmt.Errorf("%w: nothing matches %s", loader.ErrSourceMissing, spec.From)
	}
	svc := NewSyncService(productionRegistry(t), store, log,
		WithPlatform(domain.PlatformLinux), WithLoaderFactory(factory.New), WithSnapshot(missing))
	res, err := svc.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, StateSkippedSourceMissing, res.States[domain.BrowserFirefox])
	assert.Len(t, logs.FilterMessage("bookmark source not found, skipping").All(), 1)
	for _, d := range factory.built {
		assert.NotEqual(t, domain.BrowserFirefox, d.Browser)
	}

	require.Len(t, store.calls, 1)
	got := map[any]bool{}
	for _, doc := range store.calls[0] {
		got[doc.Metadata[domain.MetadataBrowser]] = true
	}
	assert.Equal(t, map[any]bool{"brave": true, "chrome": true, "chromium": true, "edge": true}, got)
}

func TestSync_LoaderErrorIsolatedPerBrowser(t *testing.T) {
	log, logs := observedLogger()
	factory := &fakeFactory{errs: map[domain.Browser]error{
		domain.BrowserChrome: fmt.Errorf("%w: unexpected end of JSON", loader.ErrMalformedSource),
	}}
	store := &recordingStore{}

	svc := NewSyncService(productionRegistry(t), store, log,
		WithPlatform(domain.PlatformLinux), WithLoaderFactory(factory.New), WithSnapshot(snapshotOK))
	res, err := svc.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, StateSkippedLoadFailed, res.States[domain.BrowserChrome])
	assert.Equal(t, StateLoaded, res.States[domain.BrowserFirefox])
	assert.Len(t, logs.FilterMessage("could not load bookmarks, skipping").All(), 1)
	require.Len(t, store.calls, 1)
	assert.Len(t, store.calls[0], 4)
}

func TestSync_FailFastAbortsOnLoaderError(t *testing.T) {
	factory := &fakeFactory{errs: map[domain.Browser]error{
		domain.BrowserChrome: fmt.Errorf("%w: unexpected end of JSON", loader.ErrMalformedSource),
	}}
	store := &recordingStore{}

	svc := NewSyncService(productionRegistry(t), store, nil,
		WithPlatform(domain.PlatformLinux), WithLoaderFactory(factory.New), WithSnapshot(snapshotOK))
	_, err := svc.Sync(context.Background(), SyncOptions{FailFast: true})
	require.ErrorIs(t, err, loader.ErrMalformedSource)
	assert.Empty(t, store.calls)
}

func TestSync_MetadataKeysSurviveAttachment(t *testing.T) {
	store := &recordingStore{}
	svc := NewSyncService(productionRegistry(t), store, nil,
		WithPlatform(domain.PlatformLinux), WithLoaderFactory((&fakeFactory{}).New), WithSnapshot(snapshotOK))

	_, err := svc.Sync(context.Background(), SyncOptions{BrowserFilter: []domain.Browser{domain.BrowserEdge}})
	require.NoError(t, err)

	require.Len(t, store.calls, 1)
	md := store.calls[0][0].Metadata
	assert.Equal(t, map[string]any{
		domain.MetadataSource:  "src-edge",
		domain.MetadataSeqNum:  1,
		domain.MetadataBrowser: "edge",
	}, md)
}

type charTokenizer struct{}

func (charTokenizer) Count(text string) int { return len(text) }

func TestSync_EstimateCostIsDryRun(t *testing.T) {
	store := &recordingStore{}
	factory := &fakeFactory{}
	est := &cost.Estimator{Tokenizer: charTokenizer{}, Prices: cost.FixedPrice(2)}

	svc := NewSyncService(productionRegistry(t), store, nil,
		WithPlatform(domain.PlatformLinux), WithLoaderFactory(factory.New), WithSnapshot(snapshotOK), WithEstimator(est))
	res, err := svc.Sync(context.Background(), SyncOptions{EstimateCost: true, BrowserFilter: []domain.Browser{domain.BrowserBrave}})
	require.NoError(t, err)

	content := `{"name": "brave bookmark", "url": "https://brave.example"}`
	assert.InDelta(t, float64(len(content))*2/1_000_000, res.EstimatedCost, 1e-12)
	assert.Empty(t, store.calls)
	assert.False(t, res.Stored)
}

func TestSync_EstimateCostWithoutEstimator(t *testing.T) {
	svc := NewSyncService(productionRegistry(t), &recordingStore{}, nil,
		WithPlatform(domain.PlatformLinux), WithLoaderFactory((&fakeFactory{}).New), WithSnapshot(snapshotOK))
	_, err := svc.Sync(context.Background(), SyncOptions{EstimateCost: true})
	assert.Error(t, err)
}

func TestSync_StorageErrorPropagates(t *testing.T) {
	boom := errors.New("read-only filesystem")
	svc := NewSyncService(productionRegistry(t), &recordingStore{err: boom}, nil,
		WithPlatform(domain.PlatformLinux), WithLoaderFactory((&fakeFactory{}).New), WithSnapshot(snapshotOK))
	_, err := svc.Sync(context.Background(), SyncOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestSync_RealLoadersEndToEnd(t *testing.T) {
	dir := t.TempDir()
	chromePath := filepath.Join(dir, "Bookmarks")
	require.NoError(t, os.WriteFile(chromePath, []byte(`{"roots": {
		"bookmark_bar": {"children": [
			{"type": "url", "name": "Go", "url": "https://go.dev"},
			{"type": "folder", "name": "f", "children": [{"type": "url", "name": "Zap", "url": "https://github.com/uber-go/zap"}]}
		]},
		"other": {"children": []}
	}}`), 0o644))
	bravePath := filepath.Join(dir, "broken", "Bookmarks")
	require.NoError(t, os.MkdirAll(filepath.Dir(bravePath), 0o755))
	require.NoError(t, os.WriteFile(bravePath, []byte(`{"roots": `), 0o644))

	reg, err := browsers.NewRegistry(
		browsers.Descriptor{Browser: domain.BrowserChrome, Platform: domain.PlatformLinux, Kind: browsers.KindJSONTree,
			JSON: &browsers.JSONTreeArgs{FilePath: chromePath, Roots: browsers.ChromiumRoots}},
		browsers.Descriptor{Browser: domain.BrowserBrave, Platform: domain.PlatformLinux, Kind: browsers.KindJSONTree,
			JSON: &browsers.JSONTreeArgs{FilePath: bravePath, Roots: browsers.ChromiumRoots}},
		browsers.Descriptor{Browser: domain.BrowserFirefox, Platform: domain.PlatformLinux, Kind: browsers.KindSQLHistory,
			SQL: &browsers.SQLHistoryArgs{Query: browsers.FirefoxQuery, SourceColumns: browsers.FirefoxSourceColumns, PageContentMapper: browsers.PlacesPageContent},
			Copy: &browsers.CopySpec{From: filepath.Join(dir, "nowhere", "*.sqlite"), To: filepath.Join(dir, "scratch", "firefox.sqlite")}},
	)
	require.NoError(t, err)

	store := &recordingStore{}
	svc := NewSyncService(reg, store, nil, WithPlatform(domain.PlatformLinux))
	res, err := svc.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, StateLoaded, res.States[domain.BrowserChrome])
	assert.Equal(t, StateSkippedLoadFailed, res.States[domain.BrowserBrave])
	assert.Equal(t, StateSkippedSourceMissing, res.States[domain.BrowserFirefox])

	require.Len(t, store.calls, 1)
	docs := store.calls[0]
	require.Len(t, docs, 2)
	assert.Equal(t, `{"type":"url","name":"Go","url":"https://go.dev"}`, docs[0].PageContent)
	assert.Equal(t, "chrome", docs[1].Metadata[domain.MetadataBrowser])
	assert.Equal(t, chromePath, docs[1].Metadata[domain.MetadataSource])
	assert.Equal(t, 2, docs[1].Metadata[domain.MetadataSeqNum])
}

func TestBrowserStateString(t *testing.T) {
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "skipped (unsupported platform)", StateSkippedUnsupportedPlatform.String())
	assert.Equal(t, "BrowserState(42)", BrowserState(42).String())
}
