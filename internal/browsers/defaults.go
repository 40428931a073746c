package browsers

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bookworm/internal/domain"
)

// ChromiumRoots are the subtrees of a Chromium-family Bookmarks file that hold bookmarks.
var ChromiumRoots = []string{"roots.bookmark_bar.children", "roots.other.children"}

// FirefoxSourceColumns are copied from each places row into document metadata.
var FirefoxSourceColumns = []string{"id", "dateAdded", "lastModified"}

// FirefoxQuery selects bookmarks from a places.sqlite database.
const FirefoxQuery = `
SELECT
    moz_bookmarks.id AS id,
    moz_bookmarks.title AS title,
    moz_places.url AS url,
    datetime(moz_bookmarks.dateAdded / 1000000, 'unixepoch') AS dateAdded,
    datetime(moz_bookmarks.lastModified / 1000000, 'unixepoch') AS lastModified
FROM moz_bookmarks
JOIN moz_places ON moz_bookmarks.fk = moz_places.id
WHERE moz_bookmarks.type = 1
    AND moz_bookmarks.title IS NOT NULL
`

var chromiumDirs = map[domain.Browser]map[domain.Platform][]string{
	domain.BrowserBrave: {
		domain.PlatformLinux:   {".config", "BraveSoftware", "Brave-Browser"},
		domain.PlatformDarwin:  {"Library", "Application Support", "BraveSoftware", "Brave-Browser"},
		domain.PlatformWindows: {"AppData", "Local", "BraveSoftware", "Brave-Browser", "User Data"},
	},
	domain.BrowserChrome: {
		domain.PlatformLinux:   {".config", "google-chrome"},
		domain.PlatformDarwin:  {"Library", "Application Support", "Google", "Chrome"},
		domain.PlatformWindows: {"AppData", "Local", "Google", "Chrome", "User Data"},
	},
	domain.BrowserChromium: {
		domain.PlatformLinux:   {".config", "chromium"},
		domain.PlatformDarwin:  {"Library", "Application Support", "Chromium"},
		domain.PlatformWindows: {"AppData", "Local", "Chromium", "User Data"},
	},
	domain.BrowserEdge: {
		domain.PlatformLinux:   {".config", "microsoft-edge"},
		domain.PlatformDarwin:  {"Library", "Application Support", "Microsoft Edge"},
		domain.PlatformWindows: {"AppData", "Local", "Microsoft", "Edge", "User Data"},
	},
}

var defaultPlatforms = []domain.Platform{domain.PlatformLinux, domain.PlatformDarwin, domain.PlatformWindows}

// FirefoxPlacesGlob returns the glob matching the default-release profile's
// places.sqlite under home.
func FirefoxPlacesGlob(p domain.Platform, home string) (string, error) {
	switch p {
	case domain.PlatformLinux:
		return filepath.Join(home, ".mozilla", "firefox", "*.default-release", "places.sqlite"), nil
	case domain.PlatformDarwin:
		return filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles", "*.default-release", "places.sqlite"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, p)
	}
}

// ScratchDir is where locked sources are copied before reading.
func ScratchDir(tmp string) string {
	return filepath.Join(tmp, "bookworm")
}

// Build returns the production descriptors rooted at home, with snapshots under tmp.
func Build(home, tmp string) (*Registry, error) {
	var descs []Descriptor
	for _, b := range []domain.Browser{domain.BrowserBrave, domain.BrowserChrome, domain.BrowserChromium, domain.BrowserEdge} {
		for _, p := range defaultPlatforms {
			parts := append([]string{home}, chromiumDirs[b][p]...)
			parts = append(parts, "Default", "Bookmarks")
			descs = append(descs, Descriptor{
				Browser:  b,
				Platform: p,
				Kind:     KindJSONTree,
				JSON:     &JSONTreeArgs{FilePath: filepath.Join(parts...), Roots: ChromiumRoots},
			})
		}
	}

	scratch := filepath.Join(ScratchDir(tmp), "firefox.sqlite")
	for _, p := range defaultPlatforms {
		glob, err := FirefoxPlacesGlob(p, home)
		if err != nil {
			continue
		}
		descs = append(descs, Descriptor{
			Browser:  domain.BrowserFirefox,
			Platform: p,
			Kind:     KindSQLHistory,
			SQL: &SQLHistoryArgs{
				DatabasePath:      scratch,
				Query:             FirefoxQuery,
				SourceColumns:     FirefoxSourceColumns,
				PageContentMapper: PlacesPageContent,
			},
			Copy: &CopySpec{From: glob, To: scratch},
		})
	}
	return NewRegistry(descs...)
}

func loadDefault() (*Registry, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return Build(home, os.TempDir())
}

var defaultRegistry = sync.OnceValues(loadDefault)

// Default returns the process-wide registry. Home and temp directories are
// resolved on the first call only.
func Default() (*Registry, error) {
	return defaultRegistry()
}
