package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"bookworm/internal/browsers"
)

// Snapshot copies the first file matching spec.From to spec.To, replacing any
// earlier copy. It returns ErrSourceMissing when nothing matches.
func Snapshot(spec browsers.CopySpec) (string, error) {
	matches, err := filepath.Glob(spec.From)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", spec.From, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: nothing matches %s", ErrSourceMissing, spec.From)
	}
	sort.Strings(matches)
	src := matches[0]

	if err := os.MkdirAll(filepath.Dir(spec.To), 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	if err := copyFile(src, spec.To); err != nil {
		return "", err
	}
	return src, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}
