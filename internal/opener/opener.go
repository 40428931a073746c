// Package opener hands a URL to the desktop's default browser.
package opener

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"bookworm/internal/domain"
	"bookworm/internal/logger"
)

// Runner starts an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// Opener opens URLs with the platform's launcher.
type Opener struct {
	platform domain.Platform
	run      Runner
	out      io.Writer
	log      *zap.Logger
}

// Option customises an Opener.
type Option func(*Opener)

// WithPlatform overrides the detected platform.
func WithPlatform(p domain.Platform) Option { return func(o *Opener) { o.platform = p } }

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option { return func(o *Opener) { o.run = r } }

// WithOutput sets where the URL is printed on unsupported platforms.
func WithOutput(w io.Writer) Option { return func(o *Opener) { o.out = w } }

func New(log *zap.Logger, opts ...Option) *Opener {
	o := &Opener{
		platform: domain.CurrentPlatform(),
		run:      execRunner,
		out:      os.Stdout,
		log:      logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Command returns the launcher invocation for platform, or false when the
// platform has none.
func Command(p domain.Platform, url string) (string, []string, bool) {
	switch p {
	case domain.PlatformLinux:
		return "xdg-open", []string{url}, true
	case domain.PlatformDarwin:
		return "open", []string{url}, true
	case domain.PlatformWindows:
		// the empty argument is the window title start expects before a quoted target
		return "cmd", []string{"/c", "start", "", url}, true
	default:
		return "", nil, false
	}
}

// Open launches url. On platforms without a known launcher it prints the URL instead.
func (o *Opener) Open(ctx context.Context, bm domain.Bookmark) error {
	name, args, ok := Command(o.platform, bm.URL)
	if !ok {
		o.log.Warn(fmt.Sprintf("Platform %q not supported. Printing URL instead", o.platform))
		_, err := fmt.Fprintln(o.out, bm.URL)
		return err
	}
	o.log.Debug("opening bookmark", zap.String("title", bm.Title), zap.String("url", bm.URL), zap.String("command", name))
	if err := o.run(ctx, name, args...); err != nil {
		return fmt.Errorf("open %s: %w", bm.URL, err)
	}
	return nil
}

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}
