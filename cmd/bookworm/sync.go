package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"bookworm/internal/browsers"
	"bookworm/internal/cost"
	"bookworm/internal/domain"
	"bookworm/internal/prompt"
	"bookworm/internal/service"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the bookmark database with the latest changes",
	Long:  "Reads the bookmarks of every supported browser on this machine, embeds them and replaces the stored set.",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

var (
	syncEstimateCost  bool
	syncBrowserFilter []string
	syncFailFast      bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncEstimateCost, "estimate-cost", false, "Only estimate the embedding cost, do not store anything")
	syncCmd.Flags().StringSliceVar(&syncBrowserFilter, "browser-filter", nil, "Only sync this browser (repeatable)")
	syncCmd.Flags().BoolVar(&syncFailFast, "fail-fast", false, "Abort when a browser's bookmarks cannot be read instead of skipping it")

	rootCmd.AddCommand(syncCmd)
}

func parseBrowserFilter(names []string) ([]domain.Browser, error) {
	out := make([]domain.Browser, 0, len(names))
	for _, n := range names {
		b, err := domain.ParseBrowser(n)
		if err != nil {
			return nil, &usageError{err}
		}
		out = append(out, b)
	}
	return out, nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	filter, err := parseBrowserFilter(syncBrowserFilter)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	registry, err := browsers.Default()
	if err != nil {
		return fmt.Errorf("failed to build browser registry: %w", err)
	}

	var store domain.DocumentStore
	opts := []service.SyncOption{}
	if syncEstimateCost {
		tok, err := cost.NewTiktokenTokenizer(a.cfg.Cost.Encoding)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithEstimator(&cost.Estimator{
			Tokenizer: tok,
			Prices:    prompt.PriceSource{Model: a.cfg.Embedder.Model},
		}))
	} else {
		backend, err := a.backend()
		if err != nil {
			return err
		}
		open, err := a.storeOpener()
		if err != nil {
			return err
		}
		store = service.NewIndexer(a.embedder(backend), open, a.log)
	}

	svc := service.NewSyncService(registry, store, a.log, opts...)
	res, err := svc.Sync(cmd.Context(), service.SyncOptions{
		BrowserFilter: filter,
		EstimateCost:  syncEstimateCost,
		FailFast:      syncFailFast,
	})
	printSyncResult(cmd.OutOrStdout(), registry.Browsers(), res, syncEstimateCost)
	return err
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	costStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func printSyncResult(w io.Writer, order []domain.Browser, res service.SyncResult, estimate bool) {
	for _, b := range order {
		state, ok := res.States[b]
		if !ok {
			continue
		}
		style := mutedStyle
		if state == service.StateLoaded {
			style = goodStyle
		}
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-9s", b)), style.Render(state.String()))
	}
	switch {
	case estimate:
		fmt.Fprintf(w, "Estimated cost to embed %d bookmarks: %s\n", res.Documents, costStyle.Render(fmt.Sprintf("$%.6f", res.EstimatedCost)))
	case res.Stored:
		fmt.Fprintf(w, "Stored %d bookmarks.\n", res.Documents)
	}
}
