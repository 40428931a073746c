package main

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookworm/internal/opener"
	"bookworm/internal/prompt"
	"bookworm/internal/service"
	"bookworm/internal/tui"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Search for a bookmark",
	Long:  "Finds the stored bookmarks closest to your question, lets the language model pick the relevant ones and opens the one you choose.",
	Args:  cobra.NoArgs,
	RunE:  runAsk,
}

var (
	askTopK  int
	askQuery string
)

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "n", 0, "Number of stored bookmarks handed to the model as context (default from config)")
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "Question to ask; prompts when omitted")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, _ []string) error {
	if askTopK < 0 {
		return &usageError{errors.New("-n must be positive")}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	backend, err := a.backend()
	if err != nil {
		return err
	}
	open, err := a.storeOpener()
	if err != nil {
		return err
	}
	topK := a.cfg.Ask.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	ctx := cmd.Context()
	svc := service.NewAskService(a.embedder(backend), open, a.completer(backend), topK, a.log)

	ok, err := svc.IsValid(ctx)
	if err != nil {
		return err
	}
	if !ok {
		a.log.Info(`The bookmark database is empty. Run "bookworm sync" first.`)
		return nil
	}

	query := strings.TrimSpace(askQuery)
	if query == "" {
		if query, err = prompt.Query(ctx); err != nil {
			return err
		}
	}
	a.log.Debug("asking", zap.String("query", query), zap.Int("top_k", topK))

	answer, err := svc.Ask(ctx, query)
	if err != nil {
		return err
	}
	if len(answer.Bookmarks) == 0 {
		a.log.Info(`No bookmarks found for the query. Make sure you have run "bookworm sync" and the query is relevant to your bookmarks.`)
		return nil
	}

	final, err := tea.NewProgram(tui.New(answer.Bookmarks, debug), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("result picker: %w", err)
	}
	picked := final.(tui.Model).Chosen()
	if picked == nil {
		return nil
	}
	return opener.New(a.log, opener.WithOutput(cmd.OutOrStdout())).Open(ctx, *picked)
}
