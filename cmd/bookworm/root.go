package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errMissingCommand = errors.New("a command is required")

// usageError marks command-line mistakes, which exit with status 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "bookworm",
	Short: "LLM-powered bookmark search",
	Long:  "Bookworm extracts bookmarks from your browsers, embeds them into a local vector store and finds them again from a natural-language question.",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return &usageError{fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		_ = cmd.Usage()
		return &usageError{errMissingCommand}
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

var (
	cfgPath string
	debug   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./bookworm.yaml or the user config file if not provided)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})
}
