// Package main is the bookworm CLI: sync browser bookmarks into a local vector
// store and search them in natural language.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and maps errors to exit codes: 2 for usage errors,
// 1 for everything else.
func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var uerr *usageError
	if errors.As(err, &uerr) {
		if !errors.Is(err, errMissingCommand) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 2
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
