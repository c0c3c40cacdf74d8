// Package main is the entry point for the calc command-line calculator and
// its evaluation server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errFailed reports that a failure was already printed.
var errFailed = errors.New("failed")

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "calc [expression...]",
		Short: "Evaluate arithmetic expressions",
		Long: `Evaluate arithmetic expressions with + - * / % ** ² ³ and the bitwise
operators & | ^ ~ << >>. Each argument is one expression; without arguments,
expressions are read from standard input, one per line.`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runEval,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("calc version {{.Version}}\n")

	rootCmd.Flags().Bool("strict", false, "reject tokens left after the expression")

	rootCmd.AddCommand(newTokensCmd(), newBatchCmd(), newServeCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
