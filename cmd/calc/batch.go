package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/calc/pkg/batch"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Evaluate a YAML batch file and report the outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read batch: %w", err)
			}
			f, err := batch.Parse(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			strict, _ := cmd.Flags().GetBool("strict")
			outcomes := batch.Run(f, strict)
			raw, err := batch.Encode(outcomes)
			if err != nil {
				return fmt.Errorf("encode outcomes: %w", err)
			}
			if _, err := cmd.OutOrStdout().Write(raw); err != nil {
				return err
			}

			if n := batch.Failed(outcomes); n > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d expressions failed\n", n, len(outcomes))
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().Bool("strict", false, "reject tokens left after each expression")
	return cmd
}
