package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/calc/pkg/calc"
)

func runEval(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")
	eval := calc.Eval
	if strict {
		eval = calc.EvalAll
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	failed := false
	report := func(expr string) {
		v, err := eval(expr)
		if err != nil {
			fmt.Fprintln(errOut, err)
			failed = true
			return
		}
		fmt.Fprintln(out, calc.FormatResult(v))
	}

	if len(args) > 0 {
		for _, expr := range args {
			report(expr)
		}
	} else if err := eachLine(cmd.InOrStdin(), report); err != nil {
		fmt.Fprintln(errOut, err)
		failed = true
	}

	if failed {
		return errFailed
	}
	return nil
}

// eachLine calls fn for every non-blank line of r. Read failures are
// returned as calculator IO errors.
func eachLine(r io.Reader, fn func(string)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fn(line)
	}
	if err := sc.Err(); err != nil {
		return calc.NewIOError(err)
	}
	return nil
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <expression>",
		Short: "Print the tokens of an expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := calc.Tokenize(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return errFailed
			}
			out := cmd.OutOrStdout()
			for _, tok := range tokens {
				if tok.Type == calc.TokenNumber {
					fmt.Fprintf(out, "%s %s @%d\n", tok.Type, calc.FormatNumber(tok.Value), tok.Pos)
				} else {
					fmt.Fprintf(out, "%s @%d\n", tok.Type, tok.Pos)
				}
			}
			return nil
		},
	}
}
