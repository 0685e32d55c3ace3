package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSelfTestCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Ask every rule its example and check the expected answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			checks, err := engine.SelfTest(cmd.Context())
			if err != nil {
				return err
			}
			failed := 0
			for _, c := range checks {
				status := "ok  "
				if !c.Passed {
					status = "FAIL"
					failed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %q -> %q\n", status, c.Example, c.Got)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d checks, %d failed\n", len(checks), failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(checks))
			}
			return nil
		},
	}
}
