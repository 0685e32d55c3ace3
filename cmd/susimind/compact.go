package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/susimind/pkg/susimind/maintenance"
)

func newCompactCmd(opts *globalOptions) *cobra.Command {
	var retention int
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Trim every conversation log to the retention bound",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if retention <= 0 {
				retention = engine.Config().LongTermAttention
			}
			c := &maintenance.Compactor{
				Store:     engine.Memory().Store(),
				Retention: retention,
				Logger:    engine.Logger().Named("compact"),
			}
			res, err := c.Compact(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d, rewritten %d, dropped %d records, %d errors\n",
				res.Processed, res.Rewritten, res.Dropped, res.Errors)
			return nil
		},
	}
	cmd.Flags().IntVar(&retention, "retention", 0, "Records kept per conversation (default: long_term_attention)")
	return cmd
}
