package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newMemoriesCmd(opts *globalOptions) *cobra.Command {
	var (
		client string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "List conversations, newest first, or the turns of one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			out := cmd.OutOrStdout()

			if client != "" {
				cognitions, err := engine.Memory().Cognitions(cmd.Context(), client)
				if err != nil {
					return err
				}
				for i, c := range cognitions {
					if limit > 0 && i == limit {
						break
					}
					fmt.Fprintf(out, "%s  > %s\n", c.QueryDate.Format(time.RFC3339), c.Query)
					if expr := c.Expression(); expr != "" {
						fmt.Fprintf(out, "%s  < %s\n", c.AnswerDate.Format(time.RFC3339), expr)
					}
				}
				return nil
			}

			all, err := engine.Memory().AllMemories(cmd.Context())
			if err != nil {
				return err
			}
			for i, m := range all {
				if limit > 0 && i == limit {
					break
				}
				latest := m.Awareness.Latest()
				fmt.Fprintf(out, "%-40s %5d  %s  %s\n",
					m.Client, m.Awareness.Len(), latest.QueryDate.Format(time.RFC3339), latest.Query)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "Show the turns of one conversation")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum lines (0: all)")
	return cmd
}
