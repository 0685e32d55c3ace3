package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cognicore/susimind/pkg/susimind/maintenance"
)

// fileWriter writes rule drafts to a file.
type fileWriter struct {
	path string
}

func (w fileWriter) WriteRules(_ context.Context, content []byte) error {
	return os.WriteFile(w.path, content, 0o644)
}

func newUnansweredCmd(opts *globalOptions) *cobra.Command {
	var (
		top      int
		drafts   string
		minCount int
	)
	cmd := &cobra.Command{
		Use:   "unanswered",
		Short: "Show what users asked that no rule answered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			out := cmd.OutOrStdout()

			mem := engine.Memory()
			if err := mem.ScanUnanswered(cmd.Context()); err != nil {
				return err
			}
			stats := mem.UnansweredTokens(engine.Mind().Pipeline(engine.Config().Lang()))
			for i, st := range stats {
				if top > 0 && i == top {
					break
				}
				fmt.Fprintf(out, "%-24s %5d\n", st.Token, st.Count)
				queries := make([]string, 0, len(st.Queries))
				for q := range st.Queries {
					queries = append(queries, q)
				}
				sort.Strings(queries)
				for _, q := range queries {
					fmt.Fprintf(out, "    %5d  %s\n", st.Queries[q], q)
				}
			}

			if drafts == "" {
				return nil
			}
			exporter := &maintenance.DraftExporter{
				Writer:   fileWriter{path: drafts},
				Language: string(engine.Config().Lang()),
				Min:      minCount,
			}
			n, err := exporter.Export(cmd.Context(), stats)
			if err != nil {
				return fmt.Errorf("write drafts: %w", err)
			}
			fmt.Fprintf(out, "wrote %d rule drafts to %s\n", n, drafts)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 20, "Tokens to show (0: all)")
	cmd.Flags().StringVar(&drafts, "drafts", "", "Write rule drafts for the unanswered queries to this file")
	cmd.Flags().IntVar(&minCount, "min", 2, "Only draft queries of tokens asked at least this often")
	return cmd
}
