package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/susimind/pkg/susimind"
)

func newAskCmd(opts *globalOptions) *cobra.Command {
	var (
		client  string
		debug   bool
		asJSON  bool
		answers int
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			answer, err := engine.Ask(cmd.Context(), susimind.Request{
				Client:     client,
				Text:       strings.Join(args, " "),
				MaxAnswers: answers,
				Debug:      debug,
			})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(answer.Cognition)
			}
			printAnswer(cmd.OutOrStdout(), answer, debug)
			return nil
		},
	}
	cmd.Flags().StringVar(&client, "client", "cli", "Conversation id")
	cmd.Flags().BoolVar(&debug, "debug", false, "Show the tried rules")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the cognition as JSON")
	cmd.Flags().IntVarP(&answers, "answers", "n", 0, "Answers to collect (default: configuration)")
	return cmd
}
