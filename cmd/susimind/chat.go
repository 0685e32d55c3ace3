package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cognicore/susimind/pkg/susimind"
	"github.com/cognicore/susimind/pkg/susimind/action"
)

func newChatCmd(opts *globalOptions) *cobra.Command {
	var (
		client string
		debug  bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the rule base (Ctrl+D to exit)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			if client == "" {
				client = uuid.NewString()
			}
			return chat(cmd.Context(), engine, client, debug, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "Conversation id (default: a new UUID)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Show the tried rules")
	return cmd
}

func chat(ctx context.Context, engine *susimind.Engine, client string, debug bool, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "susimind (conversation %s)\n", client)
	fmt.Fprintln(out, "Type your question (Ctrl+D to exit):")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		answer, err := engine.Ask(ctx, susimind.Request{Client: client, Text: text, Debug: debug})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintln(out, "Error:", err)
			continue
		}
		printAnswer(out, answer, debug)
	}
	fmt.Fprintln(out, "\nGoodbye!")
	return scanner.Err()
}

func printAnswer(out io.Writer, a *susimind.Answer, debug bool) {
	if debug {
		for _, trial := range a.Reaction.Trace {
			fmt.Fprintf(out, "  [%s] %s\n", trial.Outcome, trial.Sample)
		}
	}
	if !a.Answered() {
		fmt.Fprintln(out, "(no answer)")
		return
	}
	for _, act := range a.Reaction.Actions() {
		switch act.Type {
		case action.Answer:
			fmt.Fprintln(out, act.Expression)
		case action.Anchor:
			fmt.Fprintf(out, "%s <%s>\n", act.Attr("text"), act.Attr("link"))
		default:
			b, _ := json.Marshal(act)
			fmt.Fprintf(out, "[%s] %s\n", act.Type, b)
		}
	}
}
