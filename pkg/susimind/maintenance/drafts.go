package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/susimind/pkg/susimind/intent"
	"github.com/cognicore/susimind/pkg/susimind/memory"
)

// RuleWriter persists a rule file to a destination (file, DB, etc.).
type RuleWriter interface {
	WriteRules(ctx context.Context, content []byte) error
}

// DraftExporter turns unanswered queries into a rule file skeleton. Every
// draft carries the query as phrase and example; authors fill in the
// answer.
type DraftExporter struct {
	Writer   RuleWriter
	Language string
	// Min skips tokens asked about fewer times.
	Min int
}

// Placeholder is the answer of every draft.
const Placeholder = "(write the answer here)"

// Export writes one draft per unanswered query, grouped by the token they
// share. Queries are drafted once, under their most frequent token.
func (e *DraftExporter) Export(ctx context.Context, stats []memory.TokenStat) (int, error) {
	if e.Writer == nil {
		return 0, errors.New("draft exporter: nil writer")
	}
	file := intent.File{Language: e.Language}
	drafted := make(map[string]bool)
	for _, st := range stats {
		if st.Count < e.Min {
			continue
		}
		for _, q := range sortedQueries(st.Queries) {
			if drafted[q] {
				continue
			}
			drafted[q] = true
			file.Intents = append(file.Intents, intent.Definition{
				Phrases: []intent.Phrase{{Type: "pattern", Expression: q}},
				Actions: []map[string]any{{"type": "answer", "select": "random", "phrases": []string{Placeholder}}},
				Example: q,
				Comment: fmt.Sprintf("token %q, asked %d times", st.Token, st.Queries[q]),
			})
		}
	}
	if len(file.Intents) == 0 {
		return 0, nil
	}
	out, err := yaml.Marshal(file)
	if err != nil {
		return 0, err
	}
	return len(file.Intents), e.Writer.WriteRules(ctx, out)
}

func sortedQueries(queries map[string]int) []string {
	out := make([]string, 0, len(queries))
	for q := range queries {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if queries[out[i]] != queries[out[j]] {
			return queries[out[i]] > queries[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
