// Package intent holds the dialogue rules: trigger utterances, an inference
// pipeline and the actions to render once the pipeline succeeds.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/cognicore/susimind/pkg/susimind/action"
	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/ingest"
	"github.com/cognicore/susimind/pkg/susimind/language"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/rank"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// CatchAll is the trigger key of intents reachable from any input.
const CatchAll = "*"

// Source identifies where intents come from.
type Source struct {
	Origin   string // skill id, usually the rule file path
	Language language.Language
}

// Inferrer executes one step; *inference.Dispatcher implements it.
type Inferrer interface {
	Infer(ctx context.Context, step *inference.Step, arg *argument.Argument) *thought.Thought
}

type scored struct {
	breakdown rank.Breakdown
	ok        bool
}

// Intent is one compiled rule. Everything but the user subscore is
// immutable after construction.
type Intent struct {
	utterances  []*pattern.Utterance
	steps       []*inference.Step
	actions     []*action.Action
	keys        []string
	source      Source
	comment     string
	example     string
	expect      string
	description string
	depth       int
	id          uint64

	mu           sync.Mutex
	userSubscore int
	scores       map[language.Language]scored
}

// FromDefinition compiles a definition, expanding options. A broken
// template yields an error matching internalerr.ErrPattern.
func FromDefinition(def Definition, src Source) ([]*Intent, error) {
	var out []*Intent
	for _, d := range def.Expand() {
		in, err := compile(d, src)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func compile(def Definition, src Source) (*Intent, error) {
	steps := make([]*inference.Step, len(def.Process))
	for i, s := range def.Process {
		if s != nil {
			c := *s
			if c.Kind == inference.None {
				c.Kind = inference.Console
			}
			s = &c
		}
		steps[i] = s
	}
	def.Process = steps
	if err := def.Validate(); err != nil {
		return nil, err
	}
	in := &Intent{
		source:       src,
		comment:      def.Comment,
		example:      def.Example,
		expect:       def.Expect,
		description:  def.Description,
		depth:        def.Depth,
		userSubscore: rank.DefaultUserSubscore,
	}
	if def.Score != nil {
		in.userSubscore = *def.Score
	}
	for _, p := range def.Phrases {
		u, err := pattern.Compile(p.Expression, p.priority(), def.Line)
		if err != nil {
			return nil, err
		}
		in.utterances = append(in.utterances, u)
	}
	in.steps = steps
	for _, m := range def.Actions {
		a, err := action.FromMap(m)
		if err != nil {
			return nil, err
		}
		if a.Language == "" && src.Language != language.Unknown {
			a.Language = string(src.Language)
		}
		in.actions = append(in.actions, a)
	}
	in.keys = explicitKeys(def.Keys)
	if in.keys == nil {
		in.keys = ComputeKeys(in.utterances)
	}
	in.id = in.identity()
	return in, nil
}

func explicitKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// ComputeKeys derives trigger keys from the literal words of the
// utterances: the first word shared by all of them, or every word when none
// is shared. Any utterance without literal words makes the intent a
// catch-all.
func ComputeKeys(utterances []*pattern.Utterance) []string {
	var union []string
	seen := make(map[string]bool)
	sets := make([]map[string]bool, 0, len(utterances))
	for _, u := range utterances {
		tokens := u.Tokens()
		if u.CatchAll() || len(tokens) == 0 {
			return []string{CatchAll}
		}
		set := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			set[t] = true
			if !seen[t] {
				seen[t] = true
				union = append(union, t)
			}
		}
		sets = append(sets, set)
	}
	if len(union) == 0 {
		return []string{CatchAll}
	}
	for _, t := range union {
		shared := true
		for _, s := range sets {
			if !s[t] {
				shared = false
				break
			}
		}
		if shared {
			return []string{t}
		}
	}
	return union
}

// identity hashes origin, utterances, steps and actions.
func (in *Intent) identity() uint64 {
	h := fnv.New64a()
	fmt.Fprintln(h, in.source.Origin)
	for _, u := range in.utterances {
		fmt.Fprintln(h, u.Template())
	}
	for _, s := range in.steps {
		fmt.Fprintln(h, s.String())
	}
	for _, a := range in.actions {
		fmt.Fprintln(h, a.String())
	}
	return h.Sum64()
}

func (in *Intent) ID() uint64                       { return in.id }
func (in *Intent) Utterances() []*pattern.Utterance { return in.utterances }
func (in *Intent) Steps() []*inference.Step         { return in.steps }
func (in *Intent) Keys() []string                   { return in.keys }
func (in *Intent) Origin() string                   { return in.source.Origin }
func (in *Intent) Language() language.Language      { return in.source.Language }
func (in *Intent) Example() string                  { return in.example }
func (in *Intent) Expect() string                   { return in.expect }
func (in *Intent) Description() string              { return in.description }
func (in *Intent) Comment() string                  { return in.comment }
func (in *Intent) Depth() int                       { return in.depth }

// IsCatchAll reports an intent indexed under the catch-all key.
func (in *Intent) IsCatchAll() bool {
	return len(in.keys) == 1 && in.keys[0] == CatchAll
}

// Actions returns copies of the actions, safe to modify.
func (in *Intent) Actions() []*action.Action {
	out := make([]*action.Action, len(in.actions))
	for i, a := range in.actions {
		out[i] = a.Clone()
	}
	return out
}

// UserSubscore is the manually assigned part of the score.
func (in *Intent) UserSubscore() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.userSubscore
}

// SetUserSubscore changes the manual subscore and drops cached scores.
func (in *Intent) SetUserSubscore(n int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.userSubscore = n
	in.scores = nil
}

// Score returns the rank of the intent for queries in lang; ok is false
// when the intent does not apply to that language.
func (in *Intent) Score(lang language.Language) (int64, bool) {
	b, ok := in.Breakdown(lang)
	return b.Total, ok
}

// Breakdown returns the cached per-factor score.
func (in *Intent) Breakdown(lang language.Language) (rank.Breakdown, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if s, ok := in.scores[lang]; ok {
		return s.breakdown, s.ok
	}
	b, ok := rank.ScoreWithBreakdown(in.candidate(lang))
	if in.scores == nil {
		in.scores = make(map[language.Language]scored)
	}
	in.scores[lang] = scored{breakdown: b, ok: ok}
	return b, ok
}

func (in *Intent) candidate(lang language.Language) rank.Candidate {
	c := rank.Candidate{
		Likelihood:     in.source.Language.LikelihoodCanSpeak(lang),
		DialogSubscore: int(action.DialogReply),
		UserSubscore:   in.userSubscore,
	}
	for i, u := range in.utterances {
		if i == 0 || u.MeatSize() < c.MeatSize {
			c.MeatSize = u.MeatSize()
		}
		if i == 0 || u.Length() < c.Length {
			c.Length = u.Length()
		}
	}
	for _, a := range in.actions {
		if d := a.DialogType().Subscore(); d < c.DialogSubscore {
			c.DialogSubscore = d
		}
		if w := a.Type.Weight(); w > c.RenderWeight {
			c.RenderWeight = w
		}
	}
	for _, s := range in.steps {
		if w := s.Kind.Weight(); w > c.InferenceWeight {
			c.InferenceWeight = w
		}
	}
	return c
}

// Matches returns the capture groups of every utterance matching the
// normalized query, in utterance order.
func (in *Intent) Matches(ctx context.Context, query string) []*pattern.Matcher {
	var out []*pattern.Matcher
	for _, u := range in.utterances {
		if m, ok := u.Match(ctx, query); ok {
			out = append(out, m)
		}
	}
	return out
}

// ErrRejected is returned by Consider when no alternative survives.
var ErrRejected = errors.New("intent rejected")

// Consider tries the intent on a normalized query. Every matching utterance
// is an alternative, run on a fresh argument seeded with recall; a step
// that fails or makes no progress rejects the alternative. The first
// surviving argument carries the intent's actions and skill.
func (in *Intent) Consider(ctx context.Context, query string, recall *thought.Thought, token *ingest.Token, inf Inferrer) (*argument.Argument, error) {
alternatives:
	for _, m := range in.Matches(ctx, query) {
		arg := argument.New().Think(recall)
		keynote := thought.FromMatcher(m)
		if token != nil {
			keynote.AddObservation("token_original", token.Original)
			keynote.AddObservation("token_canonical", token.Canonical)
			keynote.AddObservation("token_categorized", token.Categorized)
		}
		arg.Think(keynote)
		for _, step := range in.steps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			implication := inf.Infer(ctx, step, arg)
			if implication.IsFailed() || arg.Mindstate().Equal(implication) {
				continue alternatives
			}
			for _, a := range implication.Actions() {
				arg.AddAction(a)
			}
			arg.Think(implication)
		}
		for _, a := range in.Actions() {
			arg.AddAction(a)
		}
		arg.AddSkill(in.source.Origin)
		return arg, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s", ErrRejected, in)
}

// String renders the first utterance and the origin for logs.
func (in *Intent) String() string {
	if len(in.utterances) == 0 {
		return in.source.Origin
	}
	if in.source.Origin == "" {
		return in.utterances[0].Template()
	}
	return in.utterances[0].Template() + " @" + in.source.Origin
}

// MarshalJSON writes the intent in the rule file shape plus id and keys.
func (in *Intent) MarshalJSON() ([]byte, error) {
	phrases := make([]Phrase, len(in.utterances))
	for i, u := range in.utterances {
		t := u.Kind().String()
		if u.Priority() == pattern.Prior {
			t = "prior"
		}
		phrases[i] = Phrase{Type: t, Expression: u.Template()}
	}
	return json.Marshal(struct {
		ID          string            `json:"id"`
		Keys        []string          `json:"keys"`
		Phrases     []Phrase          `json:"phrases"`
		Process     []*inference.Step `json:"process,omitempty"`
		Actions     []*action.Action  `json:"actions"`
		Score       int               `json:"score"`
		Skill       string            `json:"skill,omitempty"`
		Language    string            `json:"language,omitempty"`
		Example     string            `json:"example,omitempty"`
		Expect      string            `json:"expect,omitempty"`
		Description string            `json:"description,omitempty"`
		Comment     string            `json:"comment,omitempty"`
	}{
		ID:          fmt.Sprintf("%016x", in.id),
		Keys:        in.keys,
		Phrases:     phrases,
		Process:     in.steps,
		Actions:     in.actions,
		Score:       in.UserSubscore(),
		Skill:       in.source.Origin,
		Language:    string(in.source.Language),
		Example:     in.example,
		Expect:      in.expect,
		Description: in.description,
		Comment:     in.comment,
	})
}
