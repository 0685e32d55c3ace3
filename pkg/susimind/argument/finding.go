package argument

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/action"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/language"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// maxRewrites bounds the rewrite loop of one answer phrase.
const maxRewrites = 32

// Reflection is a sub query found inside an answer phrase.
type Reflection struct {
	Query       string
	Language    language.Language
	Observation *thought.Thought
	Depth       int
}

// Reflector answers reflections. It returns nil when nothing answers.
type Reflector interface {
	Reflect(ctx context.Context, r Reflection) *thought.Thought
}

// Env carries what action execution needs besides the argument.
type Env struct {
	Reflector Reflector
	Language  language.Language
	Depth     int
	// Intn picks a phrase index; nil uses math/rand.
	Intn func(n int) int
}

func (e Env) intn(n int) int {
	if n <= 1 {
		return 0
	}
	if e.Intn != nil {
		return e.Intn(n)
	}
	return rand.IntN(n)
}

// Finding executes the attached actions against the argument and melds the
// proof into the answer thought. The answer carries the executed actions and
// the skill origins. An error rejects the whole argument.
func (a *Argument) Finding(ctx context.Context, env Env) (*thought.Thought, error) {
	deductions := make([]*thought.Thought, 0, len(a.actions))
	for _, act := range a.actions {
		deduced := thought.New()
		applied, err := a.ApplyAction(ctx, act, deduced, env)
		if err != nil {
			return nil, err
		}
		carried := deduced.Actions()
		deduced.SetActions(append([]*action.Action{applied}, carried...))
		deductions = append(deductions, deduced)
	}
	var actions []*action.Action
	for _, deduced := range deductions {
		if deduced.IsFailed() {
			continue
		}
		actions = append(actions, deduced.Actions()...)
		deduced.RemoveActions()
		if !deduced.IsFailed() {
			a.Think(deduced)
		}
	}
	answer := a.Mindmeld(true)
	answer.SetActions(actions)
	for _, s := range a.skills {
		answer.AddSkill(s)
	}
	return answer, nil
}

// ApplyAction instantiates a copy of act. Observations produced by
// assignments and reflections are added to deduced.
func (a *Argument) ApplyAction(ctx context.Context, act *action.Action, deduced *thought.Thought, env Env) (*action.Action, error) {
	out := act.Clone()
	switch out.Type {
	case action.Answer:
		phrases := out.PhraseList()
		if len(phrases) == 0 {
			return out, nil
		}
		phrase := phrases[0]
		if out.Select == "" || out.Select == "random" {
			phrase = phrases[env.intn(len(phrases))]
		}
		expr, err := a.express(ctx, phrase, deduced, env)
		if err != nil {
			return nil, err
		}
		out.Expression = expr
	case action.Websearch:
		if err := a.unifyAttrs(out, deduced, "query"); err != nil {
			return nil, err
		}
	case action.Anchor:
		if err := a.unifyAttrs(out, deduced, "link", "text"); err != nil {
			return nil, err
		}
	case action.Map:
		if err := a.unifyAttrs(out, deduced, "latitude", "longitude", "zoom"); err != nil {
			return nil, err
		}
	case action.AudioPlay, action.VideoPlay:
		if err := a.unifyAttrs(out, deduced, "identifier"); err != nil {
			return nil, err
		}
	case action.AudioVolume:
		if err := a.unifyAttrs(out, deduced, "volume"); err != nil {
			return nil, err
		}
		out.SetAttr("volume", strconv.Itoa(volume(out.Attr("volume"))))
	}
	return out, nil
}

func volume(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 50
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return 50
	}
	return max(0, min(100, v))
}

func (a *Argument) unifyAttrs(act *action.Action, deduced *thought.Thought, names ...string) error {
	for _, name := range names {
		if !act.HasAttr(name) {
			continue
		}
		v, ok := a.unifyWith(deduced, act.Attr(name))
		if !ok {
			return fmt.Errorf("%s %s %q: %w", act.Type, name, v, internalerr.ErrReaction)
		}
		act.SetAttr(name, v)
	}
	return nil
}

// unifyWith resolves placeholders from deduced first, then from the stack.
func (a *Argument) unifyWith(deduced *thought.Thought, statement string) (string, bool) {
	if !thought.HasVariablePattern(statement) {
		return statement, true
	}
	if deduced != nil {
		statement = deduced.UnifyOnce(statement, false)
	}
	return a.Unify(statement, false, DefaultUnifyDepth)
}

// express rewrites one answer phrase until no unification, assignment or
// reflection applies any more.
func (a *Argument) express(ctx context.Context, expr string, deduced *thought.Thought, env Env) (string, error) {
	for range maxRewrites {
		before := expr
		if strings.IndexByte(expr, '$') >= 0 {
			u, ok := a.unifyWith(deduced, expr)
			if !ok {
				return "", fmt.Errorf("unresolved %q: %w", u, internalerr.ErrReaction)
			}
			expr = u
		}
		var assigned []action.Assignment
		expr, assigned = action.ApplyVisibleAssignments(expr)
		for _, as := range assigned {
			deduced.AddObservation(as.Name, as.Value)
		}
		expr, assigned = action.ApplyBlindAssignments(expr)
		for _, as := range assigned {
			deduced.AddObservation(as.Name, as.Value)
		}
		if start, end, ok := action.FindReflection(expr); ok {
			reply, err := a.reflect(ctx, expr[start:end], deduced, env)
			if err != nil {
				return "", err
			}
			expr = strings.TrimSpace(expr[:start-1] + reply + expr[end+1:])
		}
		if expr == before {
			break
		}
	}
	return expr, nil
}

// reflect asks the reflector with the melded proof as observation. Answer
// observations join deduced and non-answer actions are carried along.
func (a *Argument) reflect(ctx context.Context, query string, deduced *thought.Thought, env Env) (string, error) {
	if env.Reflector == nil {
		return "", nil
	}
	observation := a.Mindmeld(true)
	observation.Assertz(deduced.Rows())
	reaction := env.Reflector.Reflect(ctx, Reflection{
		Query:       strings.TrimSpace(query),
		Language:    env.Language,
		Observation: observation,
		Depth:       env.Depth + 1,
	})
	if reaction == nil || reaction.IsFailed() {
		return "", nil
	}
	var expressions []string
	for _, act := range reaction.Actions() {
		if act.Type != action.Answer {
			deduced.AddAction(act)
			continue
		}
		if act.IsSabta() {
			return "", fmt.Errorf("reflection %q has no answer: %w", query, internalerr.ErrReaction)
		}
		if act.Expression != "" {
			expressions = append(expressions, act.Expression)
		}
	}
	for _, row := range reaction.Rows() {
		for _, key := range row.Keys() {
			if v := row.String(key); v != "" && !isGroupKey(key) {
				deduced.AddObservation(key, v)
			}
		}
	}
	if len(expressions) == 0 {
		return "", nil
	}
	return expressions[env.intn(len(expressions))], nil
}

// isGroupKey reports the numbered keys of a match keynote, which belong to
// the sub query and must not shadow the groups of the outer match.
func isGroupKey(key string) bool {
	_, err := strconv.Atoi(key)
	return err == nil
}
