// Package argument keeps the stack of thoughts built while proving one idea
// and turns a finished proof into an answer.
package argument

import (
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/action"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// DefaultUnifyDepth bounds the substitution rounds of Unify.
const DefaultUnifyDepth = 10

// Argument is a LIFO of thoughts. Thoughts pushed later are newer and are
// consulted first.
type Argument struct {
	recall  []*thought.Thought // oldest first
	actions []*action.Action
	skills  []string
}

// New creates an empty argument.
func New() *Argument { return &Argument{} }

// Think pushes a thought.
func (a *Argument) Think(t *thought.Thought) *Argument {
	if t != nil {
		a.recall = append(a.recall, t)
	}
	return a
}

// Rethink pops the newest thought, or returns an empty one.
func (a *Argument) Rethink() *thought.Thought {
	if len(a.recall) == 0 {
		return thought.New()
	}
	t := a.recall[len(a.recall)-1]
	a.recall = a.recall[:len(a.recall)-1]
	return t
}

// Mindstate returns the newest thought without removing it.
func (a *Argument) Mindstate() *thought.Thought {
	if len(a.recall) == 0 {
		return thought.New()
	}
	return a.recall[len(a.recall)-1]
}

// Remember returns the thought timesBack positions below the newest one.
func (a *Argument) Remember(timesBack int) *thought.Thought {
	i := len(a.recall) - 1 - timesBack
	if timesBack < 0 || i < 0 {
		return thought.New()
	}
	return a.recall[i]
}

// Amnesia forgets all thoughts.
func (a *Argument) Amnesia() *Argument {
	a.recall = nil
	return a
}

// Len is the stack depth.
func (a *Argument) Len() int { return len(a.recall) }

// Thoughts returns the stack newest first.
func (a *Argument) Thoughts() []*thought.Thought {
	out := make([]*thought.Thought, 0, len(a.recall))
	for i := len(a.recall) - 1; i >= 0; i-- {
		out = append(out, a.recall[i])
	}
	return out
}

// Clone copies the stack and the attached actions. Thoughts are shared.
func (a *Argument) Clone() *Argument {
	return &Argument{
		recall:  append([]*thought.Thought(nil), a.recall...),
		actions: append([]*action.Action(nil), a.actions...),
		skills:  append([]string(nil), a.skills...),
	}
}

// Unify resolves the $...$ placeholders of statement against the stack,
// newest thought first. Every successful substitution restarts the search,
// at most depth times. It reports false when a placeholder remains.
func (a *Argument) Unify(statement string, urlencode bool, depth int) (string, bool) {
	for depth > 0 && thought.HasVariablePattern(statement) {
		changed := false
		for i := len(a.recall) - 1; i >= 0; i-- {
			next := a.recall[i].UnifyOnce(statement, urlencode)
			if next != statement {
				statement = next
				changed = true
				break
			}
		}
		if !changed {
			break
		}
		depth--
	}
	return statement, !thought.HasVariablePattern(statement)
}

// Mindmeld folds the stack into a single thought. With reverse the newest
// thought is asserted first, so its observations win.
func (a *Argument) Mindmeld(reverse bool) *thought.Thought {
	melded := thought.New()
	if reverse {
		for i := len(a.recall) - 1; i >= 0; i-- {
			melded.Assertz(a.recall[i].Rows())
		}
	} else {
		for _, t := range a.recall {
			melded.Assertz(t.Rows())
		}
	}
	melded.SetTimes(len(a.recall))
	return melded
}

// Squash melds the stack and clears it. The caller decides whether the
// melded thought goes back on the stack.
func (a *Argument) Squash() *thought.Thought {
	melded := a.Mindmeld(true)
	a.Amnesia()
	return melded
}

// AddAction attaches an action to execute when the argument is finished.
func (a *Argument) AddAction(act *action.Action) *Argument {
	a.actions = append(a.actions, act)
	return a
}

// Actions returns the pending actions.
func (a *Argument) Actions() []*action.Action { return a.actions }

// AddSkill records the origin of the rule this argument proves.
func (a *Argument) AddSkill(origin string) *Argument {
	if origin != "" {
		a.skills = append(a.skills, origin)
	}
	return a
}

// Skills returns the recorded origins.
func (a *Argument) Skills() []string { return a.skills }

// String renders the stack newest first, one thought per line.
func (a *Argument) String() string {
	var sb strings.Builder
	for i, t := range a.Thoughts() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(t.String())
	}
	return sb.String()
}
