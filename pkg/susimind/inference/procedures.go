package inference

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Handler computes a thought from the argument and the match of the
// procedure pattern against the unified expression.
type Handler func(ctx context.Context, arg *argument.Argument, m *pattern.Matcher) (*thought.Thought, error)

type procedure struct {
	expr    string
	re      *regexp.Regexp
	handler Handler
}

// Procedures is the ordered handler table of one kind.
type Procedures struct {
	list []procedure
}

// Add registers a handler for expressions fully matching expr.
func (p *Procedures) Add(expr string, h Handler) error {
	re, err := pattern.CompileFull(expr)
	if err != nil {
		return fmt.Errorf("procedure %q: %w", expr, err)
	}
	p.list = append(p.list, procedure{expr: expr, re: re, handler: h})
	return nil
}

// MustAdd is Add for patterns known at compile time.
func (p *Procedures) MustAdd(expr string, h Handler) {
	if err := p.Add(expr, h); err != nil {
		panic(err)
	}
}

// Len is the number of registered procedures.
func (p *Procedures) Len() int { return len(p.list) }

// Deduce runs the first procedure whose pattern matches the expression. The
// pattern becomes the process name of the result.
func (p *Procedures) Deduce(ctx context.Context, arg *argument.Argument, expression string) (*thought.Thought, error) {
	for _, proc := range p.list {
		m, ok := pattern.MatchFull(ctx, proc.re, expression)
		if !ok {
			continue
		}
		t, err := proc.handler(ctx, arg, m)
		if err != nil {
			return thought.New(), err
		}
		if t == nil {
			t = thought.New()
		}
		return t.SetProcess(proc.expr), nil
	}
	return thought.New(), fmt.Errorf("no procedure for %q: %w", expression, internalerr.ErrNotFound)
}
