// Package logic runs logic inferences on an embedded Prolog interpreter.
//
// A step expression is a theory. The line starting with "?-" is the goal;
// every solution of the goal becomes one row of variable bindings.
package logic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ichiban/prolog"
	"go.uber.org/zap"

	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Result is the observation of a goal-less theory or a solved ground goal.
const Result = "!"

// DefaultTimeout bounds one step.
const DefaultTimeout = 2 * time.Second

// MaxSolutions bounds the rows of one step.
const MaxSolutions = 100

// Options configures a Solver.
type Options struct {
	Logger  *zap.Logger
	Timeout time.Duration
}

// Solver consults a theory per step; no state is shared between steps.
type Solver struct {
	timeout time.Duration
	log     *zap.Logger
}

// New creates a solver.
func New(opts Options) *Solver {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Solver{timeout: opts.Timeout, log: opts.Logger}
}

// Split separates the theory from the goal.
func Split(program string) (theory, goal string) {
	var lines []string
	for _, line := range strings.Split(program, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "?-") {
			goal = strings.TrimSpace(strings.TrimPrefix(t, "?-"))
			continue
		}
		lines = append(lines, line)
	}
	if goal != "" && !strings.HasSuffix(goal, ".") {
		goal += "."
	}
	return strings.Join(lines, "\n"), goal
}

// Solve consults the theory and enumerates the goal.
func (s *Solver) Solve(ctx context.Context, program string) ([]*thought.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	theory, goal := Split(program)
	p := prolog.New(nil, nil)
	if err := p.ExecContext(ctx, theory); err != nil {
		return nil, fmt.Errorf("consult: %w", err)
	}
	if goal == "" {
		return []*thought.Row{thought.NewRow(Result, "")}, nil
	}
	sols, err := p.QueryContext(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", goal, err)
	}
	defer sols.Close()

	var rows []*thought.Row
	for len(rows) < MaxSolutions && sols.Next() {
		m := map[string]prolog.TermString{}
		if err := sols.Scan(m); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rows = append(rows, bindings(m))
	}
	if err := sols.Err(); err != nil {
		return nil, fmt.Errorf("solve %q: %w", goal, err)
	}
	return rows, nil
}

func bindings(m map[string]prolog.TermString) *thought.Row {
	names := make([]string, 0, len(m))
	for name := range m {
		if !strings.HasPrefix(name, "_") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return thought.NewRow(Result, "true")
	}
	sort.Strings(names)
	r := thought.NewRow()
	for _, name := range names {
		r.Set(name, strings.Trim(string(m[name]), "'"))
	}
	return r
}

// Register installs the solver as the handler of every logic step.
func (s *Solver) Register(d *inference.Dispatcher) {
	d.Procedures(inference.Logic).MustAdd(`(?s)(.+)`, func(ctx context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		rows, err := s.Solve(ctx, m.Group(1))
		if err != nil {
			s.log.Warn("logic step failed", zap.Error(err))
			return nil, fmt.Errorf("%v: %w", err, internalerr.ErrReaction)
		}
		return thought.FromRows(rows...), nil
	})
}
