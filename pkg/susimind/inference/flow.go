package inference

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/susimind/pkg/susimind/action"
	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Observation names written by PLAN.
const (
	PlanDelay = "plan_delay"
	PlanDate  = "plan_date"
)

// flowProcedures manipulates the argument stack itself.
func flowProcedures(now func() time.Time) *Procedures {
	p := &Procedures{}
	p.MustAdd(`SQUASH`, func(_ context.Context, arg *argument.Argument, _ *pattern.Matcher) (*thought.Thought, error) {
		return arg.Squash(), nil
	})
	p.MustAdd(`FIRST`, func(_ context.Context, arg *argument.Argument, _ *pattern.Matcher) (*thought.Thought, error) {
		recall := arg.Rethink().Clone()
		if recall.Count() > 0 {
			recall.SetData(recall.Rows()[:1])
		}
		return recall, nil
	})
	p.MustAdd(`REST`, func(_ context.Context, arg *argument.Argument, _ *pattern.Matcher) (*thought.Thought, error) {
		recall := arg.Rethink().Clone()
		if recall.Count() > 0 {
			recall.SetData(recall.Rows()[1:])
		}
		return recall, nil
	})
	p.MustAdd(`PLAN[ \t]+([^:]+?)[ \t]*:[ \t]*(.+)`, func(_ context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		delay, err := planDelay(m.Group(1))
		if err != nil {
			return nil, err
		}
		reflection := strings.TrimSpace(m.Group(2))
		ms := strconv.FormatInt(delay.Milliseconds(), 10)
		date := now().Add(delay).UTC().Format(time.RFC3339)
		planned := action.NewAnswer("`" + reflection + "`")
		planned.SetAttr(PlanDelay, ms).SetAttr(PlanDate, date)
		return thought.New().
			AddObservation(PlanDelay, ms).
			AddObservation(PlanDate, date).
			AddAction(planned), nil
	})
	return p
}

// planDelay reads a Go duration or a number of seconds.
func planDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d, nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("plan time %q: %w", s, internalerr.ErrInvalidInput)
	}
	return time.Duration(secs) * time.Second, nil
}
