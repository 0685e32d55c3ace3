package inference

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Observation names written by the memory conditions.
const (
	Expected = "EXPECTED"
	Rejected = "REJECTED"
)

// memoryProcedures reads and writes observations. More specific patterns
// are registered first.
func memoryProcedures() *Procedures {
	p := &Procedures{}
	p.MustAdd(`SET[ \t]+([^=]*?)[ \t]+=[ \t]+([^=]*?)[ \t]+MATCHING[ \t]+(.*?)[ \t]*`, func(ctx context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		return see(ctx, m.Group(1), m.Group(2), m.Group(3))
	})
	p.MustAdd(`SET[ \t]+([^=]*?)[ \t]+=[ \t]+([^=]*?)[ \t]*`, func(ctx context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		return see(ctx, "%1% AS "+m.Group(1), m.Group(2), "(.*)")
	})
	p.MustAdd(`CLEAR[ \t]+(.*?)[ \t]*`, func(ctx context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		return see(ctx, "%1% AS "+m.Group(1), "", "(.*)")
	})
	p.MustAdd(`IF[ \t]+([^=]*?)[ \t]*=[ \t]*([^=]*?)[ \t]*`, func(ctx context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		return expect(see(ctx, "%1% AS "+Expected, m.Group(1), m.Group(2)))
	})
	p.MustAdd(`IF[ \t]+([^=]*?)[ \t]*`, func(ctx context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		return expect(see(ctx, "%1% AS "+Expected, m.Group(1), "(.+)"))
	})
	p.MustAdd(`NOT[ \t]*`, func(context.Context, *argument.Argument, *pattern.Matcher) (*thought.Thought, error) {
		return thought.New().AddObservation(Rejected, ""), nil
	})
	p.MustAdd(`NOT[ \t]+([^=]*?)[ \t]*=[ \t]*([^=]*?)[ \t]*`, func(ctx context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		t, err := see(ctx, "%1% AS "+Expected, m.Group(1), m.Group(2))
		return reject(t, err, Rejected+"("+m.Group(2)+")", m.Group(1))
	})
	p.MustAdd(`NOT[ \t]+([^=]*?)[ \t]*`, func(ctx context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		t, err := see(ctx, "%1% AS "+Expected, m.Group(1), "(.+)")
		return reject(t, err, Rejected, m.Group(1))
	})
	return p
}

// see matches value against re and maps the groups through the transfer
// expression, where %N% names group N. Without groups %1% is the whole
// value. A non-matching value yields an empty thought.
func see(ctx context.Context, transfer, value, re string) (*thought.Thought, error) {
	compiled, err := pattern.CompileFull(re)
	if err != nil {
		return nil, fmt.Errorf("see pattern %q: %w", re, internalerr.ErrPattern)
	}
	m, ok := pattern.MatchFull(ctx, compiled, value)
	if !ok {
		return thought.New(), nil
	}
	choice := thought.NewRow()
	if n := m.GroupCount(); n > 0 {
		for i := 1; i <= n; i++ {
			choice.Set("%"+strconv.Itoa(i)+"%", m.Group(i))
		}
	} else {
		choice.Set("%1%", value)
	}
	seeing := thought.ParseTransfer(transfer).Extract(choice)
	next := thought.New()
	for _, key := range seeing.Keys() {
		next.AddObservation(key, seeing.String(key))
	}
	return next, nil
}

func expect(t *thought.Thought, err error) (*thought.Thought, error) {
	if err != nil {
		return nil, err
	}
	if t.IsFailed() || t.HasEmptyObservation(Expected) {
		return thought.New(), nil
	}
	return t, nil
}

// reject inverts a condition: a failed match becomes the observation
// key=value, a successful one fails.
func reject(t *thought.Thought, err error, key, value string) (*thought.Thought, error) {
	if err != nil {
		return nil, err
	}
	if t.IsFailed() || t.HasEmptyObservation(Expected) {
		return thought.New().AddObservation(key, value), nil
	}
	return thought.New(), nil
}
