package logic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

const family = `parent(tom, bob).
parent(tom, liz).
parent(bob, ann).
grandparent(X, Z) :- parent(X, Y), parent(Y, Z).
`

func TestSplit(t *testing.T) {
	theory, goal := Split("a(1).\n?- a(X)\nb(2).")
	assert.Equal(t, "a(1).\nb(2).", theory)
	assert.Equal(t, "a(X).", goal)
}

func TestSolveBindings(t *testing.T) {
	s := New(Options{})
	rows, err := s.Solve(context.Background(), family+"?- parent(tom, Child).")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "bob", rows[0].String("Child"))
	assert.Equal(t, "liz", rows[1].String("Child"))
}

func TestSolveRule(t *testing.T) {
	rows, err := New(Options{}).Solve(context.Background(), family+"?- grandparent(G, ann).")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "tom", rows[0].String("G"))
}

func TestSolveGroundAndNoGoal(t *testing.T) {
	s := New(Options{})
	rows, err := s.Solve(context.Background(), family+"?- parent(bob, ann).")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "true", rows[0].String(Result))

	rows, err = s.Solve(context.Background(), family)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Has(Result))

	rows, err = s.Solve(context.Background(), family+"?- parent(ann, _).")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLogicStep(t *testing.T) {
	d := inference.NewDispatcher(inference.Options{})
	New(Options{}).Register(d)

	arg := argument.New().Think(thought.New().AddObservation("who", "bob"))
	got := d.Infer(context.Background(), &inference.Step{
		Kind:       inference.Logic,
		Expression: family + "?- parent($who$, C).",
	}, arg)
	c, _ := got.Observation("C")
	assert.Equal(t, "ann", c)

	bad := d.Infer(context.Background(), &inference.Step{Kind: inference.Logic, Expression: "this is ( not prolog"}, arg)
	assert.True(t, bad.IsFailed())
}
