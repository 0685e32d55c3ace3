package argument

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/susimind/pkg/susimind/action"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

type fakeReflector struct {
	answers map[string]*thought.Thought
	seen    []Reflection
}

func (f *fakeReflector) Reflect(_ context.Context, r Reflection) *thought.Thought {
	f.seen = append(f.seen, r)
	return f.answers[r.Query]
}

func answerThought(expression string, extra ...*action.Action) *thought.Thought {
	a := action.NewAnswer(expression)
	a.Expression = expression
	t := thought.New().AddAction(a)
	for _, e := range extra {
		t.AddAction(e)
	}
	return t
}

func first(int) int { return 0 }

func TestThinkRethink(t *testing.T) {
	a := New()
	x := thought.New().AddObservation("k", "x")
	y := thought.New().AddObservation("k", "y")
	a.Think(x).Think(y)
	assert.Same(t, y, a.Rethink())
	a.Think(x)
	assert.Same(t, x, a.Mindstate())
	assert.Equal(t, 2, a.Len())
	assert.Same(t, x, a.Remember(1))
	assert.True(t, a.Remember(5).IsFailed())

	a.Amnesia()
	assert.True(t, a.Rethink().IsFailed())
	assert.True(t, a.Mindstate().IsFailed())
}

func TestUnify(t *testing.T) {
	a := New().Think(thought.New().AddObservation("a", "letter-a"))
	got, ok := a.Unify("the letter $a$", false, DefaultUnifyDepth)
	require.True(t, ok)
	assert.Equal(t, "the letter letter-a", got)

	_, ok = a.Unify("the letter $b$", false, DefaultUnifyDepth)
	assert.False(t, ok)
}

func TestUnifyNewestFirstAndChained(t *testing.T) {
	a := New()
	a.Think(thought.New().AddObservation("x", "old").AddObservation("inner", "deep"))
	a.Think(thought.New().AddObservation("x", "new").AddObservation("ref", "$inner$"))
	got, ok := a.Unify("$x$ $ref$", false, DefaultUnifyDepth)
	require.True(t, ok)
	assert.Equal(t, "new deep", got)
}

func TestMindmeld(t *testing.T) {
	single := thought.FromRows(thought.NewRow("a", "1"), thought.NewRow("b", "2"))
	a := New().Think(single)
	assert.True(t, single.Equal(a.Mindmeld(true)))

	a = New()
	a.Think(thought.New().AddObservation("mood", "sad"))
	a.Think(thought.New().AddObservation("mood", "happy"))
	newest, _ := a.Mindmeld(true).Observation("mood")
	oldest, _ := a.Mindmeld(false).Observation("mood")
	assert.Equal(t, "happy", newest)
	assert.Equal(t, "sad", oldest)
	assert.Equal(t, 2, a.Mindmeld(true).Times())

	melded := a.Squash()
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, []string{"happy", "sad"}, melded.Observations("mood"))
}

func TestFindingInstantiatesGroups(t *testing.T) {
	m, ok := pattern.MustCompile("i feel *").Match(t.Context(), "i feel funny")
	require.True(t, ok)
	a := New().Think(thought.FromMatcher(m))
	a.AddAction(action.NewAnswer("you feel $1$"))
	a.AddSkill("skills/en/mood.txt")

	answer, err := a.Finding(t.Context(), Env{Intn: first})
	require.NoError(t, err)
	require.Len(t, answer.Actions(), 1)
	assert.Equal(t, "you feel funny", answer.Actions()[0].Expression)
	assert.Equal(t, []string{"skills/en/mood.txt"}, answer.Skills())
	v, _ := answer.Observation("1")
	assert.Equal(t, "funny", v)
}

func TestFindingAssignments(t *testing.T) {
	a := New().Think(thought.New().AddObservation("0", "hello"))
	a.AddAction(action.NewAnswer("^sad^>mood I see, bob>name"))

	answer, err := a.Finding(t.Context(), Env{Intn: first})
	require.NoError(t, err)
	assert.Equal(t, "I see, bob", answer.Actions()[0].Expression)
	mood, _ := answer.Observation("mood")
	name, _ := answer.Observation("name")
	assert.Equal(t, "sad", mood)
	assert.Equal(t, "bob", name)
}

func TestFindingUnresolvedIsReactionError(t *testing.T) {
	a := New().Think(thought.New().AddObservation("0", "x"))
	a.AddAction(action.NewAnswer("hello $nobody$"))
	_, err := a.Finding(t.Context(), Env{Intn: first})
	assert.ErrorIs(t, err, internalerr.ErrReaction)
}

func TestReflection(t *testing.T) {
	link := action.NewAnchor("https://example.org", "more")
	r := &fakeReflector{answers: map[string]*thought.Thought{
		"what is the answer": answerThought("42", link),
	}}
	a := New().Think(thought.New().AddObservation("topic", "life"))
	a.AddAction(action.NewAnswer("it is `what is the answer`"))

	answer, err := a.Finding(t.Context(), Env{Reflector: r, Intn: first, Depth: 2})
	require.NoError(t, err)
	require.Len(t, answer.Actions(), 2)
	assert.Equal(t, "it is 42", answer.Actions()[0].Expression)
	assert.Equal(t, action.Anchor, answer.Actions()[1].Type)

	require.Len(t, r.seen, 1)
	assert.Equal(t, 3, r.seen[0].Depth)
	topic, _ := r.seen[0].Observation.Observation("topic")
	assert.Equal(t, "life", topic)
}

func TestReflectionWithoutAnswerIsEmpty(t *testing.T) {
	a := New().Think(thought.New().AddObservation("0", "x"))
	a.AddAction(action.NewAnswer("say `nothing known` please"))
	answer, err := a.Finding(t.Context(), Env{Reflector: &fakeReflector{}, Intn: first})
	require.NoError(t, err)
	assert.Equal(t, "say  please", answer.Actions()[0].Expression)
}

func TestReflectionSabtaRejects(t *testing.T) {
	sabta := action.NewAnswer("I do not know")
	sabta.Mood = "sabta"
	r := &fakeReflector{answers: map[string]*thought.Thought{
		"unknown": thought.New().AddAction(sabta),
	}}
	a := New().Think(thought.New().AddObservation("0", "x"))
	a.AddAction(action.NewAnswer("`unknown`"))
	_, err := a.Finding(t.Context(), Env{Reflector: r, Intn: first})
	assert.ErrorIs(t, err, internalerr.ErrReaction)
}

func TestApplyActionAttributes(t *testing.T) {
	a := New().Think(thought.New().AddObservation("city", "Berlin").AddObservation("level", "150 percent"))

	web := &action.Action{Type: action.Websearch, Attrs: map[string]string{"query": "weather $city$"}}
	got, err := a.ApplyAction(t.Context(), web, thought.New(), Env{})
	require.NoError(t, err)
	assert.Equal(t, "weather Berlin", got.Attr("query"))
	assert.Equal(t, "weather $city$", web.Attr("query"), "input action must stay untouched")

	vol := &action.Action{Type: action.AudioVolume, Attrs: map[string]string{"volume": "$level$"}}
	got, err = a.ApplyAction(t.Context(), vol, thought.New(), Env{})
	require.NoError(t, err)
	assert.Equal(t, "100", got.Attr("volume"))

	vol.SetAttr("volume", "loud")
	got, err = a.ApplyAction(t.Context(), vol, thought.New(), Env{})
	require.NoError(t, err)
	assert.Equal(t, "50", got.Attr("volume"))

	bad := &action.Action{Type: action.Anchor, Attrs: map[string]string{"link": "$missing$", "text": "x"}}
	_, err = a.ApplyAction(t.Context(), bad, thought.New(), Env{})
	assert.ErrorIs(t, err, internalerr.ErrReaction)
}
