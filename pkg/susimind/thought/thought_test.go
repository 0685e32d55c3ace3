package thought

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/susimind/pkg/susimind/action"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
)

func rowsOf(t *Thought) []map[string]any {
	out := make([]map[string]any, 0, t.Count())
	for _, r := range t.Rows() {
		out = append(out, r.Map())
	}
	return out
}

func TestFailed(t *testing.T) {
	assert.True(t, New().IsFailed())
	assert.False(t, New().AddObservation("a", "b").IsFailed())
	assert.False(t, New().AddAction(action.NewAnswer("x")).IsFailed())
	var nilThought *Thought
	assert.True(t, nilThought.IsFailed())
}

func TestAddObservationNewestFirst(t *testing.T) {
	th := New()
	th.AddObservation("mood", "sad")
	th.AddObservation("name", "bob")
	th.AddObservation("mood", "happy")

	v, ok := th.Observation("mood")
	require.True(t, ok)
	assert.Equal(t, "happy", v)
	assert.Equal(t, []string{"happy", "sad"}, th.Observations("mood"))
	name, _ := th.Observation("name")
	assert.Equal(t, "bob", name)
}

func TestAddObservationIntoEarlierRow(t *testing.T) {
	th := FromRows(NewRow("a", "1"), NewRow("b", "2"))
	th.AddObservation("b", "3")
	assert.Equal(t, []string{"3", "2"}, th.Observations("b"))
	assert.Equal(t, 2, th.Count())
}

func TestHasEmptyObservation(t *testing.T) {
	th := New().AddObservation("x", "")
	assert.True(t, th.HasEmptyObservation("x"))
	assert.True(t, th.HasEmptyObservation("missing"))
	th.AddObservation("x", "y")
	assert.False(t, th.HasEmptyObservation("x"))
}

func TestAssertzSingletonIsIdentity(t *testing.T) {
	src := FromRows(NewRow("a", "1", "b", "2"), NewRow("a", "3"), NewRow("c", "4"))
	melded := New().Assertz(src.Rows())
	if diff := cmp.Diff(rowsOf(src), rowsOf(melded)); diff != "" {
		t.Fatalf("assertz into empty changed rows (-want +got):\n%s", diff)
	}
	assert.True(t, src.Equal(melded))
}

func TestAssertzMergesDisjointRows(t *testing.T) {
	th := FromRows(NewRow("a", "new"))
	th.Assertz([]*Row{NewRow("b", "x")})
	require.Equal(t, 1, th.Count())
	assert.Equal(t, "x", th.Rows()[0].String("b"))

	th.Assertz([]*Row{NewRow("a", "old")})
	require.Equal(t, 2, th.Count())
	v, _ := th.Observation("a")
	assert.Equal(t, "new", v, "newer value must stay visible")
}

func TestAssertzStopsOnIdenticalRow(t *testing.T) {
	th := FromRows(NewRow("a", "1"))
	th.Assertz([]*Row{NewRow("a", "1"), NewRow("z", "9")})
	assert.Equal(t, 1, th.Count())
	_, ok := th.Observation("z")
	assert.False(t, ok)
}

func TestFromMatcher(t *testing.T) {
	u := pattern.MustCompile("i feel *")
	m, ok := u.Match(t.Context(), "i feel funny")
	require.True(t, ok)
	th := FromMatcher(m)
	assert.Equal(t, 1, th.Hits())
	assert.Equal(t, "i feel funny", th.Rows()[0].String("0"))
	assert.Equal(t, "funny", th.Rows()[0].String("1"))
}

func TestHasVariablePattern(t *testing.T) {
	assert.True(t, HasVariablePattern("a $b$ c"))
	assert.False(t, HasVariablePattern("costs 5$"))
	assert.False(t, HasVariablePattern("plain"))
}

func TestUnifyRow(t *testing.T) {
	row := NewRow("name", "Ada Lovelace")
	row.Set("place", map[string]any{"city": "London"})
	row.Set("age", 36.0)

	got := UnifyRow("$name$ from $place.city$ aged $age$", row, false)
	assert.Equal(t, "Ada Lovelace from London aged 36", got)

	got = UnifyRow("q=$name$", row, true)
	assert.Equal(t, "q=Ada+Lovelace", got)
}

func TestUnifyOnceAcrossRows(t *testing.T) {
	th := FromRows(NewRow("a", "letter-a"), NewRow("b", "letter-b"))
	assert.Equal(t, "letter-a and letter-b", th.UnifyOnce("$a$ and $b$", false))
	assert.Equal(t, "$c$ stays", th.UnifyOnce("$c$ stays", false))
}

func TestUnifyInstances(t *testing.T) {
	th := FromRows(NewRow("x", "1"), NewRow("x", "2"), NewRow("x", "2"))
	assert.Equal(t, []string{"n=1", "n=2"}, th.Unify("n=$x$", 10, false, false))
	assert.Equal(t, []string{"n=1"}, th.Unify("n=$x$", 1, false, false))
	assert.Equal(t, []string{"no vars"}, th.Unify("no vars", 5, false, false))
}

func TestThoughtJSON(t *testing.T) {
	th := FromRows(NewRow("z", "1", "a", "2"))
	th.SetProcess("test").SetQuery("q")
	th.AddAction(action.NewAnswer("hello"))
	th.AddSkill("skills/en/greeting")

	data, err := json.Marshal(th)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data":[{"z":"1","a":"2"}]`)

	var back Thought
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, th.Equal(&back))
	assert.Equal(t, []string{"z", "a"}, back.Rows()[0].Keys())
	assert.Equal(t, "test", back.Process())
	require.Len(t, back.Actions(), 1)
	assert.Equal(t, []string{"skills/en/greeting"}, back.Skills())
}

func TestRowNumbersRoundTrip(t *testing.T) {
	var r Row
	require.NoError(t, json.Unmarshal([]byte(`{"n":3,"f":1.5,"o":{"k":2}}`), &r))
	assert.Equal(t, "3", r.String("n"))
	assert.Equal(t, "1.5", r.String("f"))
	assert.Equal(t, `{"k":2}`, r.String("o"))
}

func TestCloneIndependent(t *testing.T) {
	th := FromRows(NewRow("a", "1"))
	c := th.Clone()
	c.AddObservation("a", "2")
	v, _ := th.Observation("a")
	assert.Equal(t, "1", v)
}

func TestExpressions(t *testing.T) {
	a := action.NewAnswer("x")
	a.Expression = "done"
	th := New().AddAction(a).AddAction(action.NewAnchor("l", "t"))
	assert.Equal(t, []string{"done"}, th.Expressions())
}
