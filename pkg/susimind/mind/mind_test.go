package mind

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/ingest"
	"github.com/cognicore/susimind/pkg/susimind/intent"
	"github.com/cognicore/susimind/pkg/susimind/language"
	"github.com/cognicore/susimind/pkg/susimind/lexicon"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

func rules(t *testing.T, origin, src string) []*intent.Intent {
	t.Helper()
	f, err := intent.Decode([]byte(src))
	require.NoError(t, err)
	var out []*intent.Intent
	for _, d := range f.Intents {
		ins, err := intent.FromDefinition(d, intent.Source{Origin: origin})
		require.NoError(t, err)
		out = append(out, ins...)
	}
	return out
}

func tokens(words ...string) []ingest.Token {
	out := make([]ingest.Token, len(words))
	for i, w := range words {
		out[i] = ingest.Token{Original: w, Canonical: w, Categorized: w}
	}
	return out
}

func newMind(t *testing.T, src string) *Mind {
	t.Helper()
	m := New(Options{Name: "test", Inferrer: inference.NewDispatcher(inference.Options{})})
	m.Load(rules(t, "test", src))
	return m
}

func ask(t *testing.T, r Reactor, text string) *Reaction {
	t.Helper()
	reaction, err := r.React(context.Background(), Query{Text: text, Language: language.English})
	require.NoError(t, err)
	return reaction
}

const basics = `
- phrases: [{expression: "i feel *"}]
  actions: [{type: answer, phrases: ["you feel $1$"]}]
- phrases: [{expression: "hello"}]
  actions: [{type: answer, phrases: ["hi there"]}]
- phrases: [{expression: "*"}]
  score: 1000
  actions: [{type: answer, phrases: ["I do not know"]}]
`

func TestReactCapturesGroup(t *testing.T) {
	m := newMind(t, basics)
	r := ask(t, m, "I feel funny")
	require.True(t, r.Answered())
	assert.Equal(t, "i feel funny", r.Query)
	require.NotEmpty(t, r.Actions())
	assert.Contains(t, r.Actions()[0].Expression, "funny")
	assert.Equal(t, []string{"test"}, r.Skills())
}

func TestCatchAllTriedLast(t *testing.T) {
	m := newMind(t, basics)
	ideas := m.Creativity(context.Background(), "hello", tokens("hello"), language.English, 10)
	require.Len(t, ideas, 2)
	assert.False(t, ideas[0].Intent.IsCatchAll())
	assert.True(t, ideas[1].Intent.IsCatchAll())
	assert.Nil(t, ideas[1].Token)

	assert.Equal(t, []string{"hi there"}, ask(t, m, "Hello!").Expressions())
	assert.Equal(t, []string{"I do not know"}, ask(t, m, "what is this").Expressions())
}

func TestCreativityBoundsIdeas(t *testing.T) {
	m := newMind(t, basics)
	ideas := m.Creativity(context.Background(), "hello", tokens("hello"), language.English, 1)
	require.Len(t, ideas, 1)
	assert.False(t, ideas[0].Intent.IsCatchAll())
}

func TestMaxAnswers(t *testing.T) {
	m := newMind(t, basics)
	r, err := m.React(context.Background(), Query{Text: "hello", Language: language.English, MaxAnswers: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi there", "I do not know"}, r.Expressions())
}

func TestRejectedIdeaFallsThrough(t *testing.T) {
	m := newMind(t, `
- phrases: [{expression: "am i sad"}]
  process: [{type: memory, expression: "IF $mood$ = sad"}]
  actions: [{type: answer, phrases: ["yes you are"]}]
- phrases: [{expression: "*"}]
  actions: [{type: answer, phrases: ["no idea"]}]
`)
	r, err := m.React(context.Background(), Query{Text: "am i sad", Language: language.English, Debug: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"no idea"}, r.Expressions())
	assert.Equal(t, []Trial{{"am i sad", "fail"}, {"*", "success"}}, r.Trace)

	r, err = m.React(context.Background(), Query{
		Text:     "am i sad",
		Language: language.English,
		Recall:   []*thought.Thought{thought.New().AddObservation("mood", "sad")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"yes you are"}, r.Expressions())
	assert.Empty(t, r.Trace)
}

func TestRecallOrder(t *testing.T) {
	m := newMind(t, `
- phrases: [{expression: "who am i"}]
  actions: [{type: answer, phrases: ["you are $name$"]}]
`)
	older := thought.New().AddObservation("name", "bob")
	newer := thought.New().AddObservation("name", "ada")
	r, err := m.React(context.Background(), Query{Text: "who am i", Language: language.English, Recall: []*thought.Thought{newer, older}})
	require.NoError(t, err)
	assert.Equal(t, []string{"you are ada"}, r.Expressions())

	r, err = m.React(context.Background(), Query{
		Text:        "who am i",
		Language:    language.English,
		Observation: thought.New().AddObservation("name", "eve"),
		Recall:      []*thought.Thought{newer},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"you are eve"}, r.Expressions())
}

func TestNoAnswer(t *testing.T) {
	m := newMind(t, `
- phrases: [{expression: "hello"}]
  actions: [{type: answer, phrases: ["hi"]}]
`)
	r := ask(t, m, "good bye")
	assert.False(t, r.Answered())
	assert.Nil(t, r.Mindstate())
	assert.Empty(t, r.Expressions())
}

func TestReflection(t *testing.T) {
	m := newMind(t, "- phrases: [{expression: \"my name\"}]\n"+
		"  actions: [{type: answer, phrases: [susi]}]\n"+
		"- phrases: [{expression: \"who are you\"}]\n"+
		"  actions: [{type: answer, phrases: [\"I am `my name`\"]}]\n")
	assert.Equal(t, []string{"I am susi"}, ask(t, m, "who are you").Expressions())
}

func TestReflectionDepthBounded(t *testing.T) {
	m := New(Options{Inferrer: inference.NewDispatcher(inference.Options{}), MaxDepth: 3})
	m.Load(rules(t, "loop", "- phrases: [{expression: \"loop\"}]\n"+
		"  actions: [{type: answer, phrases: [\"x `loop`\"]}]\n"))
	r := ask(t, m, "loop")
	require.True(t, r.Answered())
	got := r.Expressions()[0]
	assert.Equal(t, 4, strings.Count(got, "x"), got)
}

func TestLayers(t *testing.T) {
	top := newMind(t, "- phrases: [{expression: \"who are you\"}]\n"+
		"  actions: [{type: answer, phrases: [\"I am `my name`\"]}]\n")
	bottom := newMind(t, `
- phrases: [{expression: "my name"}]
  actions: [{type: answer, phrases: [susi]}]
- phrases: [{expression: "*"}]
  actions: [{type: answer, phrases: [pardon]}]
`)
	layers := Layers{top, bottom}
	assert.Equal(t, []string{"I am susi"}, ask(t, layers, "who are you").Expressions())
	assert.Equal(t, []string{"pardon"}, ask(t, layers, "something else").Expressions())
	assert.Equal(t, 3, layers.Len())

	empty := Layers{}
	r, err := empty.React(context.Background(), Query{Text: "x"})
	require.NoError(t, err)
	assert.False(t, r.Answered())
}

func TestLexiconCanonicalKey(t *testing.T) {
	lex := lexicon.New()
	lex.AddSynonymGroup("hello", []string{"hey", "hi"})
	m := New(Options{
		Inferrer: inference.NewDispatcher(inference.Options{}),
		Lexicons: lexicon.NewSet(map[language.Language]*lexicon.Lexicon{language.English: lex}),
	})
	m.Load(rules(t, "greet", `
- phrases: [{expression: "hey there"}]
  keys: [hello]
  actions: [{type: answer, phrases: [welcome]}]
`))
	r := ask(t, m, "Hey there")
	assert.Equal(t, []string{"welcome"}, r.Expressions())
	require.Len(t, r.Ideas, 1)
	assert.Equal(t, "hey", r.Ideas[0].Token.Original)
	assert.Equal(t, "hello", r.Ideas[0].Token.Canonical)
}

func TestLearnAndForget(t *testing.T) {
	m := newMind(t, basics)
	before := m.Index()
	m.Learn(rules(t, "extra", `
- phrases: [{expression: "good night"}]
  actions: [{type: answer, phrases: [sleep well]}]
`)...)
	assert.Equal(t, 3, before.Len(), "old index must not change")
	assert.Equal(t, 4, m.Index().Len())
	assert.Equal(t, []string{"extra", "test"}, m.Index().Origins())
	assert.Equal(t, []string{"sleep well"}, ask(t, m, "good night").Expressions())

	m.Forget("extra")
	assert.Equal(t, 3, m.Index().Len())
	assert.Equal(t, []string{"I do not know"}, ask(t, m, "good night").Expressions())
}

func TestIndexDeduplicates(t *testing.T) {
	ins := rules(t, "dup", basics)
	x := NewIndex(append(ins, rules(t, "dup", basics)...))
	assert.Equal(t, 3, x.Len())
	assert.Len(t, x.CatchAll(), 1)
	assert.Equal(t, []string{"feel", "hello"}, x.Keys())
	assert.Len(t, x.Lookup("feel"), 1)
	assert.Nil(t, (*Index)(nil).Lookup("feel"))
}

func TestReactCancelled(t *testing.T) {
	m := newMind(t, basics)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.React(ctx, Query{Text: "hello"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelfTest(t *testing.T) {
	m := newMind(t, `
- phrases: [{expression: "i feel *"}]
  actions: [{type: answer, phrases: ["you feel $1$"]}]
  example: i feel great
  expect: "feel gr.at"
- phrases: [{expression: "hello"}]
  actions: [{type: answer, phrases: ["hi"]}]
  example: hello
  expect: goodbye
- phrases: [{expression: "bye"}]
  actions: [{type: answer, phrases: ["ciao"]}]
`)
	checks, err := m.SelfTest(context.Background(), language.English)
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.True(t, checks[0].Passed)
	assert.False(t, checks[1].Passed)
	assert.Equal(t, []string{"hi"}, checks[1].Got)
}

func TestRegexIntentRankedByScore(t *testing.T) {
	learn := func(src string, lang language.Language) []*intent.Intent {
		f, err := intent.Decode([]byte(src))
		require.NoError(t, err)
		ins, err := intent.FromDefinition(f.Intents[0], intent.Source{Origin: string(lang), Language: lang})
		require.NoError(t, err)
		return ins
	}
	regex := learn(`
- phrases: [{type: regex, expression: "^what (is|are) (.*)$"}]
  actions: [{type: answer, phrases: ["regex en"]}]
`, language.English)
	keyed := learn(`
- phrases: [{expression: "what *"}]
  actions: [{type: answer, phrases: ["keyed fr"]}]
`, language.Language("fr"))
	require.Equal(t, []string{"what"}, regex[0].Keys())

	rs, _ := regex[0].Score(language.English)
	ks, _ := keyed[0].Score(language.English)
	require.Greater(t, rs, ks)

	m := New(Options{Name: "test", Inferrer: inference.NewDispatcher(inference.Options{})})
	m.Load(append(keyed, regex...))
	assert.Equal(t, []string{"regex en"}, ask(t, m, "what is love").Expressions())
}
