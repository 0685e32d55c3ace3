// Package mind selects and proves the intents that answer an input.
package mind

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/susimind/pkg/susimind/action"
	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/ingest"
	"github.com/cognicore/susimind/pkg/susimind/intent"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/language"
	"github.com/cognicore/susimind/pkg/susimind/lexicon"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

const (
	DefaultMaxIdeas   = 100
	DefaultMaxAnswers = 1
	DefaultMaxDepth   = 8
)

// slowIdea is the consideration time worth a warning.
const slowIdea = 100 * time.Millisecond

// Options configures a Mind.
type Options struct {
	Name     string
	Logger   *zap.Logger
	Inferrer intent.Inferrer
	Lexicons *lexicon.Set
	// MaxIdeas bounds the plausible ideas tested per input.
	MaxIdeas int
	// MaxAnswers is the default number of accepted ideas per input.
	MaxAnswers int
	// MaxDepth bounds nested reflections.
	MaxDepth int
}

// Mind holds one index of intents and reacts to inputs with it. It is safe
// for concurrent use; Load swaps the index atomically.
type Mind struct {
	name       string
	log        *zap.Logger
	inf        intent.Inferrer
	maxIdeas   int
	maxAnswers int
	maxDepth   int

	index       atomic.Pointer[Index]
	linguistics atomic.Pointer[linguistics]
}

// linguistics caches one pipeline per language for a lexicon set.
type linguistics struct {
	set       *lexicon.Set
	pipelines sync.Map // language.Language -> *ingest.Pipeline
}

func (l *linguistics) pipeline(lang language.Language) *ingest.Pipeline {
	if p, ok := l.pipelines.Load(lang); ok {
		return p.(*ingest.Pipeline)
	}
	p, _ := l.pipelines.LoadOrStore(lang, ingest.ForLexicon(l.set.For(lang)))
	return p.(*ingest.Pipeline)
}

// New creates an empty mind.
func New(opts Options) *Mind {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxIdeas <= 0 {
		opts.MaxIdeas = DefaultMaxIdeas
	}
	if opts.MaxAnswers <= 0 {
		opts.MaxAnswers = DefaultMaxAnswers
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	m := &Mind{
		name:       opts.Name,
		log:        opts.Logger.With(zap.String("mind", opts.Name)),
		inf:        opts.Inferrer,
		maxIdeas:   opts.MaxIdeas,
		maxAnswers: opts.MaxAnswers,
		maxDepth:   opts.MaxDepth,
	}
	m.index.Store(NewIndex(nil))
	m.SetLexicons(opts.Lexicons)
	return m
}

func (m *Mind) Name() string { return m.name }

// Index returns the current index.
func (m *Mind) Index() *Index { return m.index.Load() }

// Load replaces all intents.
func (m *Mind) Load(intents []*intent.Intent) {
	x := NewIndex(intents)
	m.index.Store(x)
	m.log.Info("intents loaded", zap.Int("intents", x.Len()), zap.Int("keys", len(x.Keys())))
}

// Learn adds intents to the current ones.
func (m *Mind) Learn(intents ...*intent.Intent) {
	for {
		old := m.index.Load()
		if m.index.CompareAndSwap(old, old.With(intents...)) {
			return
		}
	}
}

// Replace drops the intents whose origin is selected by drop and adds
// intents, leaving all other origins in place.
func (m *Mind) Replace(drop func(origin string) bool, intents []*intent.Intent) {
	for {
		old := m.index.Load()
		next := old.Filter(func(in *intent.Intent) bool { return !drop(in.Origin()) }).With(intents...)
		if m.index.CompareAndSwap(old, next) {
			m.log.Info("intents replaced", zap.Int("intents", next.Len()), zap.Int("keys", len(next.Keys())))
			return
		}
	}
}

// Forget drops the intents of one origin.
func (m *Mind) Forget(origin string) {
	for {
		old := m.index.Load()
		if m.index.CompareAndSwap(old, old.Without(origin)) {
			return
		}
	}
}

// SetLexicons replaces the linguistics tables used for tokenization.
func (m *Mind) SetLexicons(set *lexicon.Set) {
	m.linguistics.Store(&linguistics{set: set})
}

// Pipeline returns the tokenization pipeline of a language.
func (m *Mind) Pipeline(lang language.Language) *ingest.Pipeline {
	return m.linguistics.Load().pipeline(lang)
}

// Idea is an intent considered for an input, with the token that
// triggered it. Catch-all ideas have no token.
type Idea struct {
	Intent *intent.Intent
	Token  *ingest.Token
	Score  int64
}

// Creativity returns the plausible ideas for a normalized input, best
// first. Keyed ideas are ordered by score with ties kept in discovery order;
// catch-all ideas follow every keyed idea. Only ideas with an utterance that
// matches the input are returned, at most max.
func (m *Mind) Creativity(ctx context.Context, query string, tokens []ingest.Token, lang language.Language, max int) []Idea {
	x := m.Index()
	seen := make(map[*intent.Intent]bool)
	var keyed []Idea
	for i := range tokens {
		tok := &tokens[i]
		for _, key := range lookupKeys(tok) {
			for _, in := range x.Lookup(key) {
				if seen[in] {
					continue
				}
				seen[in] = true
				if s, ok := in.Score(lang); ok {
					keyed = append(keyed, Idea{Intent: in, Token: tok, Score: s})
				}
			}
		}
	}
	var fallback []Idea
	for _, in := range x.CatchAll() {
		if seen[in] {
			continue
		}
		seen[in] = true
		if s, ok := in.Score(lang); ok {
			fallback = append(fallback, Idea{Intent: in, Score: s})
		}
	}
	byScore := func(ideas []Idea) {
		sort.SliceStable(ideas, func(i, j int) bool { return ideas[i].Score > ideas[j].Score })
	}
	byScore(keyed)
	byScore(fallback)

	var plausible []Idea
	for _, idea := range append(keyed, fallback...) {
		if len(plausible) >= max || ctx.Err() != nil {
			break
		}
		if len(idea.Intent.Matches(ctx, query)) == 0 {
			continue
		}
		plausible = append(plausible, idea)
	}
	return plausible
}

// lookupKeys lists the distinct forms of a token, most general first.
func lookupKeys(tok *ingest.Token) []string {
	keys := []string{tok.Categorized}
	for _, k := range []string{tok.Canonical, tok.Original} {
		if k != "" && k != keys[len(keys)-1] && k != keys[0] {
			keys = append(keys, k)
		}
	}
	return keys
}

// Query is one input to react on.
type Query struct {
	Text     string
	Language language.Language
	// Observation is context supplied by the caller; it outranks recall.
	Observation *thought.Thought
	// Recall holds the disputes of past cognitions, newest first.
	Recall []*thought.Thought
	// MaxAnswers overrides the mind default when positive.
	MaxAnswers int
	Debug      bool
	// Depth is the reflection depth; zero for user input.
	Depth int
	// Reflector answers reflections inside answers; nil means the mind
	// that reacts.
	Reflector argument.Reflector
	// Intn picks answer phrases; nil means random.
	Intn func(n int) int
}

// Trial records how an idea fared.
type Trial struct {
	Sample  string `json:"sample"`
	Outcome string `json:"outcome"`
}

// Reaction is the result of one input. Answers is empty when no idea
// could be proven.
type Reaction struct {
	Query   string
	Recall  *thought.Thought
	Ideas   []Idea
	Answers []*thought.Thought
	Trace   []Trial
	Mind    string
}

// Answered reports at least one answer.
func (r *Reaction) Answered() bool { return r != nil && len(r.Answers) > 0 }

// Mindstate returns the first answer, or nil.
func (r *Reaction) Mindstate() *thought.Thought {
	if !r.Answered() {
		return nil
	}
	return r.Answers[0]
}

// Actions returns the actions of all answers.
func (r *Reaction) Actions() []*action.Action {
	if r == nil {
		return nil
	}
	var out []*action.Action
	for _, a := range r.Answers {
		out = append(out, a.Actions()...)
	}
	return out
}

// Expressions returns the answer expressions of all answers.
func (r *Reaction) Expressions() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, a := range r.Answers {
		out = append(out, a.Expressions()...)
	}
	return out
}

// Skills returns the origins of the intents that answered.
func (r *Reaction) Skills() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, a := range r.Answers {
		out = append(out, a.Skills()...)
	}
	return out
}

// Reactor produces reactions.
type Reactor interface {
	React(ctx context.Context, q Query) (*Reaction, error)
}

// Recall melds the caller's observation and the recalled disputes into one
// thought. The observation wins over recall, newer disputes over older ones.
func Recall(observation *thought.Thought, disputes []*thought.Thought) *thought.Thought {
	arg := argument.New()
	if !observation.IsFailed() {
		arg.Think(observation)
	}
	for _, d := range disputes {
		arg.Think(d)
	}
	return arg.Mindmeld(false)
}

// React runs one input through recall, normalization, ideation, the test of
// every idea and the meld of the accepted ones. The error is non-nil only
// when ctx ends; an input nobody answers yields an empty reaction.
func (m *Mind) React(ctx context.Context, q Query) (*Reaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recall := Recall(q.Observation, q.Recall)
	processed := m.linguistics.Load().pipeline(q.Language).Process(q.Text)

	r := &Reaction{Query: processed.Normalized, Recall: recall, Mind: m.name}
	r.Ideas = m.Creativity(ctx, processed.Normalized, processed.Tokens, q.Language, m.maxIdeas)

	want := m.maxAnswers
	if q.MaxAnswers > 0 {
		want = q.MaxAnswers
	}
	env := argument.Env{Reflector: q.Reflector, Language: q.Language, Depth: q.Depth, Intn: q.Intn}
	if env.Reflector == nil {
		env.Reflector = m
	}

	for _, idea := range r.Ideas {
		if len(r.Answers) >= want {
			break
		}
		sample := sampleOf(idea.Intent)
		start := time.Now()
		arg, err := idea.Intent.Consider(ctx, processed.Normalized, recall, idea.Token, m.inf)
		if d := time.Since(start); d > slowIdea {
			m.log.Warn("slow consideration", zap.String("intent", idea.Intent.String()), zap.Duration("took", d))
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.trial(q.Debug, sample, "fail")
			m.log.Debug("idea rejected", zap.String("intent", idea.Intent.String()), zap.Error(err))
			continue
		}
		answer, err := arg.Finding(ctx, env)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !errors.Is(err, internalerr.ErrReaction) {
				m.log.Warn("finding failed", zap.String("intent", idea.Intent.String()), zap.Error(err))
			}
			r.trial(q.Debug, sample, err.Error())
			continue
		}
		r.trial(q.Debug, sample, "success")
		m.log.Debug("idea accepted",
			zap.String("intent", idea.Intent.String()),
			zap.Int64("score", idea.Score),
			zap.Strings("expressions", answer.Expressions()))
		r.Answers = append(r.Answers, answer)
	}
	return r, nil
}

func (r *Reaction) trial(debug bool, sample, outcome string) {
	if debug {
		r.Trace = append(r.Trace, Trial{Sample: sample, Outcome: outcome})
	}
}

func sampleOf(in *intent.Intent) string {
	if us := in.Utterances(); len(us) > 0 {
		return us[0].Template()
	}
	return in.String()
}

// Reflect answers a sub query found inside an answer. Reflections deeper
// than the mind allows are not answered.
func (m *Mind) Reflect(ctx context.Context, r argument.Reflection) *thought.Thought {
	return reflect(ctx, m, m.maxDepth, r, m.log)
}

func reflect(ctx context.Context, reactor Reactor, maxDepth int, r argument.Reflection, log *zap.Logger) *thought.Thought {
	if r.Depth > maxDepth {
		log.Warn("reflection too deep", zap.String("query", r.Query), zap.Int("depth", r.Depth))
		return nil
	}
	reaction, err := reactor.React(ctx, Query{
		Text:        r.Query,
		Language:    r.Language,
		Observation: r.Observation,
		Depth:       r.Depth,
	})
	if err != nil {
		return nil
	}
	return reaction.Mindstate()
}
