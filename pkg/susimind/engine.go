// Package susimind is a rule-based dialogue engine. An Engine answers free
// text with the best matching rules and remembers each conversation.
package susimind

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/susimind/internal/fetch"
	"github.com/cognicore/susimind/internal/llm"
	"github.com/cognicore/susimind/pkg/susimind/config"
	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/inference/console"
	"github.com/cognicore/susimind/pkg/susimind/inference/logic"
	"github.com/cognicore/susimind/pkg/susimind/inference/script"
	"github.com/cognicore/susimind/pkg/susimind/inference/simple"
	"github.com/cognicore/susimind/pkg/susimind/intent"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/language"
	"github.com/cognicore/susimind/pkg/susimind/lexicon"
	"github.com/cognicore/susimind/pkg/susimind/memory"
	"github.com/cognicore/susimind/pkg/susimind/mind"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/store"
	"github.com/cognicore/susimind/pkg/susimind/store/filelog"
	"github.com/cognicore/susimind/pkg/susimind/store/memstore"
	"github.com/cognicore/susimind/pkg/susimind/store/sqlite"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Options configures an Engine.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config
	Logger *zap.Logger
	// Store replaces the log store selected by the configuration.
	Store store.LogStore
	// Intents are learned in addition to the configured rule files.
	Intents []*intent.Intent
	// Lexicons replace the configured lexicon file.
	Lexicons *lexicon.Set
	// Layers are asked before the rules of the engine.
	Layers []*mind.Mind
	// HTTPClient is used for console fetches, mainly in tests.
	HTTPClient *fetch.Client
	// Now is the clock of cognitions and plans; nil means time.Now.
	Now func() time.Time
}

// Engine wires the inference back-ends, the minds and the memory.
type Engine struct {
	cfg        *config.Config
	log        *zap.Logger
	now        func() time.Time
	dispatcher *inference.Dispatcher
	console    *console.Console
	mind       *mind.Mind
	layers     mind.Layers
	memory     *memory.Memory
	loader     *config.Loader
	watcher    *mind.Watcher
}

// New builds an engine and loads its rules. With watching enabled the
// rule files are reloaded until ctx ends or Close is called.
func New(ctx context.Context, opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pattern.SetMatchTimeout(cfg.MatchTimeout)

	e := &Engine{cfg: cfg, log: log, now: now}
	e.dispatcher = inference.NewDispatcher(inference.Options{Logger: log.Named("inference"), Now: now})
	e.console = console.New(console.Options{
		Logger:   log.Named("console"),
		Timeout:  cfg.Console.Timeout,
		Services: cfg.Console.Services,
		Client:   opts.HTTPClient,
		Chat:     chatClient(cfg.Console.Chat),
	})
	e.console.Register(e.dispatcher)
	if cfg.Script.Enabled {
		script.New(script.Options{Logger: log.Named("script"), Timeout: cfg.Script.Timeout}).Register(e.dispatcher)
	}
	switch cfg.Logic.Engine {
	case config.LogicProlog:
		logic.New(logic.Options{Logger: log.Named("logic"), Timeout: cfg.Logic.Timeout}).Register(e.dispatcher)
	case config.LogicSimple:
		simple.Register(e.dispatcher, cfg.Logic.Transitive)
	}

	st := opts.Store
	if st == nil {
		var err error
		if st, err = openStore(ctx, cfg.Memory, log); err != nil {
			return nil, err
		}
	}
	mem, err := memory.New(memory.Options{
		Logger:            log.Named("memory"),
		Store:             st,
		Attention:         cfg.Attention,
		LongTermAttention: cfg.LongTermAttention,
		CacheSize:         cfg.IdentityCache,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	e.memory = mem

	e.loader = config.NewLoader(cfg, log.Named("loader"))
	comp, err := e.loader.Load(ctx)
	if err != nil {
		mem.Close()
		return nil, err
	}
	lexicons := comp.Lexicons
	if opts.Lexicons != nil {
		lexicons = opts.Lexicons
	}

	e.mind = mind.New(mind.Options{
		Name:       "rules",
		Logger:     log.Named("mind"),
		Inferrer:   e.dispatcher,
		Lexicons:   lexicons,
		MaxIdeas:   cfg.MaxIdeas,
		MaxAnswers: cfg.MaxAnswers,
	})
	e.mind.Load(append(comp.Intents, opts.Intents...))
	e.layers = append(append(mind.Layers{}, opts.Layers...), e.mind)
	log.Info("engine ready",
		zap.Int("intents", e.mind.Index().Len()),
		zap.Int("rule_files", len(comp.Files)),
		zap.Int("skipped", comp.Skipped),
		zap.Int("layers", e.layers.Len()),
		zap.String("memory", cfg.Memory.Backend))

	if cfg.Watch && len(cfg.Rules) > 0 {
		extra := opts.Intents
		e.watcher = mind.NewWatcher(e.mind, func(ctx context.Context) ([]*intent.Intent, error) {
			intents, err := e.loader.Intents(ctx)
			if err != nil {
				return nil, err
			}
			e.clearUnanswered(intents)
			return append(intents, extra...), nil
		}, cfg.Rules, mind.WatcherOptions{Logger: log.Named("watcher"), Extensions: config.RuleExtensions})
		if err := e.watcher.Start(ctx); err != nil {
			mem.Close()
			return nil, err
		}
	}
	return e, nil
}

func chatClient(c *config.Chat) *llm.Client {
	if c == nil {
		return nil
	}
	return &llm.Client{BaseURL: c.BaseURL, Model: c.Model, APIKey: c.APIKey()}
}

func openStore(ctx context.Context, m config.Memory, log *zap.Logger) (store.LogStore, error) {
	switch m.Backend {
	case config.BackendFile:
		return filelog.Open(m.Path, log.Named("filelog"))
	case config.BackendSQLite:
		return sqlite.OpenSQLite(ctx, m.Path)
	case config.BackendMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("%w: unknown memory backend %q", internalerr.ErrInvalidConfig, m.Backend)
}

// Close stops the watcher and closes the log store.
func (e *Engine) Close() error {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	return e.memory.Close()
}

// Config returns the configuration in use.
func (e *Engine) Config() *config.Config { return e.cfg }

// Logger returns the logger of the engine.
func (e *Engine) Logger() *zap.Logger { return e.log }

// Memory returns the conversation memory.
func (e *Engine) Memory() *memory.Memory { return e.memory }

// Mind returns the mind holding the rules of the engine.
func (e *Engine) Mind() *mind.Mind { return e.mind }

// Layers returns the minds asked in order.
func (e *Engine) Layers() mind.Layers { return e.layers }

// Dispatcher returns the inference dispatcher, e.g. to register more
// procedures before the first question.
func (e *Engine) Dispatcher() *inference.Dispatcher { return e.dispatcher }

// Learn adds intents to the rules and forgets the unanswered queries they
// now cover.
func (e *Engine) Learn(intents ...*intent.Intent) {
	e.clearUnanswered(intents)
	e.mind.Learn(intents...)
}

// clearUnanswered forgets unanswered queries matched by intents the mind
// does not know yet.
func (e *Engine) clearUnanswered(intents []*intent.Intent) {
	known := make(map[uint64]bool)
	for _, in := range e.mind.Index().Intents() {
		known[in.ID()] = true
	}
	for _, in := range intents {
		if known[in.ID()] {
			continue
		}
		for _, u := range in.Utterances() {
			if n := e.memory.RemoveUnansweredMatching(u.Pattern()); n > 0 {
				e.log.Debug("rule answers former unanswered queries",
					zap.String("origin", in.Origin()), zap.String("pattern", u.Template()), zap.Int("queries", n))
			}
		}
	}
}

// Request is one question of a client.
type Request struct {
	Client string
	Text   string
	// Language of the client; the configured language when unknown.
	Language language.Language
	// Observation is context from the caller, it outranks recalled memory.
	Observation *thought.Thought
	// MaxAnswers overrides the configured bound when positive.
	MaxAnswers int
	Debug      bool
}

// Answer is the outcome of one question.
type Answer struct {
	Cognition *memory.Cognition
	Reaction  *mind.Reaction
}

// Answered reports that a rule answered.
func (a *Answer) Answered() bool { return a != nil && a.Reaction.Answered() }

// Text joins the answer expressions, one per line.
func (a *Answer) Text() string {
	if a == nil {
		return ""
	}
	return strings.Join(a.Reaction.Expressions(), "\n")
}

// Ask answers one question: recall the conversation, react and remember
// the turn. A question no rule answers yields an Answer without answers,
// not an error.
func (e *Engine) Ask(ctx context.Context, req Request) (*Answer, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty question", internalerr.ErrInvalidInput)
	}
	if req.Client == "" {
		return nil, fmt.Errorf("%w: missing client", internalerr.ErrInvalidInput)
	}
	lang := req.Language
	if lang == language.Unknown {
		lang = e.cfg.Lang()
	}
	queried := e.now()

	recall, err := e.memory.Recall(ctx, req.Client)
	if err != nil {
		return nil, err
	}
	reaction, err := e.layers.React(ctx, mind.Query{
		Text:        text,
		Language:    lang,
		Observation: req.Observation,
		Recall:      recall,
		MaxAnswers:  req.MaxAnswers,
		Debug:       req.Debug,
	})
	if err != nil {
		return nil, err
	}

	c := memory.NewCognition(req.Client, text, lang, queried, e.now(), reaction.Answers...)
	if err := e.memory.Add(ctx, c); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("remember turn: %w", err)
	}
	e.log.Debug("answered",
		zap.String("client", req.Client),
		zap.String("query", text),
		zap.Bool("answered", reaction.Answered()),
		zap.String("mind", reaction.Mind),
		zap.Int64("ms", c.AnswerTime))
	return &Answer{Cognition: c, Reaction: reaction}, nil
}

// SelfTest asks every rule its example and checks the expected answer.
func (e *Engine) SelfTest(ctx context.Context) ([]mind.Check, error) {
	return e.mind.SelfTest(ctx, e.cfg.Lang())
}
