package inference

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// DefinitionHandler fetches the rows described by a console definition whose
// url and path are already unified.
type DefinitionHandler func(ctx context.Context, def Definition) (*thought.Thought, error)

// Options configures a Dispatcher.
type Options struct {
	Logger *zap.Logger
	// Now is the clock used by PLAN; nil means time.Now.
	Now func() time.Time
	// UnifyDepth bounds placeholder substitution; zero means
	// argument.DefaultUnifyDepth.
	UnifyDepth int
}

// Dispatcher owns one procedure table per kind and executes steps. A step
// that cannot run yields an empty thought, never an error.
type Dispatcher struct {
	kinds       map[Kind]*Procedures
	encode      map[Kind]bool
	definitions DefinitionHandler
	depth       int
	log         *zap.Logger
}

// NewDispatcher creates a dispatcher with the flow and memory tables
// installed. Console, script and logic tables are filled by their back-ends.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.UnifyDepth <= 0 {
		opts.UnifyDepth = argument.DefaultUnifyDepth
	}
	return &Dispatcher{
		kinds: map[Kind]*Procedures{
			Console: {},
			Flow:    flowProcedures(opts.Now),
			Memory:  memoryProcedures(),
			Script:  {},
			Logic:   {},
		},
		encode: make(map[Kind]bool),
		depth:  opts.UnifyDepth,
		log:    opts.Logger,
	}
}

// Procedures returns the table of a kind for registration. Registration must
// finish before the dispatcher is shared.
func (d *Dispatcher) Procedures(k Kind) *Procedures {
	p, ok := d.kinds[k]
	if !ok {
		p = &Procedures{}
		d.kinds[k] = p
	}
	return p
}

// SetURLEncode controls whether values substituted into expressions of a
// kind are URL-encoded.
func (d *Dispatcher) SetURLEncode(k Kind, on bool) { d.encode[k] = on }

// SetDefinitionHandler installs the executor of console definitions.
func (d *Dispatcher) SetDefinitionHandler(h DefinitionHandler) { d.definitions = h }

var variable = regexp.MustCompile(`\$[_a-zA-Z0-9.\-\[\]]+\$`)

// Infer unifies the step with the argument and runs it. Failures and panics
// turn into an empty thought.
func (d *Dispatcher) Infer(ctx context.Context, step *Step, arg *argument.Argument) (result *thought.Thought) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("inference panicked", zap.String("step", step.String()), zap.Any("panic", r))
			result = thought.New()
		}
	}()
	if err := ctx.Err(); err != nil {
		return thought.New()
	}
	t, err := d.infer(ctx, step, arg)
	if err != nil {
		level := d.log.Debug
		if !errors.Is(err, internalerr.ErrNotFound) && !errors.Is(err, internalerr.ErrReaction) {
			level = d.log.Warn
		}
		level("inference failed", zap.String("step", step.String()), zap.Error(err))
		return thought.New()
	}
	if t == nil {
		return thought.New()
	}
	d.log.Debug("inference",
		zap.String("step", step.String()),
		zap.String("process", t.Process()),
		zap.Int("rows", t.Count()),
		zap.Bool("failed", t.IsFailed()))
	return t
}

func (d *Dispatcher) infer(ctx context.Context, step *Step, arg *argument.Argument) (*thought.Thought, error) {
	if step.Kind == Console && step.Definition != nil {
		return d.define(ctx, *step.Definition, arg)
	}
	procs, ok := d.kinds[step.Kind]
	if !ok || procs.Len() == 0 {
		return nil, fmt.Errorf("%s inference not available: %w", step.Kind, internalerr.ErrNotFound)
	}
	expression, ok := arg.Unify(step.Expression, d.encode[step.Kind], d.depth)
	if !ok {
		if step.Kind != Memory {
			return nil, fmt.Errorf("unresolved %q: %w", expression, internalerr.ErrReaction)
		}
		// Memory conditions treat unknown variables as empty.
		expression = variable.ReplaceAllString(expression, "")
	}
	return procs.Deduce(ctx, arg, strings.TrimSpace(expression))
}

func (d *Dispatcher) define(ctx context.Context, def Definition, arg *argument.Argument) (*thought.Thought, error) {
	if d.definitions == nil {
		return nil, fmt.Errorf("console definitions not available: %w", internalerr.ErrNotFound)
	}
	url, ok := arg.Unify(def.URL, true, d.depth)
	if !ok {
		return nil, fmt.Errorf("unresolved url %q: %w", url, internalerr.ErrReaction)
	}
	path, ok := arg.Unify(def.Path, false, d.depth)
	if !ok {
		return nil, fmt.Errorf("unresolved path %q: %w", path, internalerr.ErrReaction)
	}
	def.URL, def.Path = url, path
	t, err := d.definitions(ctx, def)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return thought.New(), nil
	}
	return t.SetProcess("definition"), nil
}
