// Package script runs script inferences on an embedded Go interpreter.
package script

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Result is the observation holding the script value.
const Result = "!"

// DefaultTimeout bounds one evaluation.
const DefaultTimeout = 2 * time.Second

// DefaultPackages are the importable standard packages. Packages with file,
// process or network access are left out.
var DefaultPackages = []string{
	"bytes",
	"encoding/base64",
	"encoding/json",
	"fmt",
	"math",
	"regexp",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode",
}

// Options configures an Evaluator.
type Options struct {
	Logger   *zap.Logger
	Timeout  time.Duration
	Packages []string
}

// Evaluator interprets Go source. Every evaluation gets a fresh interpreter.
type Evaluator struct {
	timeout time.Duration
	symbols interp.Exports
	log     *zap.Logger

	abandoned atomic.Int64
}

// New creates an evaluator.
func New(opts Options) *Evaluator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Packages == nil {
		opts.Packages = DefaultPackages
	}
	return &Evaluator{
		timeout: opts.Timeout,
		symbols: restrict(stdlib.Symbols, opts.Packages),
		log:     opts.Logger,
	}
}

// restrict keeps the exports of the allowed packages. Export keys have the
// form "path/name", e.g. "encoding/json/json".
func restrict(all interp.Exports, allowed []string) interp.Exports {
	ok := make(map[string]bool, len(allowed))
	for _, p := range allowed {
		ok[p] = true
	}
	out := make(interp.Exports)
	for key, syms := range all {
		i := strings.LastIndexByte(key, '/')
		if i > 0 && ok[key[:i]] {
			out[key] = syms
		}
	}
	return out
}

// Abandoned counts evaluations that outlived their deadline.
func (e *Evaluator) Abandoned() int64 { return e.abandoned.Load() }

// Packages lists the importable packages.
func (e *Evaluator) Packages() []string {
	var pkgs []string
	for key := range e.symbols {
		pkgs = append(pkgs, key[:strings.LastIndexByte(key, '/')])
	}
	sort.Strings(pkgs)
	return pkgs
}

// Eval runs src and returns the value of its last expression, or what it
// printed when there is no value.
//
// The interpreter cannot be interrupted inside a tight loop. When ctx ends
// first Eval returns, but the interpreter goroutine keeps running until the
// script finishes on its own; Abandoned counts those evaluations.
func (e *Evaluator) Eval(ctx context.Context, src string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout bytes.Buffer
	i := interp.New(interp.Options{Stdout: &stdout, Stderr: &stdout})
	if err := i.Use(e.symbols); err != nil {
		return "", fmt.Errorf("load symbols: %w", err)
	}
	v, err := i.EvalWithContext(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			n := e.abandoned.Add(1)
			e.log.Warn("script timed out, interpreter left running",
				zap.Duration("timeout", e.timeout), zap.Int64("abandoned", n), zap.Error(err))
		}
		return "", fmt.Errorf("script: %w", err)
	}
	if s := valueString(v); s != "" {
		return s, nil
	}
	return strings.TrimSpace(stdout.String()), nil
}

func valueString(v reflect.Value) string {
	if !v.IsValid() || !v.CanInterface() {
		return ""
	}
	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ""
	}
	return thought.ValueString(v.Interface())
}

// Register installs the evaluator as the handler of every script step.
func (e *Evaluator) Register(d *inference.Dispatcher) {
	d.Procedures(inference.Script).MustAdd(`(?s)(.+)`, func(ctx context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		out, err := e.Eval(ctx, m.Group(1))
		if err != nil {
			e.log.Debug("script failed", zap.Error(err))
			return nil, fmt.Errorf("%v: %w", err, internalerr.ErrReaction)
		}
		return thought.FromRows(thought.NewRow(Result, out)), nil
	})
}
