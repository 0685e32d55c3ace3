package mind

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/intent"
)

func dirLoader(dir string) LoadFunc {
	return func(ctx context.Context) ([]*intent.Intent, error) {
		paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
		if err != nil {
			return nil, err
		}
		var out []*intent.Intent
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			f, err := intent.Decode(data)
			if err != nil {
				return nil, err
			}
			for _, d := range f.Intents {
				ins, err := intent.FromDefinition(d, intent.Source{Origin: p})
				if err != nil {
					return nil, err
				}
				out = append(out, ins...)
			}
		}
		return out, nil
	}
}

func TestWatcherReloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("greet.yaml", "- phrases: [{expression: hello}]\n  actions: [{type: answer, phrases: [hi]}]\n")

	m := New(Options{Inferrer: inference.NewDispatcher(inference.Options{})})
	load := dirLoader(dir)
	w := NewWatcher(m, load, []string{dir}, WatcherOptions{Debounce: 20 * time.Millisecond})
	w.Reload(context.Background())
	require.Equal(t, 1, m.Index().Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx), "second start is a no-op")

	write("bye.yaml", "- phrases: [{expression: bye}]\n  actions: [{type: answer, phrases: [ciao]}]\n")
	write("notes.txt", "ignored")
	require.Eventually(t, func() bool { return m.Index().Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	before := w.Reloads()
	write("broken.yaml", "intents: [unclosed")
	require.Eventually(t, func() bool { return w.Failures() > 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, m.Index().Len(), "failed reload keeps previous rules")
	assert.Equal(t, before, w.Reloads())

	w.Stop()
	w.Stop()
}

func TestWatcherStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := New(Options{})
	w := NewWatcher(m, func(context.Context) ([]*intent.Intent, error) {
		return nil, errors.New("unused")
	}, []string{t.TempDir(), filepath.Join(t.TempDir(), "missing")}, WatcherOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()
	require.Eventually(t, func() bool { return !w.Running() }, 5*time.Second, 10*time.Millisecond)
	w.Stop()

	// a watcher released by its context can be started again
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Running())
	w.Stop()
	assert.False(t, w.Running())
}

func TestReloadKeepsOtherOrigins(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("greet.yaml", "- phrases: [{expression: hello}]\n  actions: [{type: answer, phrases: [hi]}]\n")
	write("bye.yaml", "- phrases: [{expression: bye}]\n  actions: [{type: answer, phrases: [ciao]}]\n")

	m := New(Options{Inferrer: inference.NewDispatcher(inference.Options{})})
	w := NewWatcher(m, dirLoader(dir), []string{dir}, WatcherOptions{})
	w.Reload(context.Background())
	require.Equal(t, 2, m.Index().Len())

	m.Learn(rules(t, "learned", "- phrases: [{expression: ping}]\n  actions: [{type: answer, phrases: [pong]}]\n")...)
	require.NoError(t, os.Remove(filepath.Join(dir, "bye.yaml")))
	write("greet.yaml", "- phrases: [{expression: hello}]\n  actions: [{type: answer, phrases: [hey]}]\n")
	w.Reload(context.Background())

	assert.Equal(t, []string{"pong"}, ask(t, m, "ping").Expressions())
	assert.Equal(t, []string{"hey"}, ask(t, m, "hello").Expressions())
	assert.False(t, ask(t, m, "bye").Answered(), "intents of a removed file are dropped")
	assert.Equal(t, 2, m.Index().Len())
}
