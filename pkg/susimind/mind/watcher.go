package mind

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cognicore/susimind/pkg/susimind/intent"
)

// DefaultDebounce batches rapid saves into one reload.
const DefaultDebounce = 300 * time.Millisecond

// LoadFunc reads the complete rule set.
type LoadFunc func(ctx context.Context) ([]*intent.Intent, error)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Logger   *zap.Logger
	Debounce time.Duration
	// Extensions of rule files; empty means .yaml, .yml and .json.
	Extensions []string
}

// Watcher reloads a mind when rule files change. A failed reload keeps
// the previous index.
type Watcher struct {
	mind     *Mind
	load     LoadFunc
	paths    []string
	exts     []string
	debounce time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	reloads atomic.Int64
	failed  atomic.Int64
}

// NewWatcher watches paths, files or directories, for m.
func NewWatcher(m *Mind, load LoadFunc, paths []string, opts WatcherOptions) *Watcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".yaml", ".yml", ".json"}
	}
	return &Watcher{
		mind:     m,
		load:     load,
		paths:    paths,
		exts:     opts.Extensions,
		debounce: opts.Debounce,
		log:      opts.Logger,
	}
}

// Start begins watching in the background. Directories are watched
// recursively as they exist at start.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, p := range w.paths {
		w.add(fs, p)
	}
	w.fs = fs
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx, fs, w.stopCh, w.doneCh)
	return nil
}

func (w *Watcher) add(fs *fsnotify.Watcher, root string) {
	info, err := os.Stat(root)
	if err != nil {
		w.log.Warn("watch path missing", zap.String("path", root), zap.Error(err))
		return
	}
	if !info.IsDir() {
		// editors replace files, so the parent directory is watched
		root = filepath.Dir(root)
	}
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := fs.Add(path); err != nil {
			w.log.Warn("watch failed", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done, fs := w.doneCh, w.fs
	w.mu.Unlock()

	<-done
	if err := fs.Close(); err != nil {
		w.log.Error("closing watcher", zap.Error(err))
	}
}

// expire releases the watcher when its context ends before Stop. A
// concurrent Stop owns the close instead.
func (w *Watcher) expire(fs *fsnotify.Watcher) {
	w.mu.Lock()
	owned := w.running && w.fs == fs
	if owned {
		w.running = false
		w.fs = nil
	}
	w.mu.Unlock()
	if !owned {
		return
	}
	if err := fs.Close(); err != nil {
		w.log.Error("closing watcher", zap.Error(err))
	}
	w.log.Debug("watcher stopped with its context")
}

// Running reports that the watcher is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Reloads counts successful reloads.
func (w *Watcher) Reloads() int64 { return w.reloads.Load() }

// Failures counts reloads that kept the previous index.
func (w *Watcher) Failures() int64 { return w.failed.Load() }

func (w *Watcher) run(ctx context.Context, fs *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.expire(fs)
			return
		case <-stop:
			return
		case ev, ok := <-fs.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.add(fs, ev.Name)
				}
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("rule file changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", zap.Error(err))
		case <-timer.C:
			w.Reload(ctx)
		}
	}
}

// watched reports that origin is a watched path or lies below one.
func (w *Watcher) watched(origin string) bool {
	if origin == "" {
		return false
	}
	o := filepath.Clean(origin)
	for _, p := range w.paths {
		p = filepath.Clean(p)
		if o == p || strings.HasPrefix(o, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	for _, e := range w.exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Reload loads the rule set and swaps it into the mind. Only the origins
// the load returns, or that lie below a watched path, are replaced; intents
// learned from elsewhere stay.
func (w *Watcher) Reload(ctx context.Context) {
	start := time.Now()
	intents, err := w.load(ctx)
	if err != nil {
		w.failed.Add(1)
		w.log.Error("reload failed, keeping previous rules", zap.Error(err))
		return
	}
	loaded := make(map[string]bool)
	for _, in := range intents {
		loaded[in.Origin()] = true
	}
	w.mind.Replace(func(origin string) bool {
		return loaded[origin] || w.watched(origin)
	}, intents)
	w.reloads.Add(1)
	w.log.Info("rules reloaded", zap.Int("intents", len(intents)), zap.Duration("took", time.Since(start)))
}
