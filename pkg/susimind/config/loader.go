package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/susimind/pkg/susimind/intent"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/language"
	"github.com/cognicore/susimind/pkg/susimind/lexicon"
)

// RuleExtensions are the file types read as rule files.
var RuleExtensions = []string{".yaml", ".yml", ".json"}

// Loader loads all rule files and the lexicon
type Loader struct {
	RulePaths   []string
	LexiconPath string
	// Language of rule files that neither declare one nor sit in a
	// directory named after one.
	Language language.Language
	Logger   *zap.Logger
}

// Components holds what the loader produced
type Components struct {
	Intents  []*intent.Intent
	Lexicons *lexicon.Set
	Files    []string
	Skipped  int
}

// NewLoader creates a loader for a configuration.
func NewLoader(cfg *Config, logger *zap.Logger) *Loader {
	return &Loader{
		RulePaths:   cfg.Rules,
		LexiconPath: cfg.Lexicon,
		Language:    cfg.Lang(),
		Logger:      logger,
	}
}

// Load reads the lexicon and every rule file.
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	comp := &Components{}
	if l.LexiconPath != "" {
		set, err := lexicon.LoadFromYAML(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicons = set
	}

	files, err := RuleFiles(l.RulePaths)
	if err != nil {
		return nil, err
	}
	comp.Files = files

	intents, skipped, err := l.loadFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	comp.Intents = intents
	comp.Skipped = skipped
	return comp, nil
}

// Intents reloads the rule files only; it is the load function of the rule
// watcher.
func (l *Loader) Intents(ctx context.Context) ([]*intent.Intent, error) {
	files, err := RuleFiles(l.RulePaths)
	if err != nil {
		return nil, err
	}
	intents, _, err := l.loadFiles(ctx, files)
	return intents, err
}

type fileResult struct {
	intents []*intent.Intent
	skipped int
}

// loadFiles decodes the files in parallel and keeps the results in file
// order.
func (l *Loader) loadFiles(ctx context.Context, files []string) ([]*intent.Intent, int, error) {
	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			intents, skipped, err := l.loadFile(path, log)
			if err != nil {
				return err
			}
			results[i] = fileResult{intents: intents, skipped: skipped}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	var (
		out     []*intent.Intent
		skipped int
	)
	for _, r := range results {
		out = append(out, r.intents...)
		skipped += r.skipped
	}
	return out, skipped, nil
}

// loadFile compiles one rule file. Definitions that fail to compile are
// skipped with a warning; an unreadable file fails the load.
func (l *Loader) loadFile(path string, log *zap.Logger) ([]*intent.Intent, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read rules %s: %w", path, err)
	}
	file, err := intent.Decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	src := intent.Source{Origin: path, Language: l.fileLanguage(path, file)}

	var (
		out     []*intent.Intent
		skipped int
	)
	for i, def := range file.Intents {
		intents, err := intent.FromDefinition(def, src)
		if err != nil {
			skipped++
			log.Warn("skipping rule",
				zap.String("file", path),
				zap.Int("index", i),
				zap.Bool("pattern", errors.Is(err, internalerr.ErrPattern)),
				zap.Error(err))
			continue
		}
		out = append(out, intents...)
	}
	log.Debug("loaded rules", zap.String("file", path), zap.Int("intents", len(out)), zap.Int("skipped", skipped))
	return out, skipped, nil
}

// fileLanguage is the declared language, else the name of the directory
// holding the file when it is a language code, else the loader default.
func (l *Loader) fileLanguage(path string, file *intent.File) language.Language {
	if lang := language.Parse(file.Language); lang != language.Unknown {
		return lang
	}
	dir := filepath.Base(filepath.Dir(path))
	if len(dir) == 2 {
		if lang := language.Parse(dir); lang != language.Unknown {
			return lang
		}
	}
	return l.Language
}

// RuleFiles expands files and directories into a sorted list of rule
// files. Hidden files and directories are ignored.
func RuleFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("rules %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && IsRuleFile(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("rules %s: %w", root, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

// IsRuleFile reports a path with one of the rule extensions.
func IsRuleFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range RuleExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
