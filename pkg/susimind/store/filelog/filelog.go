// Package filelog stores awareness logs as JSON lines, one log.txt per
// client directory.
package filelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cognicore/susimind/internal/jsonl"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/store"
)

// LogName is the file name of a client log.
const LogName = "log.txt"

// Store keeps logs below a root directory.
type Store struct {
	root string
	log  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ store.LogStore = (*Store)(nil)

// Open creates the root directory when missing.
func Open(root string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	return &Store{root: root, log: logger, locks: make(map[string]*sync.Mutex)}, nil
}

// Close implements store.LogStore.
func (s *Store) Close() error { return nil }

// Path returns the log file of client. Every client maps to one directory
// directly below the root.
func (s *Store) Path(client string) (string, error) {
	if client == "" {
		return "", fmt.Errorf("%w: empty client", internalerr.ErrInvalidInput)
	}
	dir := filepath.Join(s.root, dirName(client))
	if filepath.Dir(dir) != filepath.Clean(s.root) {
		return "", fmt.Errorf("%w: client %q escapes the log root", internalerr.ErrInvalidInput, client)
	}
	return filepath.Join(dir, LogName), nil
}

// dirName escapes a client id into a directory name. A leading dot is
// escaped as well, so "." and ".." name ordinary directories.
func dirName(client string) string {
	name := url.PathEscape(client)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return name
}

func (s *Store) lock(client string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[client]
	if !ok {
		l = &sync.Mutex{}
		s.locks[client] = l
	}
	return l
}

// Append implements store.LogStore.
func (s *Store) Append(ctx context.Context, client string, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(record) {
		return fmt.Errorf("%w: record is not JSON", internalerr.ErrInvalidInput)
	}
	path, err := s.Path(client)
	if err != nil {
		return err
	}
	l := s.lock(client)
	l.Lock()
	defer l.Unlock()
	return jsonl.Append(path, record)
}

// Tail implements store.LogStore. Malformed lines are skipped with a
// warning; a log holding nothing but malformed lines is corrupt.
func (s *Store) Tail(ctx context.Context, client string, n int) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(client)
	if err != nil {
		return nil, err
	}
	l := s.lock(client)
	l.Lock()
	defer l.Unlock()
	out, malformed, err := tail(path, n)
	if malformed > 0 && n > 0 && len(out) < n {
		// malformed lines took slots of the tail; read the whole log
		out, malformed, err = tail(path, 0)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrCorruptLog, path, err)
	}
	if malformed > 0 {
		s.log.Warn("skipped malformed log lines", zap.String("path", path), zap.Int("lines", malformed))
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: %s", internalerr.ErrCorruptLog, path)
		}
	}
	return out, nil
}

func tail(path string, n int) (valid [][]byte, malformed int, err error) {
	lines, err := jsonl.Tail(path, n)
	if err != nil {
		return nil, 0, err
	}
	for _, line := range lines {
		if !json.Valid(line) {
			malformed++
			continue
		}
		if n <= 0 || len(valid) < n {
			valid = append(valid, line)
		}
	}
	return valid, malformed, nil
}

// Clients implements store.LogStore.
func (s *Store) Clients(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		client, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), LogName)); err != nil {
			continue
		}
		out = append(out, client)
	}
	sort.Strings(out)
	return out, nil
}

// Rewrite implements store.LogStore.
func (s *Store) Rewrite(ctx context.Context, client string, records [][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(client)
	if err != nil {
		return err
	}
	l := s.lock(client)
	l.Lock()
	defer l.Unlock()
	return jsonl.Write(path, records)
}
