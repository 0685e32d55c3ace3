// Package jsonl reads and writes files holding one JSON document per line.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// blockSize is the read unit of Tail.
const blockSize = 64 << 10

// Load decodes every line of path into a T, oldest first. Malformed lines
// are passed to warn and skipped; warn may be nil.
func Load[T any](path string, warn func(line int, err error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var items []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, blockSize), 16<<20)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			if warn != nil {
				warn(n, err)
			}
			continue
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return items, fmt.Errorf("read %s: %w", path, err)
	}
	return items, nil
}

// Tail returns up to n non-empty lines from the end of path, newest first.
// n <= 0 returns all lines. The file is read backwards in blocks, so only
// the tail is touched.
func Tail(path string, n int) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var (
		lines   [][]byte
		partial []byte
		offset  = info.Size()
		buf     = make([]byte, blockSize)
	)
	emit := func(line []byte) bool {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			return false
		}
		lines = append(lines, append([]byte(nil), line...))
		return n > 0 && len(lines) >= n
	}
	for offset > 0 {
		size := int64(blockSize)
		if offset < size {
			size = offset
		}
		offset -= size
		if _, err := f.ReadAt(buf[:size], offset); err != nil && err != io.EOF {
			return nil, err
		}
		chunk := append(append([]byte(nil), buf[:size]...), partial...)
		for {
			i := bytes.LastIndexByte(chunk, '\n')
			if i < 0 {
				break
			}
			if emit(chunk[i+1:]) {
				return lines, nil
			}
			chunk = chunk[:i]
		}
		partial = chunk
	}
	emit(partial)
	return lines, nil
}

// Append writes data as one line with a single write call. The file and
// its directory are created when missing.
func Append(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	line := make([]byte, 0, len(data)+1)
	line = append(append(line, bytes.TrimSpace(data)...), '\n')
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write replaces path with the given lines, oldest first. The new content
// is written to a temporary file and renamed over path.
func Write(path string, lines [][]byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	w := bufio.NewWriter(tmp)
	for _, l := range lines {
		w.Write(bytes.TrimSpace(l))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
