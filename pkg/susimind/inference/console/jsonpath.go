package console

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Bang is the column that holds atomic values.
const Bang = "!"

type segment struct {
	field    string
	index    int
	isIndex  bool
	wildcard bool
}

// parsePath reads "$", "$.a.b", "$.a[2].c", "$.a[*]", "$['a b']" and the
// same without the leading "$".
func parsePath(path string) ([]segment, error) {
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, "$")
	var segs []segment
	for len(p) > 0 {
		switch p[0] {
		case '.':
			p = p[1:]
			if strings.HasPrefix(p, "*") {
				segs = append(segs, segment{wildcard: true})
				p = p[1:]
				continue
			}
			end := strings.IndexAny(p, ".[")
			if end < 0 {
				end = len(p)
			}
			if end == 0 {
				return nil, fmt.Errorf("json path %q: empty field: %w", path, internalerr.ErrInvalidInput)
			}
			segs = append(segs, segment{field: p[:end]})
			p = p[end:]
		case '[':
			end := strings.IndexByte(p, ']')
			if end < 0 {
				return nil, fmt.Errorf("json path %q: missing ]: %w", path, internalerr.ErrInvalidInput)
			}
			inner := strings.TrimSpace(p[1:end])
			p = p[end+1:]
			switch {
			case inner == "*":
				segs = append(segs, segment{wildcard: true})
			case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"'):
				segs = append(segs, segment{field: inner[1 : len(inner)-1]})
			default:
				i, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("json path %q: index %q: %w", path, inner, internalerr.ErrInvalidInput)
				}
				segs = append(segs, segment{index: i, isIndex: true})
			}
		default:
			// a bare first field
			end := strings.IndexAny(p, ".[")
			if end < 0 {
				end = len(p)
			}
			segs = append(segs, segment{field: p[:end]})
			p = p[end:]
		}
	}
	return segs, nil
}

// Extract evaluates path on a JSON document and returns the selected
// values as rows. Arrays yield one row per element, objects one row, and
// atomic values a row {"!": value}.
func Extract(doc []byte, path string) ([]*thought.Row, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	values := []any{root}
	spread := false
	for _, seg := range segs {
		var next []any
		for _, v := range values {
			next = append(next, step(v, seg)...)
		}
		values = next
		spread = spread || seg.wildcard
	}
	if len(values) == 1 && !spread {
		if arr, ok := values[0].([]any); ok {
			values = arr
		}
	}
	rows := make([]*thought.Row, 0, len(values))
	for _, v := range values {
		rows = append(rows, toRow(v))
	}
	return rows, nil
}

func step(v any, seg segment) []any {
	switch {
	case seg.wildcard:
		switch x := v.(type) {
		case []any:
			return x
		case map[string]any:
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			out := make([]any, 0, len(keys))
			for _, k := range keys {
				out = append(out, x[k])
			}
			return out
		}
	case seg.isIndex:
		if arr, ok := v.([]any); ok {
			i := seg.index
			if i < 0 {
				i += len(arr)
			}
			if i >= 0 && i < len(arr) {
				return []any{arr[i]}
			}
		}
	default:
		if obj, ok := v.(map[string]any); ok {
			if f, ok := obj[seg.field]; ok {
				return []any{f}
			}
		}
	}
	return nil
}

func toRow(v any) *thought.Row {
	if obj, ok := v.(map[string]any); ok {
		return thought.RowFromMap(obj)
	}
	r := thought.NewRow()
	r.Set(Bang, v)
	return r
}
