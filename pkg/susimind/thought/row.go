package thought

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Row is an insertion-ordered map of observation names to values. Values are
// strings, numbers, booleans, nested objects (map[string]any) or arrays
// ([]any), as produced by encoding/json.
type Row struct {
	keys []string
	vals map[string]any
}

// NewRow creates a row from alternating key/value pairs.
func NewRow(kv ...string) *Row {
	r := &Row{vals: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

// RowFromMap creates a row from a map; keys are sorted for a stable order.
func RowFromMap(m map[string]any) *Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := &Row{vals: make(map[string]any, len(m))}
	for _, k := range keys {
		r.Set(k, m[k])
	}
	return r
}

// Set adds or replaces a value. Replacing keeps the original position.
func (r *Row) Set(key string, value any) {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = value
}

// Get returns the raw value.
func (r *Row) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.vals[key]
	return v, ok
}

// String returns the value as text, "" when absent.
func (r *Row) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return ValueString(v)
}

// Has reports whether key is present.
func (r *Row) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Delete removes key.
func (r *Row) Delete(key string) {
	if _, ok := r.vals[key]; !ok {
		return
	}
	delete(r.vals, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (r *Row) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

// Len returns the number of keys.
func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone copies the row. Nested values are shared.
func (r *Row) Clone() *Row {
	c := &Row{keys: append([]string(nil), r.keys...), vals: make(map[string]any, len(r.vals))}
	for k, v := range r.vals {
		c.vals[k] = v
	}
	return c
}

// PutAll copies all entries of o into r.
func (r *Row) PutAll(o *Row) {
	for _, k := range o.keys {
		r.Set(k, o.vals[k])
	}
}

// Same reports whether both rows hold the same keys with the same textual
// values, regardless of order.
func (r *Row) Same(o *Row) bool {
	if r.Len() != o.Len() {
		return false
	}
	for _, k := range r.keys {
		ov, ok := o.vals[k]
		if !ok {
			return false
		}
		if ValueString(r.vals[k]) != ValueString(ov) {
			return false
		}
	}
	return true
}

// SharesKey reports whether any key of r is present in o.
func (r *Row) SharesKey(o *Row) bool {
	for _, k := range r.keys {
		if o.Has(k) {
			return true
		}
	}
	return false
}

// Map returns a plain map copy.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.vals))
	for k, v := range r.vals {
		m[k] = v
	}
	return m
}

// MarshalJSON writes keys in insertion order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.vals[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the document.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row: expected object, got %v", tok)
	}
	*r = Row{vals: make(map[string]any)}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("row: expected key, got %v", kt)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		r.Set(key, normalizeNumbers(v))
	}
	_, err = dec.Token()
	return err
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
	}
	return v
}

// ValueString renders a value the way it is substituted into statements.
func ValueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case *Row:
		b, _ := x.MarshalJSON()
		return string(b)
	case map[string]any, []any:
		b, _ := json.Marshal(x)
		return string(b)
	}
	return fmt.Sprint(v)
}
