package thought

import (
	"math"
	"strconv"
	"strings"
)

// Transfer maps columns of fetched rows onto observation names, written as
// "a AS x, b.c AS y, d[0] AS z". "*" keeps rows unchanged. A single
// COUNT/MAX/MIN/SUM/AVG(col) entry aggregates all rows into one, and
// PERCENT(col) paired with a second column yields each row's share.
type Transfer struct {
	from []string // nil means identity
	to   []string
}

// ParseTransfer parses a mapping expression.
func ParseTransfer(mapping string) *Transfer {
	mapping = strings.TrimSpace(mapping)
	if mapping == "*" || mapping == "" {
		return &Transfer{}
	}
	t := &Transfer{from: []string{}, to: []string{}}
	for _, column := range strings.Split(mapping, ",") {
		c := strings.TrimSpace(column)
		if p := strings.Index(c, " AS "); p >= 0 {
			t.add(trimQuotes(strings.TrimSpace(c[:p])), trimQuotes(strings.TrimSpace(c[p+4:])))
		} else {
			c = trimQuotes(c)
			t.add(c, c)
		}
	}
	return t
}

func (t *Transfer) add(from, to string) {
	for i, f := range t.from {
		if f == from {
			t.to[i] = to
			return
		}
	}
	t.from = append(t.from, from)
	t.to = append(t.to, to)
}

func trimQuotes(s string) string {
	if s == "" {
		return s
	}
	if s[0] == '\'' || s[0] == '"' {
		s = s[1:]
	}
	if s != "" && (s[len(s)-1] == '\'' || s[len(s)-1] == '"') {
		s = s[:len(s)-1]
	}
	return s
}

// Identity reports the "*" mapping.
func (t *Transfer) Identity() bool { return t.from == nil }

// Keys returns the source columns in order.
func (t *Transfer) Keys() []string { return append([]string(nil), t.from...) }

// Extract maps one row.
func (t *Transfer) Extract(choice *Row) *Row {
	if t.Identity() {
		return choice
	}
	out := NewRow()
	for i, key := range t.from {
		as := t.to[i]
		if p := strings.IndexByte(key, '.'); p > 0 {
			k0, k1 := key[:p], key[p+1:]
			v, ok := choice.Get(k0)
			if !ok {
				continue
			}
			if k1 == "length" || k1 == "size()" {
				switch a := v.(type) {
				case []any:
					out.Set(as, float64(len(a)))
				case []string:
					out.Set(as, float64(len(a)))
				}
				continue
			}
			switch o := v.(type) {
			case map[string]any:
				if sv, ok := o[k1]; ok {
					out.Set(as, sv)
				}
			case *Row:
				if sv, ok := o.Get(k1); ok {
					out.Set(as, sv)
				}
			}
			continue
		}
		if p := strings.IndexByte(key, '['); p > 0 {
			q := strings.IndexByte(key[p:], ']')
			if q < 0 {
				continue
			}
			idx, err := strconv.Atoi(key[p+1 : p+q])
			if err != nil {
				continue
			}
			v, _ := choice.Get(key[:p])
			if a, ok := v.([]any); ok && idx >= 0 && idx < len(a) {
				out.Set(as, a[idx])
			}
			continue
		}
		if v, ok := choice.Get(key); ok {
			out.Set(as, v)
		}
	}
	return out
}

// Conclude maps a table, applying aggregations when the mapping asks for one.
func (t *Transfer) Conclude(choices []*Row) []*Row {
	if len(t.from) == 1 {
		if agg, col, ok := aggregator(t.from[0]); ok {
			as := t.to[0]
			switch agg {
			case "COUNT":
				return []*Row{rowOf(as, float64(len(choices)))}
			case "MAX":
				hi := -math.MaxFloat64
				for _, c := range choices {
					if f := number(c, col); f > hi {
						hi = f
					}
				}
				return []*Row{rowOf(as, hi)}
			case "MIN":
				lo := math.MaxFloat64
				for _, c := range choices {
					if f := number(c, col); f < lo {
						lo = f
					}
				}
				return []*Row{rowOf(as, lo)}
			case "SUM":
				return []*Row{rowOf(as, sum(choices, col))}
			case "AVG":
				if len(choices) == 0 {
					return []*Row{rowOf(as, 0.0)}
				}
				return []*Row{rowOf(as, sum(choices, col)/float64(len(choices)))}
			}
		}
	}
	if len(t.from) == 2 {
		ai, ci := 0, 1
		if strings.Contains(t.from[1], "(") {
			ai, ci = 1, 0
		}
		if agg, col, ok := aggregator(t.from[ai]); ok && agg == "PERCENT" {
			total := sum(choices, col)
			out := make([]*Row, 0, len(choices))
			for _, c := range choices {
				r := NewRow()
				share := 0.0
				if total != 0 {
					share = 100.0 * number(c, col) / total
				}
				r.Set(t.to[ai], share)
				v, _ := c.Get(t.from[ci])
				r.Set(t.to[ci], v)
				out = append(out, r)
			}
			return out
		}
	}
	out := make([]*Row, 0, len(choices))
	for _, c := range choices {
		out = append(out, t.Extract(c))
	}
	return out
}

func aggregator(key string) (name, column string, ok bool) {
	for _, agg := range []string{"COUNT", "MAX", "MIN", "SUM", "AVG", "PERCENT"} {
		if strings.HasPrefix(key, agg+"(") && strings.HasSuffix(key, ")") {
			return agg, key[len(agg)+1 : len(key)-1], true
		}
	}
	return "", "", false
}

func rowOf(key string, v any) *Row {
	r := NewRow()
	r.Set(key, v)
	return r
}

func number(r *Row, col string) float64 {
	v, ok := r.Get(col)
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f
	}
	return 0
}

func sum(rows []*Row, col string) float64 {
	s := 0.0
	for _, r := range rows {
		s += number(r, col)
	}
	return s
}

// String renders the mapping for logs.
func (t *Transfer) String() string {
	if t.Identity() {
		return "*"
	}
	parts := make([]string, len(t.from))
	for i := range t.from {
		parts[i] = t.from[i] + " AS " + t.to[i]
	}
	return strings.Join(parts, ", ")
}
