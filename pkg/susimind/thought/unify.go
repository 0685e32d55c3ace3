package thought

import (
	"net/url"
	"strings"
)

// HasVariablePattern reports whether a statement still holds a $...$ pair.
func HasVariablePattern(statement string) bool {
	p := strings.IndexByte(statement, '$')
	if p < 0 {
		return false
	}
	return strings.IndexByte(statement[p+1:], '$') >= 0
}

// UnifyRow substitutes $key$ and $key.sub$ placeholders with the values of
// one row. Plain keys are replaced once per call, sub keys everywhere.
func UnifyRow(statement string, row *Row, urlencode bool) string {
	for _, key := range row.keys {
		value := row.vals[key]
		switch sub := value.(type) {
		case map[string]any:
			for subkey, sv := range sub {
				statement = replaceAll(statement, "$"+key+"."+subkey+"$", ValueString(sv), urlencode)
			}
		case *Row:
			for _, subkey := range sub.keys {
				statement = replaceAll(statement, "$"+key+"."+subkey+"$", ValueString(sub.vals[subkey]), urlencode)
			}
		default:
			placeholder := "$" + key + "$"
			if i := strings.Index(statement, placeholder); i >= 0 {
				statement = statement[:i] + encode(ValueString(value), urlencode) + statement[i+len(placeholder):]
			}
		}
		if strings.IndexByte(statement, '$') < 0 {
			return statement
		}
	}
	return statement
}

func replaceAll(statement, placeholder, value string, urlencode bool) string {
	if !strings.Contains(statement, placeholder) {
		return statement
	}
	return strings.ReplaceAll(statement, placeholder, encode(value, urlencode))
}

func encode(s string, urlencode bool) string {
	if urlencode {
		return url.QueryEscape(s)
	}
	return s
}

// UnifyOnce applies the rows in order until no placeholder is left. The
// result may still hold placeholders this thought cannot resolve.
func (t *Thought) UnifyOnce(statement string, urlencode bool) string {
	if strings.IndexByte(statement, '$') < 0 {
		return statement
	}
	for _, row := range t.rows {
		statement = UnifyRow(statement, row, urlencode)
		if strings.IndexByte(statement, '$') < 0 {
			break
		}
	}
	return statement
}

// Unify returns up to max distinct instantiations of statement, one per row
// that resolves it. With allowUninstantiated the statement itself and
// partial instantiations are kept as well.
func (t *Thought) Unify(statement string, max int, allowUninstantiated, urlencode bool) []string {
	if strings.IndexByte(statement, '$') < 0 {
		return []string{statement}
	}
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if allowUninstantiated {
		add(statement)
	}
	for _, row := range t.rows {
		if len(out) >= max {
			break
		}
		u := UnifyRow(statement, row, urlencode)
		if strings.IndexByte(u, '$') >= 0 {
			u = t.UnifyOnce(u, urlencode)
		}
		if strings.IndexByte(u, '$') < 0 || allowUninstantiated {
			add(u)
		}
	}
	return out
}
