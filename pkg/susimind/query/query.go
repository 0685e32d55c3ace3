// Package query parses the small SELECT language of console inferences:
//
//	SELECT <transfer> FROM <service> WHERE <column> = '<value>' [AND ...];
//	SELECT <transfer> FROM (SELECT ...) WHERE <column> IN ('a', 'b');
package query

import (
	"fmt"
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
)

// Select is one parsed query.
type Select struct {
	Columns string // transfer expression
	From    string // service name, empty when Sub is set
	Sub     *Select
	Where   []Condition
}

// Condition is "column = value" or "column IN (values)".
type Condition struct {
	Column string
	Value  string
	In     []string
}

// Value returns the value of the first equality condition on column.
func (s *Select) Value(column string) (string, bool) {
	for _, c := range s.Where {
		if c.In == nil && strings.EqualFold(c.Column, column) {
			return c.Value, true
		}
	}
	return "", false
}

// String renders the query in canonical form.
func (s *Select) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(s.Columns)
	sb.WriteString(" FROM ")
	if s.Sub != nil {
		sb.WriteString("(")
		sb.WriteString(strings.TrimSuffix(s.Sub.String(), ";"))
		sb.WriteString(")")
	} else {
		sb.WriteString(s.From)
	}
	for i, c := range s.Where {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(c.Column)
		if c.In != nil {
			quoted := make([]string, len(c.In))
			for j, v := range c.In {
				quoted[j] = quote(v)
			}
			sb.WriteString(" IN (" + strings.Join(quoted, ", ") + ")")
		} else {
			sb.WriteString(" = " + quote(c.Value))
		}
	}
	sb.WriteString(";")
	return sb.String()
}

func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// Parse reads one query. A trailing semicolon is optional.
func Parse(expr string) (*Select, error) {
	p := &parser{s: strings.TrimSpace(expr)}
	sel, err := p.parseSelect()
	if err != nil {
		return nil, p.fail(err)
	}
	p.skipSpace()
	p.consume(';')
	p.skipSpace()
	if !p.eof() {
		return nil, p.fail(fmt.Errorf("unexpected %q", p.s[p.pos:]))
	}
	return sel, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) fail(err error) error {
	return fmt.Errorf("query %q at %d: %v: %w", p.s, p.pos, err, internalerr.ErrInvalidInput)
}

func (p *parser) parseSelect() (*Select, error) {
	p.skipSpace()
	if !p.keyword("SELECT") {
		return nil, fmt.Errorf("expected SELECT")
	}
	from := indexKeyword(p.s[p.pos:], "FROM")
	if from < 0 {
		return nil, fmt.Errorf("expected FROM")
	}
	sel := &Select{Columns: strings.TrimSpace(p.s[p.pos : p.pos+from])}
	if sel.Columns == "" {
		return nil, fmt.Errorf("no columns")
	}
	p.pos += from
	p.keyword("FROM")
	p.skipSpace()
	if p.consume('(') {
		sub, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		p.consume(';')
		p.skipSpace()
		if !p.consume(')') {
			return nil, fmt.Errorf("expected )")
		}
		sel.Sub = sub
	} else {
		sel.From = p.ident()
		if sel.From == "" {
			return nil, fmt.Errorf("expected service name")
		}
	}
	p.skipSpace()
	if !p.keyword("WHERE") {
		return sel, nil
	}
	for {
		c, err := p.condition()
		if err != nil {
			return nil, err
		}
		sel.Where = append(sel.Where, c)
		p.skipSpace()
		if !p.keyword("AND") {
			return sel, nil
		}
	}
}

func (p *parser) condition() (Condition, error) {
	p.skipSpace()
	c := Condition{Column: p.ident()}
	if c.Column == "" {
		return c, fmt.Errorf("expected column")
	}
	p.skipSpace()
	if p.consume('=') {
		p.skipSpace()
		v, err := p.value()
		c.Value = v
		return c, err
	}
	if !p.keyword("IN") {
		return c, fmt.Errorf("expected = or IN")
	}
	p.skipSpace()
	if !p.consume('(') {
		return c, fmt.Errorf("expected (")
	}
	c.In = []string{}
	for {
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return c, err
		}
		c.In = append(c.In, v)
		p.skipSpace()
		if p.consume(')') {
			return c, nil
		}
		if !p.consume(',') {
			return c, fmt.Errorf("expected , or )")
		}
	}
}

// value reads a quoted string, with doubled quotes as escapes, or a bare
// word.
func (p *parser) value() (string, error) {
	if p.eof() {
		return "", fmt.Errorf("expected value")
	}
	q := p.s[p.pos]
	if q != '\'' && q != '"' {
		v := p.ident()
		if v == "" {
			return "", fmt.Errorf("expected value")
		}
		return v, nil
	}
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.s) {
		ch := p.s[p.pos]
		p.pos++
		if ch != q {
			sb.WriteByte(ch)
			continue
		}
		if p.pos < len(p.s) && p.s[p.pos] == q {
			sb.WriteByte(q)
			p.pos++
			continue
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("unterminated string")
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.s) && isIdent(p.s[p.pos]) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func isIdent(ch byte) bool {
	return ch == '_' || ch == '.' || ch == '-' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func (p *parser) keyword(kw string) bool {
	end := p.pos + len(kw)
	if end > len(p.s) || !strings.EqualFold(p.s[p.pos:end], kw) {
		return false
	}
	if end < len(p.s) && isIdent(p.s[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *parser) consume(ch byte) bool {
	if p.pos < len(p.s) && p.s[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n' || p.s[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.s) }

// indexKeyword finds kw as a whole word outside quotes.
func indexKeyword(s, kw string) int {
	var quote byte
	for i := 0; i+len(kw) <= len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '\'' || ch == '"' {
			quote = ch
			continue
		}
		if !strings.EqualFold(s[i:i+len(kw)], kw) {
			continue
		}
		if i > 0 && isIdent(s[i-1]) {
			continue
		}
		if j := i + len(kw); j < len(s) && isIdent(s[j]) {
			continue
		}
		return i
	}
	return -1
}
