// Package pattern compiles utterance templates into anchored regular
// expressions and matches them against normalized input under a time guard.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
)

const (
	catchAllGroup = "(.*)"
	catchOneGroup = `(\S+)`
	maxMeat       = 99
)

// PatternError reports a template that cannot be compiled.
type PatternError struct {
	Template string
	Line     int
	Err      error
}

func (e *PatternError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("pattern %q (line %d): %v", e.Template, e.Line, e.Err)
	}
	return fmt.Sprintf("pattern %q: %v", e.Template, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, internalerr.ErrPattern) match any PatternError.
func (e *PatternError) Is(target error) bool { return target == internalerr.ErrPattern }

// IsRegularExpression reports whether a template uses genuine regular
// expression syntax rather than the wildcard template language.
func IsRegularExpression(template string) bool {
	t := strings.TrimSpace(template)
	if t == "" {
		return false
	}
	if strings.Contains(t, ".*") || strings.Contains(t, `\`) {
		return true
	}
	first, last := t[0], t[len(t)-1]
	if (first == '^' && last == '$') || (first == '(' && last == ')') {
		return true
	}
	if strings.Contains(t, "(") && strings.Contains(t, ")") {
		_, err := regexp.Compile(t)
		return err == nil
	}
	return false
}

// Translate turns a normalized wildcard template into an unanchored regular
// expression. Alternatives separated by '|' become non-capturing groups.
func Translate(template string) string {
	alts := strings.Split(template, "|")
	if len(alts) == 1 {
		return translateOne(alts[0])
	}
	parts := make([]string, 0, len(alts))
	for _, a := range alts {
		parts = append(parts, "(?:"+translateOne(a)+")")
	}
	return strings.Join(parts, "|")
}

func translateOne(alt string) string {
	alt = strings.TrimSpace(alt)
	if alt == "" || alt == "*" {
		return catchAllGroup
	}
	words := strings.Fields(alt)
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, translateWord(w))
	}
	return strings.Join(out, " ")
}

func translateWord(w string) string {
	switch w {
	case "*":
		return catchAllGroup
	case "+":
		return catchOneGroup
	}
	prefix, suffix := "", ""
	if g := wildcardGroup(w[0]); g != "" {
		prefix = g + " ?"
		w = w[1:]
	}
	if w != "" {
		if g := wildcardGroup(w[len(w)-1]); g != "" {
			suffix = " ?" + g
			w = w[:len(w)-1]
		}
	}
	return prefix + regexp.QuoteMeta(w) + suffix
}

func wildcardGroup(c byte) string {
	switch c {
	case '*':
		return catchAllGroup
	case '+':
		return catchOneGroup
	}
	return ""
}

// Meat returns the letters, digits, spaces and underscores of s.
func Meat(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// meatSize is the capped count of literal characters. Regular expressions
// have no meat.
func meatSize(template string, regex bool) int {
	if regex {
		return 0
	}
	n := len([]rune(Meat(template)))
	if n > maxMeat {
		n = maxMeat
	}
	return n
}

func hasCaptureGroup(expr string) bool {
	return strings.Contains(strings.ReplaceAll(expr, "(?", ""), "(")
}

func compileAnchored(expr string, foldCase bool) (*regexp.Regexp, error) {
	src := "^(?:" + expr + ")$"
	if foldCase {
		src = "(?i)" + src
	}
	return regexp.Compile(src)
}
