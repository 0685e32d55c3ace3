package pattern

import (
	"context"
	"regexp"
	"strings"
)

// Kind classifies how a template was written.
type Kind int

const (
	Literal Kind = iota // no wildcards
	Wildcard            // uses * or +
	Regex               // genuine regular expression
)

func (k Kind) String() string {
	switch k {
	case Wildcard:
		return "pattern"
	case Regex:
		return "regex"
	}
	return "literal"
}

// Priority marks utterances that should win over equally specific ones.
type Priority int

const (
	Minor Priority = iota
	Prior
)

func (p Priority) String() string {
	if p == Prior {
		return "prior"
	}
	return "minor"
}

// Utterance is one compiled trigger template. It is immutable.
type Utterance struct {
	template   string
	re         *regexp.Regexp
	kind       Kind
	priority   Priority
	capture    bool
	meat       int
	length     int
	sourceLine int
	tokens     []string
	catchAll   bool
}

// Compile builds an Utterance from a template. line is the source line of the
// rule (0 when unknown) and is only used in error messages.
func Compile(template string, priority Priority, line int) (*Utterance, error) {
	if strings.TrimSpace(template) == "" {
		template = "*"
	}
	u := &Utterance{template: template, priority: priority, sourceLine: line}
	var expr string
	if IsRegularExpression(template) {
		u.kind = Regex
		expr = strings.TrimSpace(template)
		re, err := compileAnchored(expr, true)
		if err != nil {
			return nil, &PatternError{Template: template, Line: line, Err: err}
		}
		u.re = re
		u.tokens = regexTokens(expr)
	} else {
		norm := Normalize(template)
		if strings.ContainsAny(norm, "*+") {
			u.kind = Wildcard
		}
		expr = Translate(norm)
		re, err := compileAnchored(expr, false)
		if err != nil {
			return nil, &PatternError{Template: template, Line: line, Err: err}
		}
		u.re = re
		u.tokens = literalTokens(norm)
	}
	u.capture = hasCaptureGroup(expr)
	u.meat = meatSize(template, u.kind == Regex)
	u.length = len([]rune(template))
	u.catchAll = expr == catchAllGroup || expr == ".*" || expr == "^(.*)$"
	return u, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// static rule tables.
func MustCompile(template string) *Utterance {
	u, err := Compile(template, Minor, 0)
	if err != nil {
		panic(err)
	}
	return u
}

func literalTokens(norm string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, alt := range strings.Split(norm, "|") {
		for _, w := range strings.Fields(alt) {
			// a glued wildcard still leaves its literal part as a key
			w = strings.Trim(w, "*+")
			if strings.ContainsAny(w, "*+") {
				continue
			}
			out = addToken(out, seen, Meat(w))
		}
	}
	return out
}

// regexTokens keeps the plain words of a regular expression template. Words
// holding regex syntax other than the outer anchors are not literal.
func regexTokens(expr string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(expr) {
		w = strings.TrimSuffix(strings.TrimPrefix(w, "^"), "$")
		if strings.ContainsAny(w, `\.^$|?*+()[]{}`) {
			continue
		}
		out = addToken(out, seen, strings.ToLower(Meat(w)))
	}
	return out
}

func addToken(out []string, seen map[string]struct{}, m string) []string {
	if len(m) <= 1 {
		return out
	}
	if _, ok := seen[m]; ok {
		return out
	}
	seen[m] = struct{}{}
	return append(out, m)
}

// Template returns the source template.
func (u *Utterance) Template() string { return u.template }

// Pattern returns the anchored compiled expression.
func (u *Utterance) Pattern() *regexp.Regexp { return u.re }

func (u *Utterance) Kind() Kind { return u.kind }
func (u *Utterance) Priority() Priority { return u.priority }
func (u *Utterance) HasCaptureGroup() bool { return u.capture }
func (u *Utterance) SourceLine() int { return u.sourceLine }

// MeatSize is the capped count of literal characters; zero for regexes.
func (u *Utterance) MeatSize() int { return u.meat }

// Length is the length of the whole template in characters.
func (u *Utterance) Length() int { return u.length }

// Tokens returns the literal words of the template that can serve as index
// keys. Regex templates have none.
func (u *Utterance) Tokens() []string {
	out := make([]string, len(u.tokens))
	copy(out, u.tokens)
	return out
}

// CatchAll reports whether the utterance matches any input.
func (u *Utterance) CatchAll() bool { return u.catchAll }

// Match matches the whole of text, which should already be normalized.
// A timed-out or cancelled match is a non-match.
func (u *Utterance) Match(ctx context.Context, text string) (*Matcher, bool) {
	return MatchFull(ctx, u.re, text)
}

func (u *Utterance) String() string { return u.template }
