package mind

import (
	"context"
	"regexp"
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/intent"
	"github.com/cognicore/susimind/pkg/susimind/language"
)

// Check is the outcome of running an intent's example.
type Check struct {
	Intent  *intent.Intent
	Example string
	Expect  string
	Got     []string
	Passed  bool
}

// SelfTest reacts on the example of every intent that has one and checks
// the answers against the intent's expectation, a case-insensitive regular
// expression searched in each answer. An example without expectation
// passes when anything answers.
func (m *Mind) SelfTest(ctx context.Context, lang language.Language) ([]Check, error) {
	var checks []Check
	for _, in := range m.Index().Intents() {
		if in.Example() == "" {
			continue
		}
		r, err := m.React(ctx, Query{Text: in.Example(), Language: lang})
		if err != nil {
			return checks, err
		}
		c := Check{Intent: in, Example: in.Example(), Expect: in.Expect(), Got: r.Expressions()}
		c.Passed = r.Answered() && expected(c.Expect, c.Got)
		checks = append(checks, c)
	}
	return checks, nil
}

func expected(expect string, got []string) bool {
	if expect == "" {
		return true
	}
	re, err := regexp.Compile("(?i)" + expect)
	for _, g := range got {
		if err != nil {
			if strings.Contains(strings.ToLower(g), strings.ToLower(expect)) {
				return true
			}
			continue
		}
		if re.MatchString(g) {
			return true
		}
	}
	return false
}
