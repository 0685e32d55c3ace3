// Package language identifies the language of rules and queries and estimates
// how likely a speaker of one language understands another.
package language

import (
	"strings"

	xlang "golang.org/x/text/language"
)

// Language is a lower-case ISO 639-1 base language code. The zero value is
// Unknown.
type Language string

// Unknown is used when no language is given or the code cannot be parsed.
const Unknown Language = ""

// Common languages with entries in the compatibility table.
const (
	English Language = "en"
	German  Language = "de"
	Finnish Language = "fi"
	Swedish Language = "sv"
)

// Parse reduces a BCP-47 tag such as "en-US" or "de_CH" to its base language.
func Parse(s string) Language {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", "-"))
	if s == "" || strings.EqualFold(s, "unknown") {
		return Unknown
	}
	tag, err := xlang.Parse(s)
	if err != nil {
		return Unknown
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return Unknown
	}
	return Language(base.String())
}

// String returns the code, or "unknown".
func (l Language) String() string {
	if l == Unknown {
		return "unknown"
	}
	return string(l)
}

// LikelihoodCanSpeak estimates the probability that a speaker of l also
// understands other. The relation is not symmetric.
func (l Language) LikelihoodCanSpeak(other Language) float64 {
	if l == Unknown || other == Unknown || l == other {
		return 1.0
	}
	switch {
	case other == English && (l == German || l == Finnish || l == Swedish):
		return 0.9
	case l == Finnish && other == Swedish, l == Swedish && other == Finnish:
		return 0.9
	case other == English:
		return 0.5
	}
	return 0
}

// Affinity scales LikelihoodCanSpeak to an integer in [0,100].
func (l Language) Affinity(other Language) int {
	return int(l.LikelihoodCanSpeak(other)*100 + 0.5)
}
