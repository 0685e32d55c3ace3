package pattern

import "strings"

var separators = strings.NewReplacer("#", " ", ",", " ", ";", " ")

var contractions = []struct{ from, to string }{
	{"it's ", "it is "},
	{"what's ", "what is "},
}

// Normalize prepares rule templates and user input for comparison. It is
// idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = separators.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	for {
		t := strings.TrimSpace(strings.TrimRight(s, ".?!"))
		if t == s {
			break
		}
		s = t
	}
	for _, c := range contractions {
		s = strings.ReplaceAll(s, c.from, c.to)
	}
	return s
}
