package action

import (
	"regexp"
	"strings"
)

// Marker syntax inside answer phrases:
//
//	value>name     visible assignment, value stays in the text
//	^value^>name   blind assignment, removed from the text
//	`sub query`    reflection, replaced by the answer to the sub query
var (
	visibleAssignment  = regexp.MustCompile(`([^?!\s,.;^<>` + "`" + `-]+)>([_a-zA-Z0-9]+)`)
	blindAssignment    = regexp.MustCompile(`\^([^^]*)\^>([_a-zA-Z0-9]+)`)
	reflectionParallel = regexp.MustCompile("^(?s:.*?)`([^`]*?)`(?s:.*?)$")
	reflectionNested   = regexp.MustCompile("^(?s:.*?)`(.*)`(?s:.*?)$")
)

// Assignment is a variable binding found in a phrase.
type Assignment struct {
	Name  string
	Value string
}

// ApplyVisibleAssignments strips the ">name" part of every visible
// assignment and returns the bindings in text order. Values that still hold
// variables or reflections are left untouched.
func ApplyVisibleAssignments(expr string) (string, []Assignment) {
	return applyAssignments(expr, visibleAssignment, false)
}

// ApplyBlindAssignments removes every "^value^>name" marker and returns the
// bindings in text order.
func ApplyBlindAssignments(expr string) (string, []Assignment) {
	return applyAssignments(expr, blindAssignment, true)
}

func applyAssignments(expr string, re *regexp.Regexp, blind bool) (string, []Assignment) {
	locs := re.FindAllStringSubmatchIndex(expr, -1)
	if len(locs) == 0 {
		return expr, nil
	}
	var found []Assignment
	var sb strings.Builder
	last := 0
	for _, loc := range locs {
		value := expr[loc[2]:loc[3]]
		if strings.ContainsAny(value, "$`") {
			continue
		}
		if !blind && loc[2] > 0 && expr[loc[2]-1] == '<' {
			continue // markup tag
		}
		found = append(found, Assignment{Name: expr[loc[4]:loc[5]], Value: value})
		if blind {
			sb.WriteString(expr[last:loc[0]])
		} else {
			sb.WriteString(expr[last:loc[3]])
		}
		last = loc[5]
	}
	if len(found) == 0 {
		return expr, nil
	}
	sb.WriteString(expr[last:])
	out := sb.String()
	if blind {
		out = strings.Join(strings.Fields(out), " ")
	}
	return out, found
}

// FindReflection locates the back-quoted sub query to resolve next. It
// returns the byte span of the query without the quotes. When both the
// parallel (`a` and `b`) and the nested (`a `b` c`) reading apply, simple
// heuristics on the captured text decide.
func FindReflection(expr string) (start, end int, ok bool) {
	nested := reflectionNested.FindStringSubmatchIndex(expr)
	parallel := reflectionParallel.FindStringSubmatchIndex(expr)
	switch {
	case nested == nil && parallel == nil:
		return 0, 0, false
	case parallel == nil:
		return nested[2], nested[3], true
	case nested == nil:
		return parallel[2], parallel[3], true
	}
	n := expr[nested[2]:nested[3]]
	p := expr[parallel[2]:parallel[3]]
	nestedSpan := func() (int, int, bool) { return nested[2], nested[3], true }
	parallelSpan := func() (int, int, bool) { return parallel[2], parallel[3], true }

	nt, pt := strings.TrimSpace(n), strings.TrimSpace(p)
	switch {
	case nt == "":
		return parallelSpan()
	case pt == "":
		return nestedSpan()
	case len(n) == len(nt) && len(p) != len(pt):
		return nestedSpan()
	case len(n) != len(nt) && len(p) == len(pt):
		return parallelSpan()
	}
	for i := 0; i < len(n); i++ {
		if n[i] < '0' {
			return parallelSpan()
		}
	}
	return nestedSpan()
}

// HasReflection reports whether expr still contains a back quote.
func HasReflection(expr string) bool {
	return strings.IndexByte(expr, '`') >= 0
}
