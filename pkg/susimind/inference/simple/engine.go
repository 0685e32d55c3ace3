// Package simple is a lightweight logic back-end over binary relation facts,
// selectable instead of Prolog.
//
// A program lists facts, one per line, and at most one goal:
//
//	is_a(bert, transformer)
//	is_a(transformer, model)
//	# comment
//	?- is_a(bert, What)
//
// Arguments starting with an upper-case letter are variables. Transitive
// relations (is_a, related_to, part_of by default) follow chains of facts.
package simple

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Result holds the verdict of a ground goal.
const Result = "!"

// DefaultTransitive are the relations closed under chaining.
var DefaultTransitive = []string{"is_a", "related_to", "part_of"}

// Fact is relation(subject, object).
type Fact struct {
	Relation string
	Subject  string
	Object   string
}

func (f Fact) String() string {
	return fmt.Sprintf("%s(%s, %s)", f.Relation, f.Subject, f.Object)
}

// Link is one hop of an inference chain.
type Link struct {
	Fact
	Depth int
}

// Engine holds the facts of one program.
type Engine struct {
	facts      map[string]map[string][]string // relation → subject → objects
	transitive map[string]bool
}

// New creates an engine; nil transitive means DefaultTransitive.
func New(transitive []string) *Engine {
	if transitive == nil {
		transitive = DefaultTransitive
	}
	e := &Engine{
		facts:      make(map[string]map[string][]string),
		transitive: make(map[string]bool, len(transitive)),
	}
	for _, r := range transitive {
		e.transitive[r] = true
	}
	return e
}

// Load reads facts and returns the goal, if any.
func (e *Engine) Load(program string) (*Fact, error) {
	var goal *Fact
	scanner := bufio.NewScanner(strings.NewReader(program))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			continue
		}
		isGoal := strings.HasPrefix(line, "?-")
		f, err := parseFact(strings.TrimPrefix(line, "?-"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if isGoal {
			goal = &f
			continue
		}
		e.AddFact(f.Relation, f.Subject, f.Object)
	}
	return goal, scanner.Err()
}

// AddFact adds a fact unless it is known.
func (e *Engine) AddFact(relation, subject, object string) {
	if e.facts[relation] == nil {
		e.facts[relation] = make(map[string][]string)
	}
	for _, obj := range e.facts[relation][subject] {
		if obj == object {
			return
		}
	}
	e.facts[relation][subject] = append(e.facts[relation][subject], object)
}

// Query reports whether relation(subject, object) holds.
func (e *Engine) Query(relation, subject, object string) bool {
	for _, obj := range e.QueryAll(relation, subject) {
		if obj == object {
			return true
		}
	}
	return false
}

// QueryAll returns the objects related to subject in discovery order.
func (e *Engine) QueryAll(relation, subject string) []string {
	var out []string
	e.collect(relation, subject, &out, make(map[string]bool), make(map[string]bool))
	return out
}

func (e *Engine) collect(relation, subject string, out *[]string, seen, visited map[string]bool) {
	if visited[subject] {
		return
	}
	visited[subject] = true
	for _, obj := range e.facts[relation][subject] {
		if !seen[obj] {
			seen[obj] = true
			*out = append(*out, obj)
		}
		if e.transitive[relation] {
			e.collect(relation, obj, out, seen, visited)
		}
	}
}

// FindPath returns the chain of facts proving relation(subject, object).
func (e *Engine) FindPath(relation, subject, object string) []Link {
	return e.findPath(relation, subject, object, nil, make(map[string]bool))
}

func (e *Engine) findPath(relation, from, to string, path []Link, visited map[string]bool) []Link {
	if visited[from] {
		return nil
	}
	visited[from] = true
	objs := e.facts[relation][from]
	for _, obj := range objs {
		if obj == to {
			return append(path, Link{Fact: Fact{relation, from, obj}, Depth: len(path)})
		}
	}
	if !e.transitive[relation] {
		return nil
	}
	for _, obj := range objs {
		next := append(append([]Link(nil), path...), Link{Fact: Fact{relation, from, obj}, Depth: len(path)})
		if found := e.findPath(relation, obj, to, next, visited); found != nil {
			return found
		}
	}
	return nil
}

// Solve enumerates the bindings satisfying the goal.
func (e *Engine) Solve(goal Fact) []*thought.Row {
	subjVar, objVar := isVariable(goal.Subject), isVariable(goal.Object)
	switch {
	case !subjVar && !objVar:
		path := e.FindPath(goal.Relation, goal.Subject, goal.Object)
		if path == nil {
			return nil
		}
		chain := make([]string, len(path))
		for i, l := range path {
			chain[i] = l.String()
		}
		return []*thought.Row{thought.NewRow(Result, "true", "path", strings.Join(chain, ", "))}
	case !subjVar:
		var rows []*thought.Row
		for _, obj := range e.QueryAll(goal.Relation, goal.Subject) {
			rows = append(rows, thought.NewRow(goal.Object, obj))
		}
		return rows
	default:
		var rows []*thought.Row
		for _, subj := range e.subjects(goal.Relation) {
			for _, obj := range e.QueryAll(goal.Relation, subj) {
				if objVar {
					if goal.Subject == goal.Object && subj != obj {
						continue
					}
					row := thought.NewRow(goal.Subject, subj)
					row.Set(goal.Object, obj)
					rows = append(rows, row)
				} else if obj == goal.Object {
					rows = append(rows, thought.NewRow(goal.Subject, subj))
				}
			}
		}
		return rows
	}
}

func (e *Engine) subjects(relation string) []string {
	subs := make([]string, 0, len(e.facts[relation]))
	for s := range e.facts[relation] {
		subs = append(subs, s)
	}
	sort.Strings(subs)
	return subs
}

func isVariable(arg string) bool {
	for _, r := range arg {
		return unicode.IsUpper(r) || r == '_'
	}
	return false
}

// parseFact parses "relation(subject, object)" with an optional final dot.
func parseFact(line string) (Fact, error) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	open := strings.Index(line, "(")
	if open == -1 {
		return Fact{}, fmt.Errorf("missing '(': %s: %w", line, internalerr.ErrInvalidInput)
	}
	closing := strings.LastIndex(line, ")")
	if closing < open {
		return Fact{}, fmt.Errorf("missing ')': %s: %w", line, internalerr.ErrInvalidInput)
	}
	parts := strings.Split(line[open+1:closing], ",")
	if len(parts) != 2 {
		return Fact{}, fmt.Errorf("expected 2 arguments, got %d: %s: %w", len(parts), line, internalerr.ErrInvalidInput)
	}
	return Fact{
		Relation: strings.TrimSpace(line[:open]),
		Subject:  strings.TrimSpace(parts[0]),
		Object:   strings.TrimSpace(parts[1]),
	}, nil
}

// Register installs the engine as the handler of every logic step. Each
// step loads its program into a fresh engine.
func Register(d *inference.Dispatcher, transitive []string) {
	d.Procedures(inference.Logic).MustAdd(`(?s)(.+)`, func(_ context.Context, _ *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		e := New(transitive)
		goal, err := e.Load(m.Group(1))
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, internalerr.ErrReaction)
		}
		if goal == nil {
			return thought.FromRows(thought.NewRow(Result, "")), nil
		}
		return thought.FromRows(e.Solve(*goal)...), nil
	})
}
