// Package thought holds the tabular unit of knowledge that reasoning steps
// produce and consume.
package thought

import (
	"encoding/json"
	"strconv"

	"github.com/cognicore/susimind/pkg/susimind/action"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
)

// Thought is a table of observations plus metadata, actions and the skills
// that contributed to it. Earlier rows hide later rows holding the same key,
// so newer observations are inserted in front of older ones.
type Thought struct {
	rows    []*Row
	offset  int
	hits    int
	process string
	query   string
	times   int
	actions []*action.Action
	skills  []string
}

// New creates an empty, failed thought.
func New() *Thought { return &Thought{} }

// FromRows creates a thought holding the given rows.
func FromRows(rows ...*Row) *Thought {
	t := &Thought{}
	t.SetData(rows)
	return t
}

// FromMatcher creates the keynote of a match: one row with the capture groups
// under the keys "0", "1", ...
func FromMatcher(m *pattern.Matcher) *Thought {
	row := NewRow("0", m.Group(0))
	for i := 1; i <= m.GroupCount(); i++ {
		row.Set(strconv.Itoa(i), m.Group(i))
	}
	t := FromRows(row)
	t.hits = 1
	return t
}

// Rows returns the rows. The slice must not be modified.
func (t *Thought) Rows() []*Row { return t.rows }

// SetData replaces the rows.
func (t *Thought) SetData(rows []*Row) *Thought {
	t.rows = rows
	return t
}

// Count is the number of rows.
func (t *Thought) Count() int { return len(t.rows) }

func (t *Thought) Offset() int { return t.offset }
func (t *Thought) Hits() int { return t.hits }
func (t *Thought) Process() string { return t.process }
func (t *Thought) Query() string { return t.query }
func (t *Thought) Times() int { return t.times }
func (t *Thought) SetOffset(n int) *Thought {
	t.offset = n
	return t
}
func (t *Thought) SetHits(n int) *Thought {
	t.hits = n
	return t
}
func (t *Thought) SetTimes(n int) *Thought {
	t.times = n
	return t
}

// SetProcess records the name of the procedure that produced the thought.
func (t *Thought) SetProcess(name string) *Thought {
	t.process = name
	return t
}

// SetQuery records the query that produced the thought.
func (t *Thought) SetQuery(q string) *Thought {
	t.query = q
	return t
}

// IsFailed reports a thought without data and without actions.
func (t *Thought) IsFailed() bool {
	return t == nil || (len(t.rows) == 0 && len(t.actions) == 0)
}

// Equal compares row data only.
func (t *Thought) Equal(o *Thought) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.rows {
		if !t.rows[i].Same(o.rows[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies rows and actions.
func (t *Thought) Clone() *Thought {
	c := *t
	c.rows = make([]*Row, len(t.rows))
	for i, r := range t.rows {
		c.rows[i] = r.Clone()
	}
	c.actions = make([]*action.Action, len(t.actions))
	for i, a := range t.actions {
		c.actions[i] = a.Clone()
	}
	c.skills = append([]string(nil), t.skills...)
	return &c
}

// Assertz appends a table to this thought. Incoming rows merge into existing
// rows that share no key with them; a row sharing keys is skipped so the
// older value stays behind the newer one. Rows appended during the call are
// never merged into, which keeps asserting into an empty thought an identity.
// An incoming row identical to an existing one ends the assertion.
func (t *Thought) Assertz(table []*Row) *Thought {
	base := len(t.rows)
	c := 0
	for _, in := range table {
		for c < base {
			if in.Same(t.rows[c]) {
				return t
			}
			if !in.SharesKey(t.rows[c]) {
				break
			}
			c++
		}
		if c >= base {
			t.rows = append(t.rows, in.Clone())
			continue
		}
		t.rows[c].PutAll(in)
	}
	return t
}

// AddObservation stores a value so it is found before any older value of
// the same key.
func (t *Thought) AddObservation(key, value string) *Thought {
	for i, row := range t.rows {
		if !row.Has(key) {
			continue
		}
		if i == 0 {
			t.rows = append([]*Row{NewRow(key, value)}, t.rows...)
		} else {
			t.rows[i-1].Set(key, value)
		}
		return t
	}
	if len(t.rows) == 0 {
		t.rows = append(t.rows, NewRow(key, value))
	} else {
		t.rows[0].Set(key, value)
	}
	return t
}

// Observation returns the first value of key.
func (t *Thought) Observation(key string) (string, bool) {
	for _, row := range t.rows {
		if v, ok := row.Get(key); ok {
			return ValueString(v), true
		}
	}
	return "", false
}

// Observations returns all values of key, newest first.
func (t *Thought) Observations(key string) []string {
	var out []string
	for _, row := range t.rows {
		if v, ok := row.Get(key); ok {
			out = append(out, ValueString(v))
		}
	}
	return out
}

// HasEmptyObservation reports a key that is missing or empty.
func (t *Thought) HasEmptyObservation(key string) bool {
	v, ok := t.Observation(key)
	return !ok || v == ""
}

// Actions returns the actions attached to this thought.
func (t *Thought) Actions() []*action.Action { return t.actions }

// AddAction attaches a copy of a.
func (t *Thought) AddAction(a *action.Action) *Thought {
	t.actions = append(t.actions, a.Clone())
	return t
}

// AddActions attaches copies of all actions.
func (t *Thought) AddActions(as []*action.Action) *Thought {
	for _, a := range as {
		t.AddAction(a)
	}
	return t
}

// SetActions replaces the actions without copying.
func (t *Thought) SetActions(as []*action.Action) *Thought {
	t.actions = as
	return t
}

// RemoveActions drops all actions.
func (t *Thought) RemoveActions() *Thought {
	t.actions = nil
	return t
}

// Skills returns the provenance of the thought.
func (t *Thought) Skills() []string { return t.skills }

// AddSkill records a contributing skill origin.
func (t *Thought) AddSkill(origin string) *Thought {
	t.skills = append(t.skills, origin)
	return t
}

// Expressions returns the expressions of all answer actions.
func (t *Thought) Expressions() []string {
	var out []string
	for _, a := range t.actions {
		if a.Type == action.Answer && a.Expression != "" {
			out = append(out, a.Expression)
		}
	}
	return out
}

type metadata struct {
	Offset  int    `json:"offset"`
	Hits    int    `json:"hits"`
	Count   int    `json:"count"`
	Process string `json:"process,omitempty"`
	Query   string `json:"query,omitempty"`
}

type wire struct {
	Metadata metadata         `json:"metadata"`
	Data     []*Row           `json:"data"`
	Actions  []*action.Action `json:"actions,omitempty"`
	Skills   []string         `json:"skills,omitempty"`
}

// MarshalJSON writes {"metadata", "data", "actions", "skills"}.
func (t *Thought) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = []*Row{}
	}
	return json.Marshal(wire{
		Metadata: metadata{Offset: t.offset, Hits: t.hits, Count: len(t.rows), Process: t.process, Query: t.query},
		Data:     rows,
		Actions:  t.actions,
		Skills:   t.skills,
	})
}

// UnmarshalJSON reads the format written by MarshalJSON.
func (t *Thought) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Thought{
		rows:    w.Data,
		offset:  w.Metadata.Offset,
		hits:    w.Metadata.Hits,
		process: w.Metadata.Process,
		query:   w.Metadata.Query,
		actions: w.Actions,
		skills:  w.Skills,
	}
	return nil
}

// String renders the thought as JSON for logs.
func (t *Thought) String() string {
	b, err := t.MarshalJSON()
	if err != nil {
		return err.Error()
	}
	return string(b)
}
