// Package memory remembers the conversations: one awareness of past
// cognitions per client, mirrored to a durable log.
package memory

import (
	"crypto/rand"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/susimind/pkg/susimind/action"
	"github.com/cognicore/susimind/pkg/susimind/language"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Cognition is one completed turn: a query and the answers given to it.
type Cognition struct {
	ID            string             `json:"id"`
	Query         string             `json:"query"`
	Answers       []*thought.Thought `json:"answers,omitempty"`
	QueryDate     time.Time          `json:"query_date"`
	AnswerDate    time.Time          `json:"answer_date"`
	AnswerTime    int64              `json:"answer_time"` // milliseconds
	QueryLanguage string             `json:"query_language,omitempty"`
	ClientID      string             `json:"client_id"`
}

// NewCognition records a turn. Answers may be empty when nothing answered.
func NewCognition(client, query string, lang language.Language, queried, answered time.Time, answers ...*thought.Thought) *Cognition {
	var kept []*thought.Thought
	for _, a := range answers {
		if a != nil {
			kept = append(kept, a)
		}
	}
	return &Cognition{
		ID:            newID(queried),
		Query:         query,
		Answers:       kept,
		QueryDate:     queried.UTC(),
		AnswerDate:    answered.UTC(),
		AnswerTime:    answered.Sub(queried).Milliseconds(),
		QueryLanguage: string(lang),
		ClientID:      client,
	}
}

// Decode reads a cognition from its log record.
func Decode(record []byte) (*Cognition, error) {
	c := &Cognition{}
	if err := json.Unmarshal(record, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode writes the log record of the cognition.
func (c *Cognition) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// Expression returns the text given as answer: the expression of the first
// answer action, or its first phrase.
func (c *Cognition) Expression() string {
	if a := firstSpoken(c.Answers); a != nil {
		return spoken(a)
	}
	return ""
}

func firstSpoken(answers []*thought.Thought) *action.Action {
	if len(answers) == 0 {
		return nil
	}
	for _, a := range answers[0].Actions() {
		if spoken(a) != "" {
			return a
		}
	}
	return nil
}

func spoken(a *action.Action) string {
	if a.Expression != "" {
		return a.Expression
	}
	if len(a.Phrases) > 0 {
		return a.Phrases[0]
	}
	return ""
}

// RecallDispute rebuilds what the turn left behind as one thought: the
// query, the answer, the skill that gave it and the persistent variables,
// those whose names start with an underscore.
func (c *Cognition) RecallDispute() *thought.Thought {
	dispute := thought.New()
	for i := len(c.Answers) - 1; i >= 0; i-- {
		answer := c.Answers[i]
		if answer == nil {
			continue
		}
		dispute.AddObservation("query", c.Query)
		for _, a := range answer.Actions() {
			if s := spoken(a); s != "" {
				dispute.AddObservation("answer", s)
				break
			}
		}
		if skills := answer.Skills(); len(skills) > 0 {
			dispute.AddObservation("skill_source", skills[0])
			dispute.AddObservation("skill_link", skills[0])
		}
		if rows := answer.Rows(); len(rows) > 0 {
			for _, key := range rows[0].Keys() {
				if strings.HasPrefix(key, "_") {
					dispute.AddObservation(key, rows[0].String(key))
				}
			}
		}
	}
	return dispute
}
