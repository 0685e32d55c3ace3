// Package stoplist manages filler words that tokenization skips entirely.
package stoplist

import (
	"sort"
	"strings"
)

// Manager holds the filler words of one language. Build it once and share it
// read-only; Add and Remove are not safe for concurrent use with IsStop.
type Manager struct {
	stops map[string]Reason
}

// Reason records where a filler word came from.
type Reason struct {
	Source string  // "default", "lexicon" or "suggested"
	Share  float64 // share of unanswered queries containing the token, when suggested
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]Reason, len(initialStops))
	for _, s := range initialStops {
		stops[strings.ToLower(s)] = Reason{Source: "default"}
	}
	return &Manager{stops: stops}
}

// IsStop checks if a token is a filler word
func (m *Manager) IsStop(token string) bool {
	if m == nil {
		return false
	}
	_, ok := m.stops[strings.ToLower(token)]
	return ok
}

// Add adds a token with a reason
func (m *Manager) Add(token string, reason Reason) {
	m.stops[strings.ToLower(token)] = reason
}

// Remove removes a token
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(token))
}

// Reason returns why token is a filler.
func (m *Manager) Reason(token string) (Reason, bool) {
	r, ok := m.stops[strings.ToLower(token)]
	return r, ok
}

// All returns all filler words, sorted.
func (m *Manager) All() []string {
	if m == nil {
		return nil
	}
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of filler words.
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.stops)
}

// Stats describes how a token behaves across unanswered queries.
type Stats struct {
	Token string
	Count int     // unanswered queries containing the token
	Share float64 // Count divided by all unanswered queries, in percent
	Known bool    // token is a trigger key of some intent
}

// Candidate is a token suggested as a filler word.
type Candidate struct {
	Token  string
	Reason Reason
	Score  float64
}

// Thresholds defines when an unanswered-query token looks like filler.
type Thresholds struct {
	SharePercent float64 // e.g. 30: appears in 30% of unanswered queries
	MinCount     int     // ignore rare tokens
}

// DefaultThresholds returns sensible default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{SharePercent: 30, MinCount: 3}
}

// SuggestCandidates suggests tokens that keep showing up in unanswered
// queries without being a trigger key of any intent. Such tokens never help
// to find an idea and only dilute token lookup. Sorted by score, descending.
func (m *Manager) SuggestCandidates(stats []Stats, thresholds Thresholds) []Candidate {
	if thresholds.SharePercent == 0 {
		thresholds.SharePercent = DefaultThresholds().SharePercent
	}
	var candidates []Candidate
	for _, s := range stats {
		if m.IsStop(s.Token) || s.Known || len(s.Token) <= 1 {
			continue
		}
		if s.Count < thresholds.MinCount || s.Share < thresholds.SharePercent {
			continue
		}
		candidates = append(candidates, Candidate{
			Token:  s.Token,
			Reason: Reason{Source: "suggested", Share: s.Share},
			Score:  s.Share / 100.0,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Token < candidates[j].Token
	})
	return candidates
}

// Defaults returns the built-in filler words for a language code.
func Defaults(lang string) []string {
	switch lang {
	case "de":
		return []string{"bitte", "mal", "denn", "doch", "eigentlich"}
	case "en", "":
		return []string{"please", "um", "uh", "hmm", "well", "kindly"}
	}
	return nil
}
