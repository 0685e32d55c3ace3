package pattern

import (
	"context"
	"regexp"
	"sync/atomic"
	"time"
)

// DefaultMatchTimeout bounds a single match.
const DefaultMatchTimeout = 300 * time.Millisecond

var (
	matchTimeout atomic.Int64
	timeouts     atomic.Int64
)

func init() {
	matchTimeout.Store(int64(DefaultMatchTimeout))
}

// SetMatchTimeout changes the match guard for all subsequent matches.
// Non-positive values restore the default.
func SetMatchTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultMatchTimeout
	}
	matchTimeout.Store(int64(d))
}

// MatchTimeout returns the current match guard.
func MatchTimeout() time.Duration { return time.Duration(matchTimeout.Load()) }

// Timeouts returns how many matches were abandoned by the guard since start.
func Timeouts() int64 { return timeouts.Load() }

// Matcher holds the capture groups of a successful match.
type Matcher struct {
	groups []string
}

// NewMatcher wraps precomputed groups; groups[0] is the whole match.
func NewMatcher(groups ...string) *Matcher {
	return &Matcher{groups: groups}
}

// Group returns capture group i, or "" when it does not exist.
func (m *Matcher) Group(i int) string {
	if m == nil || i < 0 || i >= len(m.groups) {
		return ""
	}
	return m.groups[i]
}

// GroupCount is the number of capture groups, not counting group 0.
func (m *Matcher) GroupCount() int {
	if m == nil || len(m.groups) == 0 {
		return 0
	}
	return len(m.groups) - 1
}

// Groups returns a copy of all groups including group 0.
func (m *Matcher) Groups() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.groups))
	copy(out, m.groups)
	return out
}

// MatchFull reports whether re matches the whole of text. re must be anchored
// by the caller or Compile; MatchFull checks the match spans text. The match
// runs on its own goroutine and is abandoned when the guard or ctx fires.
func MatchFull(ctx context.Context, re *regexp.Regexp, text string) (*Matcher, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, false
	}
	result := make(chan []int, 1)
	go func() {
		result <- re.FindStringSubmatchIndex(text)
	}()

	timer := time.NewTimer(MatchTimeout())
	defer timer.Stop()

	var loc []int
	select {
	case loc = <-result:
	case <-timer.C:
		timeouts.Add(1)
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
	if loc == nil || loc[0] != 0 || loc[1] != len(text) {
		return nil, false
	}
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if s, e := loc[2*i], loc[2*i+1]; s >= 0 {
			groups[i] = text[s:e]
		}
	}
	return &Matcher{groups: groups}, true
}

// CompileFull compiles expr anchored to the whole input.
func CompileFull(expr string) (*regexp.Regexp, error) {
	return compileAnchored(expr, false)
}
