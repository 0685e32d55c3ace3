package memory

import (
	"sync"
	"time"
)

// Awareness is an ordered memory of cognitions, newest first. Readers get
// snapshots, so an eviction never shows a torn state.
type Awareness struct {
	mu    sync.RWMutex
	items []*Cognition // oldest first
}

// NewAwareness creates an awareness holding cognitions given newest first.
func NewAwareness(newestFirst ...*Cognition) *Awareness {
	a := &Awareness{items: make([]*Cognition, 0, len(newestFirst))}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		if newestFirst[i] != nil {
			a.items = append(a.items, newestFirst[i])
		}
	}
	return a
}

// Learn puts a cognition at the head.
func (a *Awareness) Learn(c *Cognition) *Awareness {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, c)
	return a
}

// Limit evicts from the tail until at most attention cognitions remain
// and returns the evicted ones, oldest first.
func (a *Awareness) Limit(attention int) []*Cognition {
	if attention < 0 {
		attention = 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.items) - attention
	if n <= 0 {
		return nil
	}
	evicted := append([]*Cognition(nil), a.items[:n]...)
	a.items = append([]*Cognition(nil), a.items[n:]...)
	return evicted
}

// Len is the number of cognitions held, the time span of the awareness.
func (a *Awareness) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Recall returns the cognitions newest first.
func (a *Awareness) Recall() []*Cognition {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Cognition, len(a.items))
	for i, c := range a.items {
		out[len(a.items)-1-i] = c
	}
	return out
}

// Latest returns the newest cognition, or nil.
func (a *Awareness) Latest() *Cognition {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.items) == 0 {
		return nil
	}
	return a.items[len(a.items)-1]
}

// LatestQueryDate is the query date of the newest cognition.
func (a *Awareness) LatestQueryDate() time.Time {
	if c := a.Latest(); c != nil {
		return c.QueryDate
	}
	return time.Time{}
}
