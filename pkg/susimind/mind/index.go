package mind

import (
	"sort"

	"github.com/cognicore/susimind/pkg/susimind/intent"
)

// Index maps trigger keys to intents. It is never modified after NewIndex;
// a reload builds a new index and swaps it in whole.
type Index struct {
	byKey    map[string][]*intent.Intent
	catchAll []*intent.Intent
	all      []*intent.Intent
}

// NewIndex indexes intents under their keys. An intent whose identity was
// already indexed is skipped.
func NewIndex(intents []*intent.Intent) *Index {
	x := &Index{byKey: make(map[string][]*intent.Intent)}
	seen := make(map[uint64]bool, len(intents))
	for _, in := range intents {
		if in == nil || seen[in.ID()] {
			continue
		}
		seen[in.ID()] = true
		x.all = append(x.all, in)
		if in.IsCatchAll() {
			x.catchAll = append(x.catchAll, in)
			continue
		}
		for _, k := range in.Keys() {
			x.byKey[k] = append(x.byKey[k], in)
		}
	}
	return x
}

// With returns a new index holding the intents of x followed by more.
func (x *Index) With(more ...*intent.Intent) *Index {
	all := make([]*intent.Intent, 0, x.Len()+len(more))
	all = append(all, x.Intents()...)
	return NewIndex(append(all, more...))
}

// Without returns a new index lacking every intent of the given origin.
func (x *Index) Without(origin string) *Index {
	return x.Filter(func(in *intent.Intent) bool { return in.Origin() != origin })
}

// Filter returns a new index holding the intents of x that keep accepts.
func (x *Index) Filter(keep func(*intent.Intent) bool) *Index {
	var out []*intent.Intent
	for _, in := range x.Intents() {
		if keep(in) {
			out = append(out, in)
		}
	}
	return NewIndex(out)
}

// Lookup returns the intents triggered by key.
func (x *Index) Lookup(key string) []*intent.Intent {
	if x == nil {
		return nil
	}
	return x.byKey[key]
}

// CatchAll returns the intents tried for every input.
func (x *Index) CatchAll() []*intent.Intent {
	if x == nil {
		return nil
	}
	return x.catchAll
}

// Intents returns all intents in load order.
func (x *Index) Intents() []*intent.Intent {
	if x == nil {
		return nil
	}
	return x.all
}

// Len is the number of indexed intents.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.all)
}

// Keys returns the trigger keys, sorted.
func (x *Index) Keys() []string {
	if x == nil {
		return nil
	}
	keys := make([]string, 0, len(x.byKey))
	for k := range x.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Origins returns the distinct origins, sorted.
func (x *Index) Origins() []string {
	seen := make(map[string]bool)
	var out []string
	for _, in := range x.Intents() {
		if !seen[in.Origin()] {
			seen[in.Origin()] = true
			out = append(out, in.Origin())
		}
	}
	sort.Strings(out)
	return out
}
