package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/susimind/pkg/susimind/ingest"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/store"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

const (
	DefaultAttention         = 5
	DefaultLongTermAttention = 1000
	DefaultCacheSize         = 1024
)

// DefaultFailTerms are answers that mean nothing was understood.
var DefaultFailTerms = []string{
	"I don't know how to answer this. Here is a web search result:",
	"You can ask me anything, but not that :)",
	"Oh sorry, I don't understand what you say. Please ask something else!",
	"Das weiss ich leider nicht.",
	"I don't know.",
}

// keepUnanswered are removal patterns too generic to clear unanswered
// queries with.
var keepUnanswered = map[string]bool{
	"was ?(.*)":         true,
	".+ (?:.+ )+(.+)":   true,
	"(.*)":              true,
	"(.*) ?sorry ?(.*)": true,
	"(.*) ?you ?(.*)":   true,
	"what ?(.*)":        true,
	"you ?(.*)":         true,
}

// patternSource strips the flags and anchors a compiled rule pattern
// carries so it compares with keepUnanswered.
func patternSource(re *regexp.Regexp) string {
	s := re.String()
	for _, p := range []string{"(?i)", "(?s)", "(?is)", "(?si)", "^"} {
		s = strings.TrimPrefix(s, p)
	}
	return strings.TrimSuffix(s, "$")
}

// Options configures a Memory.
type Options struct {
	Logger *zap.Logger
	Store  store.LogStore
	// Attention bounds the short term memory of each client.
	Attention int
	// LongTermAttention bounds the long term memory of each client.
	LongTermAttention int
	// CacheSize is the number of identities kept resident.
	CacheSize int
	// FailTerms are answers counted as unanswered; nil means
	// DefaultFailTerms.
	FailTerms []string
}

// Memory holds the identities of all clients. Identities are cached and
// rehydrated from the log store on a miss.
type Memory struct {
	store         store.LogStore
	log           *zap.Logger
	attention     int
	longAttention int
	identities    *lru.Cache[string, *Identity]
	fail          map[string]bool

	mu         sync.Mutex
	unanswered map[string]int
}

// New creates a memory on top of a log store.
func New(opts Options) (*Memory, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: memory needs a log store", internalerr.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Attention <= 0 {
		opts.Attention = DefaultAttention
	}
	if opts.LongTermAttention <= 0 {
		opts.LongTermAttention = DefaultLongTermAttention
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.FailTerms == nil {
		opts.FailTerms = DefaultFailTerms
	}
	cache, err := lru.New[string, *Identity](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	fail := make(map[string]bool, len(opts.FailTerms))
	for _, t := range opts.FailTerms {
		fail[t] = true
	}
	return &Memory{
		store:         opts.Store,
		log:           opts.Logger,
		attention:     opts.Attention,
		longAttention: opts.LongTermAttention,
		identities:    cache,
		fail:          fail,
		unanswered:    make(map[string]int),
	}, nil
}

// Close closes the log store.
func (m *Memory) Close() error { return m.store.Close() }

// Store returns the log store.
func (m *Memory) Store() store.LogStore { return m.store }

// Attention is the short term bound of every identity.
func (m *Memory) Attention() int { return m.attention }

// Identity returns the identity of client, rehydrating it when it is not
// resident.
func (m *Memory) Identity(ctx context.Context, client string) (*Identity, error) {
	if id, ok := m.identities.Get(client); ok {
		return id, nil
	}
	id, err := loadIdentity(ctx, client, m.attention, m.longAttention, m.store, m.log)
	if err != nil {
		return nil, err
	}
	if prev, ok, _ := m.identities.PeekOrAdd(client, id); ok {
		return prev, nil
	}
	return id, nil
}

// Cognitions returns the cognitions of client, short term first.
func (m *Memory) Cognitions(ctx context.Context, client string) ([]*Cognition, error) {
	id, err := m.Identity(ctx, client)
	if err != nil {
		return nil, err
	}
	return id.Cognitions(), nil
}

// Recall returns the disputes of the newest cognitions of client, at most
// attention of them, newest first.
func (m *Memory) Recall(ctx context.Context, client string) ([]*thought.Thought, error) {
	cognitions, err := m.Cognitions(ctx, client)
	if err != nil {
		return nil, err
	}
	if len(cognitions) > m.attention {
		cognitions = cognitions[:m.attention]
	}
	out := make([]*thought.Thought, 0, len(cognitions))
	for _, c := range cognitions {
		out = append(out, c.RecallDispute())
	}
	return out, nil
}

// Add stores a cognition for its client.
func (m *Memory) Add(ctx context.Context, c *Cognition) error {
	id, err := m.Identity(ctx, c.ClientID)
	if err != nil {
		return err
	}
	if err := id.Add(ctx, c); err != nil {
		return err
	}
	m.track(c)
	return nil
}

// IsUnanswered reports a cognition that got no answer or a fail term.
func (m *Memory) IsUnanswered(c *Cognition) bool {
	expr := c.Expression()
	return expr == "" || m.fail[expr]
}

func (m *Memory) track(c *Cognition) {
	q := strings.ToLower(strings.TrimSpace(c.Query))
	if q == "" || !m.IsUnanswered(c) {
		return
	}
	m.mu.Lock()
	m.unanswered[q]++
	m.mu.Unlock()
}

// ScanUnanswered counts the unanswered queries of all logs.
func (m *Memory) ScanUnanswered(ctx context.Context) error {
	clients, err := m.store.Clients(ctx)
	if err != nil {
		return err
	}
	for _, client := range clients {
		records, err := m.store.Tail(ctx, client, 0)
		if err != nil {
			m.log.Warn("skipping unreadable log", zap.String("client", client), zap.Error(err))
			continue
		}
		for _, rec := range records {
			if c, err := Decode(rec); err == nil {
				m.track(c)
			}
		}
	}
	return nil
}

// Unanswered returns the unanswered queries with their counts.
func (m *Memory) Unanswered() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.unanswered))
	for k, v := range m.unanswered {
		out[k] = v
	}
	return out
}

// RemoveUnanswered forgets one unanswered query.
func (m *Memory) RemoveUnanswered(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.unanswered[q]
	delete(m.unanswered, q)
	return ok
}

// RemoveUnansweredMatching forgets the unanswered queries a new rule
// pattern now covers. Patterns that match nearly anything are ignored.
func (m *Memory) RemoveUnansweredMatching(re *regexp.Regexp) int {
	if re == nil || keepUnanswered[patternSource(re)] {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if src := patternSource(re); m.unanswered[src] > 0 {
		delete(m.unanswered, src)
		return 1
	}
	removed := 0
	for q := range m.unanswered {
		if loc := re.FindStringIndex(q); loc != nil && loc[0] == 0 && loc[1] == len(q) {
			delete(m.unanswered, q)
			removed++
		}
	}
	return removed
}

// TokenStat groups unanswered queries by a token they share.
type TokenStat struct {
	Token   string
	Count   int
	Queries map[string]int
}

// UnansweredTokens clusters the unanswered queries by their tokens, most
// frequent first.
func (m *Memory) UnansweredTokens(p *ingest.Pipeline) []TokenStat {
	byToken := make(map[string]*TokenStat)
	for q, n := range m.Unanswered() {
		for _, tok := range p.Process(q).Tokens {
			if len(tok.Original) < 2 {
				continue
			}
			st, ok := byToken[tok.Original]
			if !ok {
				st = &TokenStat{Token: tok.Original, Queries: make(map[string]int)}
				byToken[tok.Original] = st
			}
			if _, seen := st.Queries[q]; !seen {
				st.Queries[q] = n
				st.Count += n
			}
		}
	}
	out := make([]TokenStat, 0, len(byToken))
	for _, st := range byToken {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// ClientMemory is the complete log of one client.
type ClientMemory struct {
	Client    string
	Awareness *Awareness
}

// AllMemories reads the complete log of every client, each independently,
// and orders them by their latest query, newest first. Clients without
// cognitions are left out.
func (m *Memory) AllMemories(ctx context.Context) ([]ClientMemory, error) {
	clients, err := m.store.Clients(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]ClientMemory, len(clients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, client := range clients {
		g.Go(func() error {
			records, err := m.store.Tail(gctx, client, 0)
			if err != nil {
				m.log.Warn("skipping unreadable log", zap.String("client", client), zap.Error(err))
				return nil
			}
			var cognitions []*Cognition
			for _, rec := range records {
				if c, err := Decode(rec); err == nil {
					cognitions = append(cognitions, c)
				}
			}
			results[i] = ClientMemory{Client: client, Awareness: NewAwareness(cognitions...)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := results[:0]
	for _, r := range results {
		if r.Awareness != nil && r.Awareness.Len() > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Awareness.LatestQueryDate().After(out[j].Awareness.LatestQueryDate())
	})
	return out, nil
}
