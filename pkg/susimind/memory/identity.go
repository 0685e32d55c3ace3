package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cognicore/susimind/pkg/susimind/store"
)

// Identity is the memory of one client. New cognitions enter the short term
// memory; what it cannot hold moves to the long term memory. Every
// cognition is appended to the client's log before it is learned.
type Identity struct {
	client        string
	attention     int
	longAttention int
	log           store.LogStore

	mu    sync.Mutex // serializes Add
	short *Awareness
	long  *Awareness
}

// loadIdentity rehydrates a client from its log: up to attention of the
// newest cognitions are read into the long term memory.
func loadIdentity(ctx context.Context, client string, attention, longAttention int, log store.LogStore, logger *zap.Logger) (*Identity, error) {
	id := &Identity{
		client:        client,
		attention:     attention,
		longAttention: longAttention,
		log:           log,
		short:         NewAwareness(),
		long:          NewAwareness(),
	}
	records, err := log.Tail(ctx, client, attention)
	if err != nil {
		return nil, fmt.Errorf("rehydrate %s: %w", client, err)
	}
	var cognitions []*Cognition
	for _, rec := range records {
		c, err := Decode(rec)
		if err != nil {
			logger.Warn("skipping undecodable cognition", zap.String("client", client), zap.Error(err))
			continue
		}
		cognitions = append(cognitions, c)
	}
	id.long = NewAwareness(cognitions...)
	return id, nil
}

// Client returns the client id.
func (id *Identity) Client() string { return id.client }

// Attention is the bound of the short term memory.
func (id *Identity) Attention() int { return id.attention }

// Add logs and learns a cognition.
func (id *Identity) Add(ctx context.Context, c *Cognition) error {
	rec, err := c.Encode()
	if err != nil {
		return err
	}
	id.mu.Lock()
	defer id.mu.Unlock()
	if err := id.log.Append(ctx, id.client, rec); err != nil {
		return fmt.Errorf("append %s: %w", id.client, err)
	}
	id.short.Learn(c)
	for _, old := range id.short.Limit(id.attention) {
		id.long.Learn(old)
	}
	if id.longAttention > 0 {
		id.long.Limit(id.longAttention)
	}
	return nil
}

// Cognitions returns the short term memory followed by the long term
// memory, each newest first.
func (id *Identity) Cognitions() []*Cognition {
	return append(id.short.Recall(), id.long.Recall()...)
}

// ShortTerm returns the short term memory.
func (id *Identity) ShortTerm() *Awareness { return id.short }

// LongTerm returns the long term memory.
func (id *Identity) LongTerm() *Awareness { return id.long }
