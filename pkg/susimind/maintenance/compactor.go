// Package maintenance keeps the conversation logs and the rule base in
// shape between sessions.
package maintenance

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cognicore/susimind/pkg/susimind/memory"
	"github.com/cognicore/susimind/pkg/susimind/store"
)

// Compactor rewrites client logs so they hold at most Retention decodable
// cognitions.
type Compactor struct {
	Store     store.LogStore
	Retention int
	Logger    *zap.Logger
}

// Result summarizes a compaction run.
type Result struct {
	Processed int
	Rewritten int
	Dropped   int
	Errors    int
}

// Compact walks every client log. Undecodable records are dropped with the
// oldest records beyond the retention bound.
func (c *Compactor) Compact(ctx context.Context) (Result, error) {
	var res Result
	if c.Store == nil || c.Retention <= 0 {
		return res, errors.New("compactor: invalid configuration")
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	clients, err := c.Store.Clients(ctx)
	if err != nil {
		return res, err
	}
	for _, client := range clients {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++

		records, err := c.Store.Tail(ctx, client, 0)
		if err != nil {
			log.Warn("cannot read log", zap.String("client", client), zap.Error(err))
			res.Errors++
			continue
		}
		kept := make([][]byte, 0, len(records))
		for _, rec := range records {
			if len(kept) == c.Retention {
				break
			}
			if _, err := memory.Decode(rec); err != nil {
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == len(records) {
			continue
		}

		// Tail is newest first, Rewrite takes oldest first
		for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
			kept[i], kept[j] = kept[j], kept[i]
		}
		if err := c.Store.Rewrite(ctx, client, kept); err != nil {
			log.Warn("cannot rewrite log", zap.String("client", client), zap.Error(err))
			res.Errors++
			continue
		}
		res.Rewritten++
		res.Dropped += len(records) - len(kept)
		log.Info("compacted log",
			zap.String("client", client),
			zap.Int("kept", len(kept)),
			zap.Int("dropped", len(records)-len(kept)))
	}
	return res, nil
}
