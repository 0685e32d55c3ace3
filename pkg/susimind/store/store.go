// Package store persists the awareness log of every conversation.
package store

import (
	"context"
)

// LogStore is an append-only log of cognition records per client. A record
// is one JSON document; stores never interpret it beyond validating it.
type LogStore interface {
	Close() error

	// Append adds one record as a single atomic write.
	Append(ctx context.Context, client string, record []byte) error

	// Tail returns up to n records of client, newest first. n <= 0 returns
	// all of them. An unknown client has no records.
	Tail(ctx context.Context, client string, n int) ([][]byte, error)

	// Clients lists every client with a log, sorted.
	Clients(ctx context.Context) ([]string, error)

	// Rewrite replaces the log of client with records, oldest first.
	Rewrite(ctx context.Context, client string, records [][]byte) error
}
