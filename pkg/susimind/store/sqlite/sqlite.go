package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/store"
)

// sqliteStore implements store.LogStore using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.LogStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	// a single connection serializes writers and keeps the pragmas in effect
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS cognitions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	client TEXT NOT NULL,
	record TEXT NOT NULL,
	stored_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cognitions_client ON cognitions(client, seq);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Append inserts one record
func (s *sqliteStore) Append(ctx context.Context, client string, record []byte) error {
	if !json.Valid(record) {
		return fmt.Errorf("%w: record is not JSON", internalerr.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cognitions (client, record, stored_at) VALUES (?, ?, ?)`,
		client, string(record), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Tail returns the newest records of a client first
func (s *sqliteStore) Tail(ctx context.Context, client string, n int) ([][]byte, error) {
	limit := n
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM cognitions WHERE client = ? ORDER BY seq DESC LIMIT ?`,
		client, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var rec string
		if err := rows.Scan(&rec); err != nil {
			return nil, err
		}
		out = append(out, []byte(rec))
	}
	return out, rows.Err()
}

// Clients lists the clients with at least one record
func (s *sqliteStore) Clients(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT client FROM cognitions ORDER BY client`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Rewrite replaces the records of a client in one transaction
func (s *sqliteStore) Rewrite(ctx context.Context, client string, records [][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cognitions WHERE client = ?`, client); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cognitions (client, record, stored_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range records {
		if !json.Valid(r) {
			return fmt.Errorf("%w: record is not JSON", internalerr.ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx, client, string(r), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
