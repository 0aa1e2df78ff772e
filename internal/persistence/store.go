package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/andt14111999/test-exchange-sub006/internal/cache"
)

// ErrNotFound is returned by Get when no row matches (kind, key).
var ErrNotFound = errors.New("entity not found")

// Store persists entity snapshots in a single Postgres table keyed by
// (kind, key), with the JSON snapshot as the value. Writes are multi-row
// upserts so one flush of a cache is one round trip.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get loads one entity snapshot.
func (s *Store) Get(ctx context.Context, kind, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM exchange_state.entities WHERE kind = $1 AND key = $2`,
		kind, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", kind, key, err)
	}
	return value, nil
}

// PutBatch upserts a batch of snapshots of one kind using a multi-row
// INSERT ... ON CONFLICT DO UPDATE. Later writes of the same key win.
func (s *Store) PutBatch(ctx context.Context, kind string, recs []cache.Record) error {
	if len(recs) == 0 {
		return nil
	}

	query := `INSERT INTO exchange_state.entities (kind, key, value, updated_at) VALUES `

	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*3)
	for i, rec := range recs {
		base := i * 3
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, NOW())", base+1, base+2, base+3))
		args = append(args, kind, rec.Key, rec.Value)
	}

	query += strings.Join(values, ", ")
	query += ` ON CONFLICT (kind, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put batch %s (%d rows): %w", kind, len(recs), err)
	}
	return nil
}

// ScanKind streams every snapshot of one kind to fn, in key order. Used
// for cache hydration at startup.
func (s *Store) ScanKind(ctx context.Context, kind string, fn func(key string, value []byte) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM exchange_state.entities WHERE kind = $1 ORDER BY key`,
		kind,
	)
	if err != nil {
		return fmt.Errorf("scan %s: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan %s row: %w", kind, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountKind returns the number of stored snapshots of one kind.
func (s *Store) CountKind(ctx context.Context, kind string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exchange_state.entities WHERE kind = $1`, kind,
	).Scan(&n)
	return n, err
}
