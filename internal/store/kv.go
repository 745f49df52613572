package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/formsync/internal/port"
)

var _ port.Port = (*Store)(nil)

// Revision is one historical write of a key. WrittenAt is zero for
// revisions written before timestamps were recorded.
type Revision struct {
	Seq       int64     `json:"seq"`
	Key       string    `json:"key"`
	Size      int       `json:"size"`
	WrittenAt time.Time `json:"written_at"`
}

// Put stores value under key and appends it to the revision log. Both
// happen in one transaction.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &port.StorageError{Op: "put", Key: key, Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback()

	seq := s.seq.Next()
	writtenAt := s.clock.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv_revisions (seq, key, value, written_at) VALUES (?, ?, ?, ?)
	`, seq, key, value, writtenAt); err != nil {
		return &port.StorageError{Op: "put", Key: key, Err: fmt.Errorf("append revision: %w", err)}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, seq) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, seq = excluded.seq
	`, key, value, seq); err != nil {
		return &port.StorageError{Op: "put", Key: key, Err: fmt.Errorf("upsert: %w", err)}
	}

	if err := tx.Commit(); err != nil {
		return &port.StorageError{Op: "put", Key: key, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// Get returns the current value of key, or nil if it was never written.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &port.StorageError{Op: "get", Key: key, Err: err}
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// History returns every revision of key in write order. Values are not
// loaded; use At to read one.
func (s *Store) History(ctx context.Context, key string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, key, length(value), written_at
		FROM kv_revisions
		WHERE key = ?
		ORDER BY seq ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("history %q: %w", key, err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var (
			r         Revision
			writtenAt string
		)
		if err := rows.Scan(&r.Seq, &r.Key, &r.Size, &writtenAt); err != nil {
			return nil, fmt.Errorf("history %q: scan: %w", key, err)
		}
		if writtenAt != "" {
			if r.WrittenAt, err = time.Parse(time.RFC3339Nano, writtenAt); err != nil {
				return nil, fmt.Errorf("history %q: revision %d: %w", key, r.Seq, err)
			}
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history %q: %w", key, err)
	}
	return revs, nil
}

// At returns the value key held at revision seq, or nil if no such
// revision exists.
func (s *Store) At(ctx context.Context, key string, seq int64) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_revisions WHERE key = ? AND seq = ?
	`, key, seq).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("revision %q@%d: %w", key, seq, err)
	}
	return value, nil
}

// Keys returns every stored key in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("keys: scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
