// Package postgres stores bridge state in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/healthsync/internal/persistence"
)

// Store implements persistence.KV on the health_sync_kv table, scoped to one owner.
type Store struct {
	pool  *pgxpool.Pool
	owner string
}

// NewStore constructs a Store for owner.
func NewStore(pool *pgxpool.Pool, owner string) *Store {
	return &Store{pool: pool, owner: owner}
}

// Get returns the value stored at key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM health_sync_kv WHERE owner_id=$1 AND key=$2`

	var value string
	if err := s.pool.QueryRow(ctx, query, s.owner, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", persistence.ErrNotFound
		}
		return "", fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value at key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	const stmt = `INSERT INTO health_sync_kv (owner_id, key, value, updated_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (owner_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, stmt, s.owner, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Update replaces the value at key inside a transaction holding an advisory lock on
// (owner, key), so concurrent writers queue instead of overwriting each other.
func (s *Store) Update(ctx context.Context, key string, fn persistence.UpdateFunc) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text || '/' || $2::text))`, s.owner, key); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}

	var current string
	found := true
	err = tx.QueryRow(ctx, `SELECT value FROM health_sync_kv WHERE owner_id=$1 AND key=$2`, s.owner, key).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		found = false
	} else if err != nil {
		return fmt.Errorf("select %s: %w", key, err)
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO health_sync_kv (owner_id, key, value, updated_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (owner_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := tx.Exec(ctx, stmt, s.owner, key, next); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return tx.Commit(ctx)
}

// Delete removes keys inside one transaction.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM health_sync_kv WHERE owner_id=$1 AND key = ANY($2)`, s.owner, keys); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return tx.Commit(ctx)
}
