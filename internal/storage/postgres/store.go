package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS set_members (
	set_key    TEXT        NOT NULL,
	member     TEXT        NOT NULL,
	position   INTEGER     NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (set_key, member)
)`

// Store provides Postgres persistence for named sets.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the set table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create set_members: %w", err)
	}
	return nil
}

// ReplaceSet deletes every member of key and inserts members in one
// transaction. Duplicate members are stored once.
func (s *Store) ReplaceSet(ctx context.Context, key string, members []string) error {
	if key == "" {
		return fmt.Errorf("set key is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM set_members WHERE set_key = $1`, key); err != nil {
		return fmt.Errorf("clear set %s: %w", key, err)
	}

	if len(members) > 0 {
		batch := &pgx.Batch{}
		for i, member := range members {
			batch.Queue(`
				INSERT INTO set_members (set_key, member, position, created_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (set_key, member) DO NOTHING
			`, key, member, i)
		}

		br := tx.SendBatch(ctx, batch)
		for range members {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert set member: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit set %s: %w", key, err)
	}
	return nil
}

// SetMembers returns the members of key in insertion order.
func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT member FROM set_members WHERE set_key = $1 ORDER BY position`, key)
	if err != nil {
		return nil, fmt.Errorf("query set %s: %w", key, err)
	}
	members, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan set %s: %w", key, err)
	}
	return members, nil
}
