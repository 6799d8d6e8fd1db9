package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	kind       text        NOT NULL,
	id         bytea       NOT NULL,
	data       jsonb       NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
)`

const upsertEntity = `
INSERT INTO entities (kind, id, data, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (kind, id)
DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

// Store keeps ledger entities in Postgres, one jsonb row per entity.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.KV = (*Store)(nil)

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

// EnsureSchema creates the entities table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind string, id []byte) ([]byte, bool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM entities WHERE kind=$1 AND id=$2`, kind, id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Put upserts every record inside one transaction.
func (s *Store) Put(ctx context.Context, records []store.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertEntity, rec.Kind, rec.ID, string(rec.Data))
	}

	br := tx.SendBatch(ctx, batch)
	for _, rec := range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert %s: %w", rec.Kind, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
