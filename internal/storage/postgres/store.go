// Package postgres stores scene documents as JSONB rows in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/crosshair/internal/scene"
)

//go:embed schema.sql
var schema string

// NewPool connects to databaseURL and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store implements scene.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ scene.Store = (*Store)(nil)

// Open connects and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*scene.Document, error) {
	var (
		version int32
		data    []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT version, document FROM scenes WHERE id = $1`, id,
	).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, scene.ErrNotFound
		}
		return nil, fmt.Errorf("get scene: %w", err)
	}

	var doc scene.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scene %q: %w", id, err)
	}
	doc.Version = int(version)
	return &doc, nil
}

func (s *Store) Put(ctx context.Context, doc *scene.Document) (int, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("put scene: empty id")
	}

	var version int
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current int32
		err := tx.QueryRow(ctx,
			`SELECT version FROM scenes WHERE id = $1 FOR UPDATE`, doc.ID,
		).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("read scene version: %w", err)
		}

		now := time.Now().UTC()
		stored := *doc
		stored.Version = int(current) + 1
		stored.UpdatedAt = now.Format(time.RFC3339)
		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("encode scene %q: %w", doc.ID, err)
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO scenes (id, name, version, document, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    version = EXCLUDED.version,
    document = EXCLUDED.document,
    updated_at = EXCLUDED.updated_at`,
			stored.ID, stored.Name, stored.Version, data, now,
		); err != nil {
			return fmt.Errorf("put scene: %w", err)
		}
		version = stored.Version
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Store) List(ctx context.Context) ([]scene.Summary, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, version, updated_at FROM scenes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (scene.Summary, error) {
		var (
			sum       scene.Summary
			version   int32
			updatedAt time.Time
		)
		if err := row.Scan(&sum.ID, &sum.Name, &version, &updatedAt); err != nil {
			return sum, err
		}
		sum.Version = int(version)
		sum.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		return sum, nil
	})
}
