// Package sqlite stores scene documents in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inamate/crosshair/internal/scene"
	"github.com/inamate/crosshair/internal/storage/sqlite/migrations"
)

// Store implements scene.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ scene.Store = (*Store)(nil)

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, id string) (*scene.Document, error) {
	var (
		version int
		data    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, document FROM scenes WHERE id = ?`, id,
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scene.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}

	var doc scene.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode scene %q: %w", id, err)
	}
	doc.Version = version
	return &doc, nil
}

func (s *Store) Put(ctx context.Context, doc *scene.Document) (int, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("put scene: empty id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin put scene: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `SELECT version FROM scenes WHERE id = ?`, doc.ID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read scene version: %w", err)
	}

	now := time.Now().UTC()
	stored := *doc
	stored.Version = current + 1
	stored.UpdatedAt = now.Format(time.RFC3339)
	data, err := json.Marshal(&stored)
	if err != nil {
		return 0, fmt.Errorf("encode scene %q: %w", doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO scenes (id, name, version, document, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    version = excluded.version,
    document = excluded.document,
    updated_at = excluded.updated_at`,
		stored.ID, stored.Name, stored.Version, string(data), now.UnixMilli(),
	); err != nil {
		return 0, fmt.Errorf("put scene: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit put scene: %w", err)
	}
	return stored.Version, nil
}

func (s *Store) List(ctx context.Context) ([]scene.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, version, updated_at FROM scenes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	out := []scene.Summary{}
	for rows.Next() {
		var (
			sum       scene.Summary
			updatedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Version, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		sum.UpdatedAt = time.UnixMilli(updatedAt).UTC().Format(time.RFC3339)
		out = append(out, sum)
	}
	return out, rows.Err()
}
