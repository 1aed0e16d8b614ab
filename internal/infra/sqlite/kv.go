// Package sqlite provides a single-device store.KV backed by a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aliskhannn/fish-feeder/internal/store"
)

const schema = `
	CREATE TABLE IF NOT EXISTS realtime_nodes (
		path       TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)
`

// KVStore keeps nodes in SQLite. Subscriptions only see writes made through
// this KVStore, since SQLite has no cross-process notifications; readers that
// share the file with another process must poll.
type KVStore struct {
	db   *sql.DB
	subs *store.Broadcaster
}

// Open opens (or creates) the database at path and runs the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*KVStore, error) {
	// Writers take the lock at BEGIN so a check inside UpdateIf holds until
	// commit, and wait for another process instead of failing with SQLITE_BUSY.
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create realtime_nodes: %w", err)
	}

	return &KVStore{db: db, subs: store.NewBroadcaster()}, nil
}

func (s *KVStore) Close() error {
	return s.db.Close()
}

func (s *KVStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	p, err := store.CleanPath(path)
	if err != nil {
		return nil, err
	}

	return get(ctx, s.db, p)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, db queryer, path string) (json.RawMessage, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM realtime_nodes WHERE path = ?`, path).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, store.Unavailable("get "+path, err)
	}
	return json.RawMessage(raw), nil
}

func (s *KVStore) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

func (s *KVStore) Update(ctx context.Context, values map[string]any) error {
	return s.UpdateIf(ctx, nil, values)
}

func (s *KVStore) UpdateIf(ctx context.Context, check func(get store.Getter) error, values map[string]any) error {
	encoded, err := store.Encode(values)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(encoded))
	for p := range encoded {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if check != nil {
		err := check(func(path string) (json.RawMessage, error) {
			p, err := store.CleanPath(path)
			if err != nil {
				return nil, err
			}
			return get(ctx, tx, p)
		})
		if err != nil {
			return err
		}
	}

	for _, p := range paths {
		query := `
			INSERT INTO realtime_nodes (path, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (path) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`
		if _, err := tx.ExecContext(ctx, query, p, string(encoded[p])); err != nil {
			return store.Unavailable("upsert "+p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.Unavailable("commit", err)
	}

	for _, p := range paths {
		s.subs.Publish(p, encoded[p])
	}
	return nil
}

func (s *KVStore) Subscribe(ctx context.Context, prefix string, fn store.Listener) (func(), error) {
	return store.WatchContext(ctx, s.subs.Add(prefix, fn)), nil
}
