package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aliskhannn/fish-feeder/internal/store"
)

// NotifyChannel carries the path of every written node.
const NotifyChannel = "realtime_nodes"

const schema = `
	CREATE TABLE IF NOT EXISTS realtime_nodes (
		path       TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// KVStore is a store.KV backed by a single Postgres table. Subscriptions use
// LISTEN/NOTIFY so writes from other processes are pushed as well.
type KVStore struct {
	pool   *pgxpool.Pool
	tx     *Transactor
	logger *zap.Logger
}

// NewKVStore creates a KVStore on top of pool.
func NewKVStore(pool *pgxpool.Pool, logger *zap.Logger) *KVStore {
	return &KVStore{
		pool:   pool,
		tx:     NewTransactor(pool),
		logger: logger,
	}
}

// Migrate creates the nodes table if it does not exist.
func (s *KVStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create realtime_nodes: %w", err)
	}
	return nil
}

// Get returns the JSON value stored at path.
func (s *KVStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	p, err := store.CleanPath(path)
	if err != nil {
		return nil, err
	}
	return get(ctx, s.pool, p)
}

func get(ctx context.Context, db DBTX, path string) (json.RawMessage, error) {
	var raw []byte
	err := db.QueryRow(ctx, `SELECT value FROM realtime_nodes WHERE path = $1`, path).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, store.Unavailable("get "+path, err)
	}
	return raw, nil
}

// Set overwrites a single node.
func (s *KVStore) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

// Update upserts every node in one transaction. Notifications are queued in
// the same transaction, so listeners only hear about committed writes.
func (s *KVStore) Update(ctx context.Context, values map[string]any) error {
	return s.UpdateIf(ctx, nil, values)
}

// UpdateIf runs check against row-locked reads in the write transaction.
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

	var checkErr error
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if check != nil {
			checkErr = check(func(path string) (json.RawMessage, error) {
				p, err := store.CleanPath(path)
				if err != nil {
					return nil, err
				}
				return getForUpdate(ctx, tx, p)
			})
			if checkErr != nil {
				return checkErr
			}
		}

		for _, p := range paths {
			query := `
				INSERT INTO realtime_nodes (path, value, updated_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (path) DO UPDATE SET
					value = EXCLUDED.value,
					updated_at = EXCLUDED.updated_at
			`
			if _, err := tx.Exec(ctx, query, p, []byte(encoded[p])); err != nil {
				return fmt.Errorf("upsert %s: %w", p, err)
			}
			if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, p); err != nil {
				return fmt.Errorf("notify %s: %w", p, err)
			}
		}
		return nil
	})
	if checkErr != nil {
		return checkErr
	}
	if err != nil {
		return store.Unavailable("update", err)
	}

	return nil
}

func getForUpdate(ctx context.Context, tx pgx.Tx, path string) (json.RawMessage, error) {
	var raw []byte
	err := tx.QueryRow(ctx, `SELECT value FROM realtime_nodes WHERE path = $1 FOR UPDATE`, path).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, store.Unavailable("get "+path, err)
	}
	return raw, nil
}

// Subscribe dedicates one pooled connection to LISTEN and calls fn for every
// notified path under prefix. The value is re-read because NOTIFY payloads
// are size limited.
func (s *KVStore) Subscribe(ctx context.Context, prefix string, fn store.Listener) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, store.Unavailable("subscribe", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, store.Unavailable("listen", err)
	}

	// The connection keeps its LISTEN state, so it never goes back to the pool.
	listener := conn.Hijack()

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = listener.Close(closeCtx)
		}()

		for {
			n, err := listener.WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					s.logger.Error("realtime subscription lost",
						zap.String("prefix", prefix),
						zap.Error(err),
					)
				}
				return
			}

			if !store.Under(n.Payload, prefix) {
				continue
			}

			value, err := get(subCtx, s.pool, n.Payload)
			if err != nil {
				s.logger.Warn("failed to read notified node",
					zap.String("path", n.Payload),
					zap.Error(err),
				)
				continue
			}
			fn(n.Payload, value)
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
