package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// MemoryStore is an in-process KV used for dry runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	subs   *Broadcaster
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]json.RawMessage),
		subs:   NewBroadcaster(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("get", err)
	}
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[p]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), v...), nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

func (s *MemoryStore) Update(ctx context.Context, values map[string]any) error {
	return s.UpdateIf(ctx, nil, values)
}

func (s *MemoryStore) UpdateIf(ctx context.Context, check func(get Getter) error, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return Unavailable("update", err)
	}
	encoded, err := Encode(values)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if check != nil {
		if err := check(s.getLocked); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	for p, v := range encoded {
		s.values[p] = v
	}
	s.mu.Unlock()

	// Publish in a stable order so listeners see deterministic sequences.
	paths := make([]string, 0, len(encoded))
	for p := range encoded {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		s.subs.Publish(p, encoded[p])
	}
	return nil
}

func (s *MemoryStore) getLocked(path string) (json.RawMessage, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	v, ok := s.values[p]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), v...), nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, prefix string, fn Listener) (func(), error) {
	return WatchContext(ctx, s.subs.Add(prefix, fn)), nil
}

// Snapshot returns a copy of every stored node.
func (s *MemoryStore) Snapshot() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(s.values))
	for k, v := range s.values {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
