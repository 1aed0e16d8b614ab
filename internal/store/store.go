// Package store defines the path-addressed real-time key/value store the
// feeder persists its schedule to, plus an in-memory implementation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrNotFound    = errors.New("path not found")
	ErrUnavailable = errors.New("store unavailable")
	ErrInvalidPath = errors.New("invalid path")
	ErrConflict    = errors.New("store changed concurrently")
)

// Listener receives the path and new JSON value of a changed node.
// Listeners run on the writer's goroutine and must not block.
type Listener func(path string, value json.RawMessage)

// Getter reads one node inside a write, returning ErrNotFound when it is absent.
type Getter func(path string) (json.RawMessage, error)

// KV is a path-addressed JSON document store with push subscriptions.
// Paths use "/" as separator, e.g. "HISTORY/feedingInterval/interval".
type KV interface {
	// Get returns the value at path or ErrNotFound.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Set overwrites the value at path.
	Set(ctx context.Context, path string, value any) error
	// Update writes all values atomically.
	Update(ctx context.Context, values map[string]any) error
	// UpdateIf runs check inside the write and applies values only when it
	// returns nil. No other writer can interleave between check and write.
	UpdateIf(ctx context.Context, check func(get Getter) error, values map[string]any) error
	// Subscribe calls fn for every write at or below prefix until the
	// returned cancel function is called or ctx is done.
	Subscribe(ctx context.Context, prefix string, fn Listener) (func(), error)
}

// Unavailable marks err as a transport failure of op.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// CleanPath trims surrounding slashes and rejects empty segments.
func CleanPath(path string) (string, error) {
	p := strings.Trim(strings.TrimSpace(path), "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			return "", fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return p, nil
}

// Under reports whether path equals prefix or is nested below it.
func Under(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Encode marshals every value of an update and cleans its paths.
func Encode(values map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(values))
	for path, v := range values {
		p, err := CleanPath(path)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", p, err)
		}
		out[p] = raw
	}
	return out, nil
}

type subscription struct {
	prefix string
	fn     Listener
}

// Broadcaster fans out writes to subscribers by path prefix.
type Broadcaster struct {
	mu   sync.RWMutex
	next int
	subs map[int]subscription
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]subscription)}
}

// Add registers fn for prefix and returns an idempotent cancel function.
func (b *Broadcaster) Add(prefix string, fn Listener) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = subscription{prefix: strings.Trim(prefix, "/"), fn: fn}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers a write to every matching subscriber.
func (b *Broadcaster) Publish(path string, value json.RawMessage) {
	b.mu.RLock()
	matched := make([]Listener, 0, len(b.subs))
	for _, s := range b.subs {
		if Under(path, s.prefix) {
			matched = append(matched, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range matched {
		fn(path, value)
	}
}

// Len returns the number of live subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// WatchContext cancels a subscription once ctx is done.
func WatchContext(ctx context.Context, cancel func()) func() {
	stop := context.AfterFunc(ctx, cancel)
	return func() {
		stop()
		cancel()
	}
}
