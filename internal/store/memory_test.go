package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "HISTORY/feedingInterval/interval")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "/HISTORY/feedingInterval/interval/", 3))

	raw, err := s.Get(ctx, "HISTORY/feedingInterval/interval")
	require.NoError(t, err)

	var got int
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 3, got)
}

func TestMemoryStore_InvalidPath(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.ErrorIs(t, s.Set(ctx, "", 1), ErrInvalidPath)
	assert.ErrorIs(t, s.Set(ctx, "HISTORY//x", 1), ErrInvalidPath)

	_, err := s.Get(ctx, "/")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestMemoryStore_UpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Update(ctx, map[string]any{
		"HISTORY/nextFeedingTime/nextFeedingHours":   11,
		"HISTORY/nextFeedingTime/nextFeedingMinutes": 30,
		"bad//path": 1,
	})
	require.ErrorIs(t, err, ErrInvalidPath)
	assert.Empty(t, s.Snapshot())

	require.NoError(t, s.Update(ctx, map[string]any{
		"HISTORY/nextFeedingTime/nextFeedingHours":   11,
		"HISTORY/nextFeedingTime/nextFeedingMinutes": 30,
	}))
	assert.Len(t, s.Snapshot(), 2)
}

func TestMemoryStore_UpdateIf(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "HISTORY/feedingInterval/interval", 3))

	intervalIs := func(want string) func(get Getter) error {
		return func(get Getter) error {
			raw, err := get("HISTORY/feedingInterval/interval")
			if err != nil {
				return err
			}
			if string(raw) != want {
				return ErrConflict
			}
			return nil
		}
	}

	err := s.UpdateIf(ctx, intervalIs("2"), map[string]any{"HISTORY/nextFeedingTime/nextFeedingHours": 11})
	require.ErrorIs(t, err, ErrConflict)
	_, err = s.Get(ctx, "HISTORY/nextFeedingTime/nextFeedingHours")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpdateIf(ctx, intervalIs("3"), map[string]any{"HISTORY/nextFeedingTime/nextFeedingHours": 11}))
	raw, err := s.Get(ctx, "HISTORY/nextFeedingTime/nextFeedingHours")
	require.NoError(t, err)
	assert.JSONEq(t, "11", string(raw))

	err = s.UpdateIf(ctx, func(get Getter) error {
		_, err := get("HISTORY/missing")
		return err
	}, map[string]any{"a": 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	assert.ErrorIs(t, s.Set(ctx, "a", 1), ErrUnavailable)

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMemoryStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var (
		mu  sync.Mutex
		got []string
	)
	cancel, err := s.Subscribe(ctx, "HISTORY/initialTime", func(path string, _ json.RawMessage) {
		mu.Lock()
		got = append(got, path)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, map[string]any{
		"HISTORY/initialTime/initialMinutes": 0,
		"HISTORY/initialTime/initialHours":   8,
		"HISTORY/feedingInterval/interval":   3,
	}))
	require.NoError(t, s.Set(ctx, "HISTORY/initialTimeZone", "x"))

	cancel()
	cancel()
	require.NoError(t, s.Set(ctx, "HISTORY/initialTime/initialHours", 9))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"HISTORY/initialTime/initialHours",
		"HISTORY/initialTime/initialMinutes",
	}, got)
	assert.Equal(t, 0, s.subs.Len())
}

func TestMemoryStore_SubscribeEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore()

	_, err := s.Subscribe(ctx, "", func(string, json.RawMessage) {})
	require.NoError(t, err)
	require.Equal(t, 1, s.subs.Len())

	cancel()
	assert.Eventually(t, func() bool { return s.subs.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestUnder(t *testing.T) {
	assert.True(t, Under("a/b/c", "a/b"))
	assert.True(t, Under("a/b", "a/b"))
	assert.True(t, Under("a/b", ""))
	assert.False(t, Under("a/bc", "a/b"))
	assert.False(t, Under("a", "a/b"))
}
