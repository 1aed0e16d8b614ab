package repository

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/store"
)

func TestScheduleRepository_LoadNotFound(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	repo := NewScheduleRepository(kv)

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, ErrScheduleNotFound)
	assert.ErrorIs(t, err, ErrAnchorNotFound)

	require.NoError(t, kv.Update(ctx, map[string]any{
		PathAnchorHours:   8,
		PathAnchorMinutes: 0,
	}))

	_, err = repo.Load(ctx)
	require.ErrorIs(t, err, ErrScheduleNotFound)
	assert.ErrorIs(t, err, ErrIntervalNotFound)
}

func TestScheduleRepository_SaveLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository(store.NewMemoryStore())

	want := entities.Schedule{
		Anchor:      entities.TimeOfDay{Hour: 8, Minute: 30},
		Interval:    3,
		NextInstant: entities.TimeOfDay{Hour: 14, Minute: 30},
	}
	require.NoError(t, repo.Save(ctx, want))

	first, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, *first)

	second, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScheduleRepository_SaveRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	repo := NewScheduleRepository(kv)

	err := repo.Save(ctx, entities.Schedule{
		Anchor:      entities.TimeOfDay{Hour: 8},
		Interval:    3,
		NextInstant: entities.TimeOfDay{Hour: 9},
	})
	require.ErrorIs(t, err, entities.ErrInvalidInput)
	assert.Empty(t, kv.Snapshot())
}

func TestScheduleRepository_SaveNextInstantIsPartial(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository(store.NewMemoryStore())

	require.NoError(t, repo.Save(ctx, entities.Schedule{
		Anchor:      entities.TimeOfDay{Hour: 23},
		Interval:    2,
		NextInstant: entities.TimeOfDay{Hour: 23},
	}))
	require.NoError(t, repo.SaveNextInstant(ctx, entities.TimeOfDay{Hour: 1}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.TimeOfDay{Hour: 23}, got.Anchor)
	assert.Equal(t, entities.Interval(2), got.Interval)
	assert.Equal(t, entities.TimeOfDay{Hour: 1}, got.NextInstant)
}

func TestScheduleRepository_MissingNextInstantDefaultsToAnchor(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	repo := NewScheduleRepository(kv)

	require.NoError(t, kv.Update(ctx, map[string]any{
		PathAnchorHours:   "7",
		PathAnchorMinutes: 45,
		PathIntervalHours: "2",
	}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.TimeOfDay{Hour: 7, Minute: 45}, got.NextInstant)
	assert.Equal(t, entities.Interval(2), got.Interval)
}

func TestScheduleRepository_LoadRejectsCorruptData(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		values map[string]any
	}{
		{name: "hour out of range", values: map[string]any{PathAnchorHours: 25, PathIntervalHours: 1}},
		{name: "zero interval", values: map[string]any{PathAnchorHours: 8, PathIntervalHours: 0}},
		{name: "fractional interval", values: map[string]any{PathAnchorHours: 8, PathIntervalHours: 1.5}},
		{name: "text interval", values: map[string]any{PathAnchorHours: 8, PathIntervalHours: "often"}},
		{name: "unreachable next", values: map[string]any{
			PathAnchorHours: 8, PathIntervalHours: 3, PathNextInstantHours: 9,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := store.NewMemoryStore()
			require.NoError(t, kv.Update(ctx, tt.values))

			_, err := NewScheduleRepository(kv).Load(ctx)
			assert.ErrorIs(t, err, entities.ErrInvalidInput)
		})
	}
}

func TestScheduleRepository_FeedingAmount(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	repo := NewScheduleRepository(kv)

	got, err := repo.LoadFeedingAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultFeedingAmount, got)

	require.NoError(t, repo.SaveFeedingAmount(ctx, entities.AmountALot))
	got, err = repo.LoadFeedingAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountALot, got)

	require.NoError(t, kv.Set(ctx, PathFeedingAmountDuration, 12))
	got, err = repo.LoadFeedingAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Duration)
}

func TestScheduleRepository_AppendFeedingEvent(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	repo := NewScheduleRepository(kv)

	ev := entities.FeedingEvent{
		ID:        "8f14e45f-ceea-467f-a8d3-0f8c1a2b3c4d",
		Scheduled: entities.TimeOfDay{Hour: 11},
		Next:      entities.TimeOfDay{Hour: 14},
		FiredAt:   time.Date(2026, 5, 10, 11, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.AppendFeedingEvent(ctx, ev))

	raw, err := kv.Get(ctx, PathFeedingLog+"/"+ev.ID)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.EqualValues(t, 11, rec["scheduledHours"])
	assert.EqualValues(t, 14, rec["nextHours"])
	assert.Equal(t, "2026-05-10T11:00:00Z", rec["firedAt"])

	assert.ErrorIs(t, repo.AppendFeedingEvent(ctx, entities.FeedingEvent{}), entities.ErrInvalidInput)
}

func TestScheduleRepository_LoadUncheckedKeepsUnreachableNext(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Update(ctx, map[string]any{
		PathAnchorHours: 8, PathIntervalHours: 3, PathNextInstantHours: 9,
	}))
	repo := NewScheduleRepository(kv)

	got, err := repo.LoadUnchecked(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.Schedule{
		Anchor: entities.TimeOfDay{Hour: 8}, Interval: 3, NextInstant: entities.TimeOfDay{Hour: 9},
	}, *got)

	require.NoError(t, kv.Set(ctx, PathIntervalHours, 0))
	_, err = repo.LoadUnchecked(ctx)
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}

func TestScheduleRepository_AdvanceNextInstant(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository(store.NewMemoryStore())

	from := entities.Schedule{Anchor: entities.TimeOfDay{Hour: 8}, Interval: 3, NextInstant: entities.TimeOfDay{Hour: 8}}
	require.NoError(t, repo.Save(ctx, from))

	require.NoError(t, repo.AdvanceNextInstant(ctx, from, entities.TimeOfDay{Hour: 11}))
	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.TimeOfDay{Hour: 11}, got.NextInstant)

	// Replaying the same advance no longer matches the stored next instant.
	err = repo.AdvanceNextInstant(ctx, from, entities.TimeOfDay{Hour: 11})
	assert.ErrorIs(t, err, ErrScheduleChanged)

	// A schedule saved by someone else in the meantime wins.
	moved := entities.Schedule{Anchor: entities.TimeOfDay{Hour: 9, Minute: 30}, Interval: 1, NextInstant: entities.TimeOfDay{Hour: 9, Minute: 30}}
	require.NoError(t, repo.Save(ctx, moved))

	from.NextInstant = entities.TimeOfDay{Hour: 11}
	err = repo.AdvanceNextInstant(ctx, from, entities.TimeOfDay{Hour: 14})
	require.ErrorIs(t, err, ErrScheduleChanged)
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, moved, *got)
}

func TestScheduleRepository_AdvanceNextInstantWithoutSchedule(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	repo := NewScheduleRepository(kv)

	from := entities.Schedule{Anchor: entities.TimeOfDay{Hour: 8}, Interval: 3, NextInstant: entities.TimeOfDay{Hour: 8}}
	err := repo.AdvanceNextInstant(ctx, from, entities.TimeOfDay{Hour: 11})
	assert.ErrorIs(t, err, ErrScheduleChanged)
	assert.Empty(t, kv.Snapshot())
}

func TestScheduleRepository_WatchCoalescesBursts(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository(store.NewMemoryStore())

	var calls atomic.Int32
	release := make(chan struct{})
	cancel, err := repo.Watch(ctx, func() {
		calls.Add(1)
		<-release
	})
	require.NoError(t, err)

	schedule := entities.Schedule{Anchor: entities.TimeOfDay{Hour: 8}, Interval: 3, NextInstant: entities.TimeOfDay{Hour: 8}}
	require.NoError(t, repo.Save(ctx, schedule))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	schedule.Interval = 2
	require.NoError(t, repo.Save(ctx, schedule))
	require.NoError(t, repo.SaveInterval(ctx, 4))
	close(release)

	// Seven watched nodes were written, fn ran twice.
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	assert.Never(t, func() bool { return calls.Load() > 2 }, 50*time.Millisecond, 5*time.Millisecond)

	cancel()
	require.NoError(t, repo.SaveInterval(ctx, 3))
	assert.Never(t, func() bool { return calls.Load() > 2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestScheduleRepository_WatchIgnoresNextInstant(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository(store.NewMemoryStore())

	var calls atomic.Int32
	cancel, err := repo.Watch(ctx, func() { calls.Add(1) })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, repo.SaveNextInstant(ctx, entities.TimeOfDay{Hour: 3}))
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, repo.SaveInterval(ctx, 2))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
}
