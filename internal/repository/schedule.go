package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/store"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrAnchorNotFound   = errors.New("anchor time not set")
	ErrIntervalNotFound = errors.New("feeding interval not set")
	ErrScheduleChanged  = fmt.Errorf("schedule changed since it was read: %w", store.ErrConflict)
)

// Store paths. Every writer and reader goes through these constants.
const (
	PathAnchor        = "HISTORY/initialTime"
	PathAnchorHours   = PathAnchor + "/initialHours"
	PathAnchorMinutes = PathAnchor + "/initialMinutes"

	PathInterval      = "HISTORY/feedingInterval"
	PathIntervalHours = PathInterval + "/interval"

	PathNextInstant        = "HISTORY/nextFeedingTime"
	PathNextInstantHours   = PathNextInstant + "/nextFeedingHours"
	PathNextInstantMinutes = PathNextInstant + "/nextFeedingMinutes"

	PathFeedingAmount         = "HISTORY/feedingAmount"
	PathFeedingAmountLabel    = PathFeedingAmount + "/amount"
	PathFeedingAmountDuration = PathFeedingAmount + "/duration"

	PathFeedingLog = "HISTORY/feedingLog"
)

// ScheduleRepository reads and writes the feeding schedule in the real-time store.
type ScheduleRepository struct {
	kv store.KV
}

// NewScheduleRepository creates a ScheduleRepository over kv.
func NewScheduleRepository(kv store.KV) *ScheduleRepository {
	return &ScheduleRepository{kv: kv}
}

// Load reads the full schedule. A missing anchor or interval yields
// ErrScheduleNotFound; a missing next instant is derived as the anchor itself.
func (r *ScheduleRepository) Load(ctx context.Context) (*entities.Schedule, error) {
	schedule, err := r.LoadUnchecked(ctx)
	if err != nil {
		return nil, err
	}
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("stored schedule: %w", err)
	}
	return schedule, nil
}

// LoadUnchecked is Load without the check that the next instant is reachable
// from the anchor, for callers that repair it.
func (r *ScheduleRepository) LoadUnchecked(ctx context.Context) (*entities.Schedule, error) {
	return loadSchedule(r.getter(ctx))
}

func loadSchedule(get store.Getter) (*entities.Schedule, error) {
	anchor, err := loadAnchor(get)
	if err != nil {
		if errors.Is(err, ErrAnchorNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrScheduleNotFound, err)
		}
		return nil, err
	}

	interval, err := loadInterval(get)
	if err != nil {
		if errors.Is(err, ErrIntervalNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrScheduleNotFound, err)
		}
		return nil, err
	}

	next, found, err := readTimeOfDay(get, PathNextInstantHours, PathNextInstantMinutes)
	if err != nil {
		return nil, fmt.Errorf("load next instant: %w", err)
	}
	if !found {
		next = anchor
	}

	return &entities.Schedule{
		Anchor:      anchor,
		Interval:    interval,
		NextInstant: next,
	}, nil
}

// LoadAnchor reads the user-set anchor time.
func (r *ScheduleRepository) LoadAnchor(ctx context.Context) (entities.TimeOfDay, error) {
	return loadAnchor(r.getter(ctx))
}

func loadAnchor(get store.Getter) (entities.TimeOfDay, error) {
	anchor, found, err := readTimeOfDay(get, PathAnchorHours, PathAnchorMinutes)
	if err != nil {
		return entities.TimeOfDay{}, fmt.Errorf("load anchor: %w", err)
	}
	if !found {
		return entities.TimeOfDay{}, ErrAnchorNotFound
	}
	return anchor, nil
}

// LoadInterval reads the feeding interval.
func (r *ScheduleRepository) LoadInterval(ctx context.Context) (entities.Interval, error) {
	return loadInterval(r.getter(ctx))
}

func loadInterval(get store.Getter) (entities.Interval, error) {
	hours, found, err := readInt(get, PathIntervalHours)
	if err != nil {
		return 0, fmt.Errorf("load interval: %w", err)
	}
	if !found {
		return 0, ErrIntervalNotFound
	}

	interval := entities.Interval(hours)
	if err := interval.Validate(); err != nil {
		return 0, fmt.Errorf("stored interval: %w", err)
	}
	return interval, nil
}

// Save overwrites the whole schedule in one atomic update.
func (r *ScheduleRepository) Save(ctx context.Context, s entities.Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}

	err := r.kv.Update(ctx, map[string]any{
		PathAnchorHours:        s.Anchor.Hour,
		PathAnchorMinutes:      s.Anchor.Minute,
		PathIntervalHours:      int(s.Interval),
		PathNextInstantHours:   s.NextInstant.Hour,
		PathNextInstantMinutes: s.NextInstant.Minute,
	})
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

// SaveNextInstant updates only the next instant, leaving anchor and interval untouched.
func (r *ScheduleRepository) SaveNextInstant(ctx context.Context, t entities.TimeOfDay) error {
	if err := t.Validate(); err != nil {
		return err
	}

	err := r.kv.Update(ctx, map[string]any{
		PathNextInstantHours:   t.Hour,
		PathNextInstantMinutes: t.Minute,
	})
	if err != nil {
		return fmt.Errorf("save next instant: %w", err)
	}
	return nil
}

// AdvanceNextInstant moves the next instant from the one in from to next,
// but only while the stored anchor, interval and next instant still equal
// from. Otherwise it returns ErrScheduleChanged and writes nothing.
func (r *ScheduleRepository) AdvanceNextInstant(ctx context.Context, from entities.Schedule, next entities.TimeOfDay) error {
	if err := next.Validate(); err != nil {
		return err
	}

	check := func(get store.Getter) error {
		current, err := loadSchedule(get)
		if err != nil {
			if errors.Is(err, ErrScheduleNotFound) {
				return fmt.Errorf("%w: %w", ErrScheduleChanged, err)
			}
			return err
		}
		if *current != from {
			return ErrScheduleChanged
		}
		return nil
	}

	err := r.kv.UpdateIf(ctx, check, map[string]any{
		PathNextInstantHours:   next.Hour,
		PathNextInstantMinutes: next.Minute,
	})
	if err != nil {
		return fmt.Errorf("advance next instant: %w", err)
	}
	return nil
}

// SaveInterval stores the interval alone, used before any anchor time exists.
func (r *ScheduleRepository) SaveInterval(ctx context.Context, interval entities.Interval) error {
	if err := interval.Validate(); err != nil {
		return err
	}
	if err := r.kv.Set(ctx, PathIntervalHours, int(interval)); err != nil {
		return fmt.Errorf("save interval: %w", err)
	}
	return nil
}

// LoadFeedingAmount returns the stored amount or the default one.
func (r *ScheduleRepository) LoadFeedingAmount(ctx context.Context) (entities.FeedingAmount, error) {
	raw, err := r.kv.Get(ctx, PathFeedingAmountLabel)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return entities.DefaultFeedingAmount, nil
		}
		return entities.FeedingAmount{}, fmt.Errorf("load feeding amount: %w", err)
	}

	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return entities.FeedingAmount{}, fmt.Errorf("%w: feeding amount: %v", entities.ErrInvalidInput, err)
	}

	amount, err := entities.FeedingAmountByLabel(label)
	if err != nil {
		return entities.FeedingAmount{}, err
	}

	// A custom duration written by another client wins over the preset.
	if d, found, err := readInt(r.getter(ctx), PathFeedingAmountDuration); err == nil && found && d > 0 {
		amount.Duration = d
	}

	return amount, nil
}

// SaveFeedingAmount stores the label and dispenser duration together.
func (r *ScheduleRepository) SaveFeedingAmount(ctx context.Context, amount entities.FeedingAmount) error {
	err := r.kv.Update(ctx, map[string]any{
		PathFeedingAmountLabel:    amount.Label,
		PathFeedingAmountDuration: amount.Duration,
	})
	if err != nil {
		return fmt.Errorf("save feeding amount: %w", err)
	}
	return nil
}

type feedingEventRecord struct {
	ScheduledHours   int       `json:"scheduledHours"`
	ScheduledMinutes int       `json:"scheduledMinutes"`
	NextHours        int       `json:"nextHours"`
	NextMinutes      int       `json:"nextMinutes"`
	FiredAt          time.Time `json:"firedAt"`
	Late             bool      `json:"late"`
	Skipped          int       `json:"skipped"`
}

// AppendFeedingEvent writes ev under the feeding log keyed by its ID.
func (r *ScheduleRepository) AppendFeedingEvent(ctx context.Context, ev entities.FeedingEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("%w: feeding event without id", entities.ErrInvalidInput)
	}

	rec := feedingEventRecord{
		ScheduledHours:   ev.Scheduled.Hour,
		ScheduledMinutes: ev.Scheduled.Minute,
		NextHours:        ev.Next.Hour,
		NextMinutes:      ev.Next.Minute,
		FiredAt:          ev.FiredAt.UTC(),
		Late:             ev.Late,
		Skipped:          ev.Skipped,
	}
	if err := r.kv.Set(ctx, PathFeedingLog+"/"+ev.ID, rec); err != nil {
		return fmt.Errorf("append feeding event: %w", err)
	}
	return nil
}

// Watch calls fn after the anchor or the interval change. Notifications
// arriving while fn runs or waits to run are folded into one more call, so a
// multi-node update costs at most two. fn runs on its own goroutine and is
// never called after the returned cancel function returns.
func (r *ScheduleRepository) Watch(ctx context.Context, fn func()) (func(), error) {
	kick := make(chan struct{}, 1)
	listener := func(string, json.RawMessage) {
		select {
		case kick <- struct{}{}:
		default:
		}
	}

	cancelAnchor, err := r.kv.Subscribe(ctx, PathAnchor, listener)
	if err != nil {
		return nil, fmt.Errorf("watch anchor: %w", err)
	}
	cancelInterval, err := r.kv.Subscribe(ctx, PathInterval, listener)
	if err != nil {
		cancelAnchor()
		return nil, fmt.Errorf("watch interval: %w", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-kick:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancelAnchor()
			cancelInterval()
			close(stop)
			<-done
		})
	}, nil
}

func (r *ScheduleRepository) getter(ctx context.Context) store.Getter {
	return func(path string) (json.RawMessage, error) {
		return r.kv.Get(ctx, path)
	}
}

func readTimeOfDay(get store.Getter, hoursPath, minutesPath string) (entities.TimeOfDay, bool, error) {
	h, foundH, err := readInt(get, hoursPath)
	if err != nil {
		return entities.TimeOfDay{}, false, err
	}
	m, foundM, err := readInt(get, minutesPath)
	if err != nil {
		return entities.TimeOfDay{}, false, err
	}
	if !foundH && !foundM {
		return entities.TimeOfDay{}, false, nil
	}

	// A lone hour is treated as "on the hour".
	t, err := entities.NewTimeOfDay(h, m)
	if err != nil {
		return entities.TimeOfDay{}, false, err
	}
	return t, true, nil
}

// readInt accepts JSON numbers and numeric strings.
func readInt(get store.Getter, path string) (int, bool, error) {
	raw, err := get(path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false, fmt.Errorf("%w: %s: %v", entities.ErrInvalidInput, path, err)
	}

	if i, err := n.Int64(); err == nil {
		return int(i), true, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, false, fmt.Errorf("%w: %s is not an integer: %s", entities.ErrInvalidInput, path, n)
	}
	return int(f), true, nil
}
