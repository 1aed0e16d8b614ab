package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/repository"
	"github.com/aliskhannn/fish-feeder/internal/store"
)

var (
	ErrMonitorRunning = errors.New("feeding monitor already running")
	ErrMonitorStopped = errors.New("feeding monitor stopped")
)

// MonitorState is the lifecycle state of a FeedingMonitor.
type MonitorState int

const (
	StateIdle    MonitorState = iota // no schedule loaded
	StateArmed                       // waiting for the next instant
	StateFiring                      // dispatching a feeding
	StateStopped                     // cancelled, no further ticks
)

func (s MonitorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// MonitorConfig tunes the monitor loop.
type MonitorConfig struct {
	Location         *time.Location  // wall clock the schedule is expressed in
	MaxSleep         time.Duration   // upper bound between two ticks while armed, and between two re-reads of the schedule
	IdleRetry        time.Duration   // delay between load attempts while idle
	StoreTimeout     time.Duration   // per store call and dispatch
	VibrationPattern []time.Duration // played on every feeding
	Messages         []string        // notification bodies, one picked at random
}

// DefaultMonitorConfig returns the defaults used when config leaves fields empty.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Location:         time.Local,
		MaxSleep:         30 * time.Second,
		IdleRetry:        5 * time.Second,
		StoreTimeout:     10 * time.Second,
		VibrationPattern: entities.DefaultVibrationPattern,
		Messages:         entities.FeedingMessages,
	}
}

// FeedingMonitor watches the stored schedule and fires a notification and a
// vibration when the next instant is reached, then rolls the schedule forward.
//
// The loop sleeps until the due instant (capped by MaxSleep) instead of
// polling every second, and fires whenever now is at or past the due instant,
// so a suspended process still fires once when it resumes. Store calls and
// dispatches run in background goroutines and never hold up a tick.
type FeedingMonitor struct {
	repo     MonitorRepository
	notifier Notifier
	vibrator Vibrator
	clock    Clock
	logger   *zap.Logger
	cfg      MonitorConfig
	pick     func(n int) int

	mu         sync.Mutex
	state      MonitorState
	schedule   entities.Schedule
	stored     entities.Schedule // as last read from or written to the store
	dueAt      time.Time
	generation uint64 // bumped on reload and stop; stale async results are dropped
	loading    bool
	loadedAt   time.Time
	loadErr    string // last reported load failure, logged once
	saving     bool
	dirty      bool // persisted next instant lags behind schedule.NextInstant

	asyncCtx context.Context
	wake     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	pending  sync.WaitGroup
}

// NewFeedingMonitor creates an idle monitor. Zero config fields take defaults.
func NewFeedingMonitor(
	repo MonitorRepository,
	notifier Notifier,
	vibrator Vibrator,
	clock Clock,
	cfg MonitorConfig,
	logger *zap.Logger,
) *FeedingMonitor {
	def := DefaultMonitorConfig()
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.MaxSleep <= 0 {
		cfg.MaxSleep = def.MaxSleep
	}
	if cfg.IdleRetry <= 0 {
		cfg.IdleRetry = def.IdleRetry
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if len(cfg.VibrationPattern) == 0 {
		cfg.VibrationPattern = def.VibrationPattern
	}
	if len(cfg.Messages) == 0 {
		cfg.Messages = def.Messages
	}

	return &FeedingMonitor{
		repo:     repo,
		notifier: notifier,
		vibrator: vibrator,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
		pick:     rand.IntN,
		state:    StateIdle,
		asyncCtx: context.Background(),
		wake:     make(chan struct{}, 1),
	}
}

// Start runs the monitor loop until ctx is done or Stop is called.
func (m *FeedingMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return ErrMonitorStopped
	}
	if m.cancel != nil {
		m.mu.Unlock()
		return ErrMonitorRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	// Persistence started by a tick may outlive the loop.
	m.asyncCtx = context.WithoutCancel(ctx)
	done := m.done
	m.mu.Unlock()

	go m.run(loopCtx, done)

	m.logger.Info("feeding monitor started",
		zap.String("location", m.cfg.Location.String()),
		zap.Duration("max_sleep", m.cfg.MaxSleep),
	)
	return nil
}

// Stop cancels the loop and waits for it and any in-flight store writes.
// No tick is processed after Stop returns.
func (m *FeedingMonitor) Stop() {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	m.state = StateStopped
	m.generation++
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	m.pending.Wait()

	m.logger.Info("feeding monitor stopped")
}

// Reload re-reads the schedule and re-arms on it, e.g. after the user changed
// anchor or interval.
func (m *FeedingMonitor) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateStopped {
		return
	}
	m.reloadLocked()
}

func (m *FeedingMonitor) reloadLocked() {
	m.generation++
	m.loading = false
	m.startLoadLocked(true)
}

// State returns the current lifecycle state.
func (m *FeedingMonitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// NextInstant returns the armed next instant, if any.
func (m *FeedingMonitor) NextInstant() (entities.TimeOfDay, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateArmed {
		return entities.TimeOfDay{}, false
	}
	return m.schedule.NextInstant, true
}

// DueAt returns the wall-clock instant the monitor fires next.
func (m *FeedingMonitor) DueAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateArmed {
		return time.Time{}, false
	}
	return m.dueAt, true
}

func (m *FeedingMonitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		wait := m.Tick(m.clock.Now())

		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		case <-m.clock.After(wait):
		}
	}
}

// Tick processes one clock reading and returns how long to sleep before the
// next one. Ticks must not overlap; the run loop guarantees that.
func (m *FeedingMonitor) Tick(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	now = now.In(m.cfg.Location)

	switch m.state {
	case StateStopped:
		return m.cfg.MaxSleep
	case StateIdle:
		m.startLoadLocked(true)
		return m.cfg.IdleRetry
	}

	// Writers in other processes are not always pushed to us.
	if !now.Before(m.loadedAt.Add(m.cfg.MaxSleep)) {
		m.startLoadLocked(false)
	}

	if m.dirty && !m.saving {
		m.persistLocked()
	}

	if now.Before(m.dueAt) {
		return m.sleepUntilLocked(now)
	}

	m.fireLocked(now)
	return m.sleepUntilLocked(now)
}

func (m *FeedingMonitor) sleepUntilLocked(now time.Time) time.Duration {
	d := m.dueAt.Sub(now)
	if d > m.cfg.MaxSleep {
		return m.cfg.MaxSleep
	}
	return d
}

// startLoadLocked reads the schedule in the background. A forced load
// always re-arms; otherwise the monitor only re-arms when the anchor or the
// interval no longer match what it is running on.
func (m *FeedingMonitor) startLoadLocked(force bool) {
	if m.loading {
		return
	}
	m.loading = true
	m.loadedAt = m.clock.Now()

	gen := m.generation
	ctx := m.asyncCtx

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		loadCtx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
		defer cancel()

		s, repair, err := m.load(loadCtx)

		m.mu.Lock()
		defer m.mu.Unlock()

		if gen != m.generation || m.state == StateStopped {
			return
		}
		m.loading = false

		if err != nil {
			m.handleLoadErrorLocked(err)
			return
		}
		m.loadErr = ""

		if !force && !repair && m.state == StateArmed &&
			s.Anchor == m.schedule.Anchor && s.Interval == m.schedule.Interval {
			return
		}
		if !force {
			m.logger.Info("feeding schedule changed in the store",
				zap.Stringer("anchor", s.Anchor),
				zap.Int("interval_hours", int(s.Interval)),
			)
		}

		m.armLocked(*s, repair, m.clock.Now())
		m.signalWake()
	}()
}

// load reads the schedule. A next instant that cannot be reached from the
// anchor is reported through repair instead of failing the load.
func (m *FeedingMonitor) load(ctx context.Context) (*entities.Schedule, bool, error) {
	s, err := m.repo.Load(ctx)
	if err == nil || !errors.Is(err, entities.ErrInvalidInput) {
		return s, false, err
	}

	s, uncheckedErr := m.repo.LoadUnchecked(ctx)
	if uncheckedErr != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (m *FeedingMonitor) handleLoadErrorLocked(err error) {
	switch {
	case errors.Is(err, repository.ErrScheduleNotFound):
		if m.state != StateIdle {
			m.logger.Info("feeding schedule removed, monitor idle")
		} else {
			m.logger.Debug("no feeding schedule yet", zap.Error(err))
		}
		m.state = StateIdle
	case errors.Is(err, store.ErrUnavailable):
		m.logger.Warn("store unavailable, will retry schedule load", zap.Error(err))
	default:
		if msg := err.Error(); msg != m.loadErr {
			m.loadErr = msg
			m.logger.Warn("stored feeding schedule is invalid, waiting for a new one", zap.Error(err))
		}
	}
}

// armLocked resolves the schedule's next instant to a due wall-clock time.
//
// The stored next instant names an hour and minute without a date, so it is
// taken as its next wall-clock occurrence. That is only right if the
// occurrence one interval earlier is not still ahead; otherwise the value was
// left behind by a cycle that already passed (or cannot be reached at all)
// and the next instant is recomputed from the anchor, without firing.
func (m *FeedingMonitor) armLocked(s entities.Schedule, repair bool, now time.Time) {
	now = now.In(m.cfg.Location)
	minute := now.Truncate(time.Minute)

	// Results of writes issued for the previous schedule are dropped.
	m.generation++
	m.stored = s
	m.dirty = false

	due := entities.NextWallClock(s.NextInstant, minute)
	previous := due.Add(-time.Duration(s.Interval.WallHours()) * time.Hour)

	if repair || previous.After(minute) {
		next, err := entities.NextOccurrenceAfterNow(s.Anchor, s.Interval, entities.TimeOfDayOf(now))
		if err != nil {
			m.logger.Warn("cannot recover stored feeding schedule", zap.Error(err))
			m.state = StateIdle
			return
		}

		if next != s.NextInstant {
			m.logger.Info("stale next feeding time recomputed from the anchor",
				zap.Stringer("stored", s.NextInstant),
				zap.Stringer("next", next),
				zap.Bool("unreachable", repair),
			)
		}
		s.NextInstant = next
		due = entities.NextWallClock(next, minute)
	}

	m.schedule = s
	m.dueAt = due
	m.state = StateArmed

	if s.NextInstant != m.stored.NextInstant {
		m.persistLocked()
	}

	m.logger.Info("feeding monitor armed",
		zap.Stringer("anchor", s.Anchor),
		zap.Int("interval_hours", int(s.Interval)),
		zap.Stringer("next", s.NextInstant),
		zap.Time("due_at", m.dueAt),
	)
}

// fireLocked dispatches the feeding for the current due instant exactly once
// and advances the schedule past now.
func (m *FeedingMonitor) fireLocked(now time.Time) {
	m.state = StateFiring

	fired := m.schedule.NextInstant
	firedDue := m.dueAt

	nextDue, steps := entities.AdvanceDue(firedDue, m.schedule.Interval, now)
	next := entities.RollForward(fired, entities.Interval(steps*m.schedule.Interval.WallHours()))

	ev := entities.FeedingEvent{
		ID:        uuid.NewString(),
		Scheduled: fired,
		Next:      next,
		FiredAt:   now,
		Late:      now.Sub(firedDue) >= time.Minute,
		Skipped:   steps - 1,
	}

	m.dispatchLocked(ev)

	m.schedule.NextInstant = next
	m.dueAt = nextDue
	m.state = StateArmed

	m.persistLocked()
	m.appendEventLocked(ev)

	m.logger.Info("feeding time",
		zap.Stringer("scheduled", fired),
		zap.Bool("late", ev.Late),
		zap.Int("skipped", ev.Skipped),
		zap.Stringer("next", next),
		zap.Time("due_at", nextDue),
	)
}

func (m *FeedingMonitor) dispatchLocked(ev entities.FeedingEvent) {
	n := entities.Notification{
		Title:     entities.FeedingTitle,
		Body:      m.cfg.Messages[m.pick(len(m.cfg.Messages))],
		PlaySound: true,
	}
	pattern := m.cfg.VibrationPattern
	ctx := m.asyncCtx

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		dispatchCtx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
		defer cancel()

		if err := m.notifier.Notify(dispatchCtx, n); err != nil {
			m.logger.Error("failed to send feeding notification",
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
		}
		if err := m.vibrator.Vibrate(dispatchCtx, pattern); err != nil {
			m.logger.Error("failed to vibrate",
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
		}
	}()
}

// persistLocked writes the current next instant through the store. At most
// one write is in flight; a failed or superseded write leaves dirty set so
// the next tick retries with the latest value. The write only lands while
// the store still holds the schedule the value was computed from; if it
// changed, the monitor reloads instead.
func (m *FeedingMonitor) persistLocked() {
	m.dirty = true
	if m.saving {
		return
	}
	m.saving = true

	from := m.stored
	next := m.schedule.NextInstant
	gen := m.generation
	ctx := m.asyncCtx

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		saveCtx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
		defer cancel()

		err := m.repo.AdvanceNextInstant(saveCtx, from, next)

		m.mu.Lock()
		defer m.mu.Unlock()

		m.saving = false
		if gen != m.generation {
			return
		}

		switch {
		case err == nil:
			m.stored.NextInstant = next
			if m.schedule.NextInstant == next {
				m.dirty = false
			}
		case errors.Is(err, store.ErrConflict):
			m.dirty = false
			if m.state == StateStopped {
				return
			}
			m.logger.Info("feeding schedule changed in the store, reloading",
				zap.Stringer("next", next),
			)
			m.reloadLocked()
		default:
			m.logger.Warn("persisted next feeding time is stale, will retry",
				zap.Stringer("next", next),
				zap.Error(err),
			)
		}
	}()
}

func (m *FeedingMonitor) appendEventLocked(ev entities.FeedingEvent) {
	ctx := m.asyncCtx

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		logCtx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
		defer cancel()

		if err := m.repo.AppendFeedingEvent(logCtx, ev); err != nil {
			m.logger.Warn("failed to record feeding event",
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
		}
	}()
}

func (m *FeedingMonitor) signalWake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
