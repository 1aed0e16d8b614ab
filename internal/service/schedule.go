package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/repository"
)

// DefaultInterval is assumed when an anchor is set before any interval.
const DefaultInterval entities.Interval = 1

// ErrIntervalNotSelectable is returned for intervals outside the picker range.
var ErrIntervalNotSelectable = fmt.Errorf("%w: interval must be between %d and %d hours",
	entities.ErrInvalidInput, entities.MinSelectableInterval, entities.MaxSelectableInterval)

// ScheduleService implements the user actions on the feeding schedule.
type ScheduleService struct {
	repo     ScheduleRepository
	clock    Clock
	location *time.Location
	logger   *zap.Logger
}

// NewScheduleService creates a ScheduleService.
func NewScheduleService(repo ScheduleRepository, clock Clock, location *time.Location, logger *zap.Logger) *ScheduleService {
	if location == nil {
		location = time.Local
	}
	return &ScheduleService{
		repo:     repo,
		clock:    clock,
		location: location,
		logger:   logger,
	}
}

// SetAnchor12 sets the anchor from a 12-hour clock reading.
func (s *ScheduleService) SetAnchor12(ctx context.Context, hour12, minute int, period entities.Period) (*entities.Schedule, error) {
	anchor, err := entities.To24Hour(hour12, minute, period)
	if err != nil {
		return nil, err
	}
	return s.SetAnchor(ctx, anchor)
}

// SetAnchor stores a new anchor time and recomputes the next instant.
// Without a stored interval the default of one hour is used.
func (s *ScheduleService) SetAnchor(ctx context.Context, anchor entities.TimeOfDay) (*entities.Schedule, error) {
	if err := anchor.Validate(); err != nil {
		return nil, err
	}

	interval, err := s.repo.LoadInterval(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrIntervalNotFound) {
			return nil, err
		}
		interval = DefaultInterval
	}

	return s.recompute(ctx, anchor, interval)
}

// SetInterval stores a new interval. When an anchor exists the whole
// schedule is recomputed; otherwise only the interval is stored and
// ErrAnchorNotFound is returned as an advisory.
func (s *ScheduleService) SetInterval(ctx context.Context, interval entities.Interval) (*entities.Schedule, error) {
	if err := interval.Validate(); err != nil {
		return nil, err
	}
	if !interval.Selectable() {
		return nil, fmt.Errorf("%w: got %d", ErrIntervalNotSelectable, int(interval))
	}

	anchor, err := s.repo.LoadAnchor(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrAnchorNotFound) {
			return nil, err
		}
		if err := s.repo.SaveInterval(ctx, interval); err != nil {
			return nil, err
		}
		s.logger.Info("feeding interval stored without anchor time",
			zap.Int("interval_hours", int(interval)),
		)
		return nil, repository.ErrAnchorNotFound
	}

	return s.recompute(ctx, anchor, interval)
}

// Current returns the stored schedule.
func (s *ScheduleService) Current(ctx context.Context) (*entities.Schedule, error) {
	return s.repo.Load(ctx)
}

// Upcoming lists the next count feeding times from now.
func (s *ScheduleService) Upcoming(ctx context.Context, count int) ([]entities.TimeOfDay, error) {
	schedule, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return entities.UpcomingOccurrences(schedule.Anchor, schedule.Interval, s.now(), count)
}

// SetFeedingAmount stores one of the feeding amount presets.
func (s *ScheduleService) SetFeedingAmount(ctx context.Context, label string) (entities.FeedingAmount, error) {
	amount, err := entities.FeedingAmountByLabel(label)
	if err != nil {
		return entities.FeedingAmount{}, err
	}
	if err := s.repo.SaveFeedingAmount(ctx, amount); err != nil {
		return entities.FeedingAmount{}, err
	}
	return amount, nil
}

// FeedingAmount returns the stored feeding amount.
func (s *ScheduleService) FeedingAmount(ctx context.Context) (entities.FeedingAmount, error) {
	return s.repo.LoadFeedingAmount(ctx)
}

func (s *ScheduleService) recompute(ctx context.Context, anchor entities.TimeOfDay, interval entities.Interval) (*entities.Schedule, error) {
	next, err := entities.NextOccurrenceAfterNow(anchor, interval, s.now())
	if err != nil {
		return nil, err
	}

	schedule := entities.Schedule{
		Anchor:      anchor,
		Interval:    interval,
		NextInstant: next,
	}
	if err := s.repo.Save(ctx, schedule); err != nil {
		return nil, err
	}

	s.logger.Info("feeding schedule updated",
		zap.Stringer("anchor", anchor),
		zap.Int("interval_hours", int(interval)),
		zap.Stringer("next", next),
	)

	return &schedule, nil
}

func (s *ScheduleService) now() entities.TimeOfDay {
	return entities.TimeOfDayOf(s.clock.Now().In(s.location))
}
