package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/repository"
)

func (h *Handler) setHandler(args string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		args = strings.TrimSpace(args)
		if args == "" {
			h.send(newHTMLMessage(chatID, msgUseSet))
			return nil
		}

		anchor, err := entities.ParseTimeOfDay(args)
		if err != nil {
			return err
		}

		if _, err := h.scheduleService.SetAnchor(ctx, anchor); err != nil {
			return err
		}

		return h.replySchedule(ctx, chatID, msgScheduleSavedTitle+"\n\n")
	}
}

func (h *Handler) intervalHandler(args string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		args = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(args), "h"))
		if args == "" {
			var current entities.Interval
			s, err := h.scheduleService.Current(ctx)
			switch {
			case err == nil:
				current = s.Interval
			case !errors.Is(err, repository.ErrScheduleNotFound):
				return err
			}

			msg := newHTMLMessage(chatID, msgChooseInterval)
			msg.ReplyMarkup = buildIntervalKeyboard(current)
			h.send(msg)
			return nil
		}

		hours, err := strconv.Atoi(args)
		if err != nil {
			return fmt.Errorf("%w: %q", entities.ErrInvalidInterval, args)
		}

		return h.applyInterval(ctx, chatID, entities.Interval(hours))
	}
}

func (h *Handler) applyInterval(ctx context.Context, chatID int64, interval entities.Interval) error {
	if _, err := h.scheduleService.SetInterval(ctx, interval); err != nil {
		return err
	}
	return h.replySchedule(ctx, chatID, msgScheduleSavedTitle+"\n\n")
}

func (h *Handler) scheduleHandler() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		return h.replySchedule(ctx, chatID, "")
	}
}

func (h *Handler) amountHandler(args string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		args = strings.TrimSpace(args)
		if args == "" {
			current, err := h.scheduleService.FeedingAmount(ctx)
			if err != nil {
				return err
			}

			msg := newHTMLMessage(chatID, msgChooseAmount)
			msg.ReplyMarkup = buildAmountKeyboard(current)
			h.send(msg)
			return nil
		}

		text, err := h.applyAmount(ctx, args)
		if err != nil {
			return err
		}
		h.send(newHTMLMessage(chatID, text))
		return nil
	}
}

func (h *Handler) applyAmount(ctx context.Context, label string) (string, error) {
	amount, err := h.scheduleService.SetFeedingAmount(ctx, label)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidInput) {
			return msgUnknownAmount, nil
		}
		return "", err
	}
	return fmt.Sprintf(msgAmountSaved, amount.Label, amount.Duration), nil
}

func (h *Handler) replySchedule(ctx context.Context, chatID int64, prefix string) error {
	text, err := h.scheduleText(ctx)
	if err != nil {
		return err
	}

	msg := newHTMLMessage(chatID, prefix+text)
	msg.ReplyMarkup = buildScheduleKeyboard()
	h.send(msg)
	return nil
}

func (h *Handler) scheduleText(ctx context.Context) (string, error) {
	s, err := h.scheduleService.Current(ctx)
	if err != nil {
		return "", err
	}

	upcoming, err := h.scheduleService.Upcoming(ctx, upcomingCount)
	if err != nil {
		return "", err
	}

	return formatSchedule(s, upcoming), nil
}
