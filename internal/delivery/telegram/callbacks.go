package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
)

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	var (
		text string
		kb   *tgbotapi.InlineKeyboardMarkup
		err  error
	)

	data := decodeCallback(cb.Data)

	switch data.Action {
	case actionInterval:
		text, kb, err = h.handleIntervalCallback(ctx, data)
	case actionAmount:
		text, kb, err = h.handleAmountCallback(ctx, data)
	case actionSchedule:
		text, kb, err = h.handleScheduleCallback(ctx)
	default:
		h.logger.Debug("unknown callback", zap.String("data", cb.Data))
		h.answer(cb)
		return
	}

	if err != nil {
		var expected bool
		text, expected = userMessage(err)
		if !expected {
			h.logger.Error("callback error",
				zap.String("data", cb.Data),
				zap.Error(err),
			)
		}
		kb = nil
	}

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		edit.ReplyMarkup = kb
	}

	h.send(edit)
	h.answer(cb)
}

// answer removes the loading indicator on the pressed button.
func (h *Handler) answer(cb *tgbotapi.CallbackQuery) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		h.logger.Warn("callback answer error", zap.Error(err))
	}
}

func (h *Handler) handleIntervalCallback(ctx context.Context, data callbackData) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	if len(data.Params) != 1 {
		return "", nil, entities.ErrInvalidInterval
	}
	hours, err := strconv.Atoi(data.Params[0])
	if err != nil {
		return "", nil, entities.ErrInvalidInterval
	}

	if _, err := h.scheduleService.SetInterval(ctx, entities.Interval(hours)); err != nil {
		return "", nil, err
	}

	text, err := h.scheduleText(ctx)
	if err != nil {
		return "", nil, err
	}
	kb := buildScheduleKeyboard()
	return msgScheduleSavedTitle + "\n\n" + text, &kb, nil
}

func (h *Handler) handleAmountCallback(ctx context.Context, data callbackData) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	if len(data.Params) != 1 {
		return msgUnknownAmount, nil, nil
	}

	text, err := h.applyAmount(ctx, data.Params[0])
	if err != nil {
		return "", nil, err
	}

	current, err := h.scheduleService.FeedingAmount(ctx)
	if err != nil {
		return text, nil, nil
	}
	kb := buildAmountKeyboard(current)
	return text, &kb, nil
}

func (h *Handler) handleScheduleCallback(ctx context.Context) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	text, err := h.scheduleText(ctx)
	if err != nil {
		return "", nil, err
	}
	kb := buildScheduleKeyboard()
	return text, &kb, nil
}
