package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
)

// buildIntervalKeyboard offers every selectable interval, marking the current one.
func buildIntervalKeyboard(current entities.Interval) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for h := entities.MinSelectableInterval; h <= entities.MaxSelectableInterval; h++ {
		label := fmt.Sprintf("%dh", h)
		if entities.Interval(h) == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, buildIntervalCallback(h)))
	}

	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// buildAmountKeyboard lists the feeding amount presets, one per row.
func buildAmountKeyboard(current entities.FeedingAmount) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range entities.FeedingAmounts() {
		label := fmt.Sprintf("%s (%ds)", a.Label, a.Duration)
		if a.Label == current.Label {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, buildAmountCallback(a.Label)),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func buildScheduleKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", buildScheduleCallback()),
		),
	)
}
