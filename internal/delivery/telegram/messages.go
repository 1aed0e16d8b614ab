// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/repository"
	"github.com/aliskhannn/fish-feeder/internal/service"
	"github.com/aliskhannn/fish-feeder/internal/store"
)

const upcomingCount = 8

const (
	msgWelcome = "🐟 <b>Fish Feeder</b>\n\n" +
		"I will remind you when it is time to feed your fish.\n\n" + msgHelp

	msgHelp = "<b>Commands</b>\n" +
		"/set 8:00 AM — set the first feeding time\n" +
		"/interval 3 — feed every N hours (1 to 6)\n" +
		"/schedule — show the next feeding times\n" +
		"/amount — choose how much food to dispense"

	msgUseSet             = "Use: /set 8:00 AM or /set 20:00."
	msgInvalidTime        = "Invalid time. Example: /set 8:00 AM."
	msgInvalidInterval    = "Invalid interval. Choose a whole number of hours from 1 to 6."
	msgChooseInterval     = "How often should the fish be fed?"
	msgChooseAmount       = "How much food per feeding?"
	msgNoSchedule         = "No feeding time set yet. Use /set 8:00 AM to start."
	msgIntervalNoAnchor   = "Interval saved. No feeding time set yet, use /set to choose one."
	msgUnknownAmount      = "Unknown amount. Choose Little, Just Right or A Lot."
	msgInternalError      = "Something went wrong. Please try again later."
	msgUnknownCommand     = "Unknown command.\n\n" + msgHelp
	msgStoreUnavailable   = "The schedule store is not reachable right now. Please try again later."
	msgAmountSaved        = "Feeding amount set to <b>%s</b> (%d seconds)."
	msgScheduleSavedTitle = "✅ <b>Schedule saved</b>"
)

// formatNotification renders a notification as an HTML message.
func formatNotification(n entities.Notification) string {
	return fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(n.Title), html.EscapeString(n.Body))
}

// formatSchedule renders the schedule with its upcoming feeding times.
func formatSchedule(s *entities.Schedule, upcoming []entities.TimeOfDay) string {
	var sb strings.Builder

	sb.WriteString("🕒 <b>Feeding schedule</b>\n\n")
	fmt.Fprintf(&sb, "First feeding: <b>%s</b>\n", s.Anchor.Format12())
	fmt.Fprintf(&sb, "Every: <b>%s</b>\n", formatInterval(s.Interval))
	fmt.Fprintf(&sb, "Next feeding: <b>%s</b>\n", s.NextInstant.Format12())

	if len(upcoming) > 0 {
		sb.WriteString("\n<b>Upcoming</b>\n")
		for i, t := range upcoming {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, t.Format12())
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatInterval(i entities.Interval) string {
	if i == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", int(i))
}

// userMessage maps a service error to the text shown in the chat.
// ok is false for errors that should be logged as internal.
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, repository.ErrScheduleNotFound):
		return msgNoSchedule, true
	case errors.Is(err, repository.ErrAnchorNotFound):
		return msgIntervalNoAnchor, true
	case errors.Is(err, service.ErrIntervalNotSelectable),
		errors.Is(err, entities.ErrInvalidInterval):
		return msgInvalidInterval, true
	case errors.Is(err, entities.ErrInvalidInput):
		return msgInvalidTime, true
	case errors.Is(err, store.ErrUnavailable):
		return msgStoreUnavailable, false
	default:
		return msgInternalError, false
	}
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}
