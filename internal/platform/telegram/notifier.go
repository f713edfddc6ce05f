package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/reminder"
)

// Callback data attached to the reminder buttons.
const (
	CallbackReveal = "review:reveal"
	CallbackGiveUp = "review:give_up"
)

// Bot is the part of the Bot API the notifier needs; *tgbotapi.BotAPI
// satisfies it.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Verify interface compliance at compile time
var _ reminder.Notifier = (*Notifier)(nil)

// Notifier sends reminders as chat messages showing the first item of the
// session started for the learner.
type Notifier struct {
	bot    Bot
	logger *slog.Logger
}

// New connects to the Bot API with token.
func New(token string, logger *slog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %s", redact.Error(err))
	}
	return NewNotifier(bot, logger), nil
}

// NewNotifier creates a Notifier around bot.
func NewNotifier(bot Bot, logger *slog.Logger) *Notifier {
	if bot == nil {
		panic("bot cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		bot:    bot,
		logger: logger.With(slog.String("component", "telegram_notifier")),
	}
}

// Notify implements reminder.Notifier. The returned reference is
// "<chat id>:<message id>".
func (n *Notifier) Notify(ctx context.Context, r reminder.Reminder) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msg := tgbotapi.NewMessage(r.UserID, render(r))
	if r.View != nil && r.View.ItemID != uuid.Nil {
		msg.ReplyMarkup = keyboard(r.View.Mode)
	}

	sent, err := n.bot.Send(msg)
	if err != nil {
		if unreachable(err) {
			return "", fmt.Errorf("%w: %s", reminder.ErrRecipientUnreachable, redact.Error(err))
		}
		return "", fmt.Errorf("failed to send reminder: %s", redact.Error(err))
	}

	n.logger.Debug("reminder delivered",
		slog.Int64("user_id", r.UserID),
		slog.Int("message_id", sent.MessageID))
	return fmt.Sprintf("%d:%d", r.UserID, sent.MessageID), nil
}

func render(r reminder.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time to review! %d %s due.", r.DueCount, plural(r.DueCount, "card", "cards"))
	if r.View != nil && r.View.Prompt != "" {
		fmt.Fprintf(&b, "\n\n%d/%d\n%s", r.View.Position+1, r.View.Total, r.View.Prompt)
		if r.View.Mode == domain.ReviewModeTyping {
			b.WriteString("\n\nType the answer.")
		}
	}
	return b.String()
}

func keyboard(mode domain.ReviewMode) tgbotapi.InlineKeyboardMarkup {
	if mode == domain.ReviewModeTyping {
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Don't remember", CallbackGiveUp),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Show answer", CallbackReveal),
	))
}

// unreachable reports whether the Bot API refused delivery for good: the
// learner blocked the bot, deleted their account, or the chat is gone.
func unreachable(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		var value tgbotapi.Error
		if !errors.As(err, &value) {
			return false
		}
		apiErr = &value
	}
	switch apiErr.Code {
	case 403:
		return true
	case 400:
		return strings.Contains(strings.ToLower(apiErr.Message), "chat not found")
	default:
		return false
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
