// Package notify reports participations to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"giveaway-bot/internal/actions"
	"giveaway-bot/internal/giveaway"
	"giveaway-bot/internal/locales"
	"giveaway-bot/internal/twitter"
	"giveaway-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// Event describes one counted participation.
type Event struct {
	Post     twitter.Post
	Category giveaway.Category
	Result   actions.Result
	Count    int
	Max      int
}

// Notifier receives bot events.
type Notifier interface {
	Participated(ctx context.Context, ev Event) error
	DailyLimitReached(ctx context.Context, limit int) error
}

// Nop discards all events.
type Nop struct{}

func (Nop) Participated(context.Context, Event) error     { return nil }
func (Nop) DailyLimitReached(context.Context, int) error { return nil }

// Telegram sends localized event messages to a single chat.
type Telegram struct {
	bot       telegoapi.BotAPI
	chatID    int64
	localizer *i18n.Localizer
	logger    *slog.Logger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(bot telegoapi.BotAPI, chatID int64, localizer *i18n.Localizer, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		bot:       bot,
		chatID:    chatID,
		localizer: localizer,
		logger:    logger.With("component", "notify"),
	}
}

// NewTelegramBot creates the telego client for token.
func NewTelegramBot(token string) (*telego.Bot, error) {
	bot, err := telego.NewBot(token, telego.WithDefaultLogger(false, false))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// Check verifies the bot token.
func (t *Telegram) Check(ctx context.Context) (*telego.User, error) {
	me, err := t.bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram getMe failed: %w", err)
	}
	return me, nil
}

// Participated reports a counted participation. Entries where one action
// failed get the partial message.
func (t *Telegram) Participated(ctx context.Context, ev Event) error {
	var text string
	if ev.Result.Succeeded >= 3 {
		text = locales.GetMessage(t.localizer, locales.MsgParticipated, map[string]interface{}{
			"Author":   ev.Post.AuthorUsername,
			"Category": string(ev.Category),
			"Count":    ev.Count,
			"Max":      ev.Max,
			"URL":      ev.Post.URL(),
		})
	} else {
		text = locales.GetMessage(t.localizer, locales.MsgParticipatedPartial, map[string]interface{}{
			"Author":    ev.Post.AuthorUsername,
			"Succeeded": ev.Result.Succeeded,
			"URL":       ev.Post.URL(),
		})
	}
	return t.send(ctx, text)
}

// DailyLimitReached reports that the quota is exhausted.
func (t *Telegram) DailyLimitReached(ctx context.Context, limit int) error {
	return t.send(ctx, locales.GetMessage(t.localizer, locales.MsgDailyLimitReached, map[string]interface{}{
		"Max": limit,
	}))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	params := tu.Message(tu.ID(t.chatID), text).WithLinkPreviewOptions(&telego.LinkPreviewOptions{IsDisabled: true})
	if _, err := t.bot.SendMessage(ctx, params); err != nil {
		err = fmt.Errorf("failed to send telegram notification: %w", err)
		t.logger.Error("notification failed", "chat_id", t.chatID, "error", err)
		sentry.CaptureException(err)
		return err
	}
	return nil
}
