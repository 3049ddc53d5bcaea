package telegoapi

import (
	"context"

	"github.com/mymmrac/telego"
)

// BotAPI defines the Telegram operations the notifier uses.
// This allows using both the real telego.Bot and mocks.
type BotAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	GetMe(ctx context.Context) (*telego.User, error)
}
