package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ai-image-studio/internal/domain/ports/adapter"
)

var _ adapter.OpsAlerter = (*TelegramAlerter)(nil)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAlerter posts operational alerts to the admin chats.
type TelegramAlerter struct {
	bot     botSender
	chatIDs []int64
}

func NewTelegramAlerter(token string, chatIDs []int64) (*TelegramAlerter, error) {
	if token == "" {
		return nil, errors.New("telegram: empty token")
	}
	if len(chatIDs) == 0 {
		return nil, errors.New("telegram: no admin chat ids")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramAlerter{bot: bot, chatIDs: chatIDs}, nil
}

// Alert sends text to every admin chat and returns the first error after trying all of them.
func (t *TelegramAlerter) Alert(ctx context.Context, text string) error {
	var firstErr error
	for _, id := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("telegram: send to %d: %w", id, err)
		}
	}
	return firstErr
}
