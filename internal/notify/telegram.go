package notify

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender posts HTML messages to one chat, optionally into a forum topic.
type TelegramSender struct {
	api    *tgbotapi.BotAPI
	chatID string
}

func NewTelegramSender(token, chatID string) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	return newTelegramSenderWithAPI(api, chatID), nil
}

func newTelegramSenderWithAPI(api *tgbotapi.BotAPI, chatID string) *TelegramSender {
	api.Debug = false
	log.Printf("🤖 Authorized on account %s", api.Self.UserName)
	return &TelegramSender{
		api:    api,
		chatID: chatID,
	}
}

// SendChat sends text to the configured chat. A zero topicID posts to the main chat.
func (t *TelegramSender) SendChat(ctx context.Context, text string, topicID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// tgbotapi v5.5 predates forum topics, so the request is built by hand.
	params := tgbotapi.Params{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": tgbotapi.ModeHTML,
	}
	params.AddBool("disable_web_page_preview", true)
	params.AddNonZero64("message_thread_id", topicID)

	log.Printf("Attempting to send Telegram message to chat ID %s (topic %d)...", t.chatID, topicID)
	if _, err := t.api.MakeRequest("sendMessage", params); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}
