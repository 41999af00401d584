package notify

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	tele "gopkg.in/telebot.v3"
	"youtube-stream-watcher/templates"
)

// Telegram sends plain-text messages to one chat through a bot.
type Telegram struct {
	bot  *tele.Bot
	chat tele.ChatID
}

// NewTelegram builds an offline bot: it only sends, it never polls updates.
// An empty apiURL selects the public Bot API.
func NewTelegram(token string, chatId int64, apiURL string) (*Telegram, error) {
	bot, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error during creation of a new bot")
	}
	return &Telegram{bot: bot, chat: tele.ChatID(chatId)}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func telegramMessage(m Message) string {
	tier := m.Tier()
	scheduledAt := m.ScheduledAt
	if scheduledAt == "" {
		scheduledAt = "-"
	}
	status := m.Status
	if status == "" {
		status = "unknown"
	}
	return fmt.Sprintf(templates.Telegram, m.Platform, m.ChannelTitle, m.Title, status, tier.Name, scheduledAt, m.StreamURL())
}

// Send ignores ctx; telebot has no per-request context.
func (t *Telegram) Send(_ context.Context, m Message) error {
	_, err := t.bot.Send(t.chat, telegramMessage(m))
	if err != nil {
		return errors.Wrapf(err, "unable to send message to chat %v", int64(t.chat))
	}
	return nil
}
