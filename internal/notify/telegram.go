// Package notify pushes operator alerts to a Telegram chat.
//
// The frame runs headless in a remote cabin; the error log file is only
// reachable by ssh, so error-level events are mirrored to the owner's chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token  string
	ChatID int64
}

type Telegram struct {
	bot  *tele.Bot
	chat tele.ChatID
}

// NewTelegram connects the bot. Callers should treat failure here as a
// degraded mode, not a fatal one: the display works fine without alerts.
func NewTelegram(cfg Config) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("notify: telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("notify: telegram chat_id is required")
	}
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("notify: connect telegram: %w", err)
	}
	return &Telegram{bot: bot, chat: tele.ChatID(cfg.ChatID)}, nil
}

// Send implements logx.Sender.
func (t *Telegram) Send(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// telebot calls are not context-aware; rely on its HTTP client timeout.
	_, err := t.bot.Send(t.chat, truncate(msg, 3500))
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
