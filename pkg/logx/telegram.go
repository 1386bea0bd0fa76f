package logx

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// telegramSink forwards log records at or above a minimum level to an
// operations chat. Sends happen off the logging goroutine and are rate
// limited; records over the limit are dropped rather than queued.
type telegramSink struct {
	bot     *tele.Bot
	chat    tele.ChatID
	min     zerolog.Level
	limiter *rate.Limiter
}

func newTelegramSink(cfg TelegramConfig) (*telegramSink, error) {
	if strings.TrimSpace(cfg.BotToken) == "" || cfg.ChatID == 0 {
		return nil, errors.New("telegram sink: bot_token and chat_id required")
	}
	// Send-only: no poller, the bot never consumes updates.
	bot, err := tele.NewBot(tele.Settings{Token: cfg.BotToken})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &telegramSink{
		bot:     bot,
		chat:    tele.ChatID(cfg.ChatID),
		min:     parseLevel(cfg.MinLevel, zerolog.WarnLevel),
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (t *telegramSink) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < t.min || msg == "" {
		return
	}
	if !t.limiter.Allow() {
		return
	}
	text := levelBadge(level) + msg
	go func() {
		_, _ = t.bot.Send(t.chat, text, &tele.SendOptions{DisableWebPagePreview: true})
	}()
}

func levelBadge(level zerolog.Level) string {
	switch {
	case level >= zerolog.ErrorLevel:
		return "🚨 "
	case level >= zerolog.WarnLevel:
		return "⚠️ "
	default:
		return "ℹ️ "
	}
}
