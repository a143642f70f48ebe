package notify

import (
	gobot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Telegram sends HTML messages to a single chat. Sends run on their own
// goroutine; failures are logged and dropped.
type Telegram struct {
	api    *gobot.BotAPI
	chatID int64
}

// NewTelegram connects to the bot API. An empty token yields a Nop so the
// caller can skip the nil check.
func NewTelegram(token string, chatID int64) Notifier {
	if token == "" || chatID == 0 {
		log.Warn().Msg("TG token or chat id empty: notifications disabled")
		return Nop{}
	}
	api, err := gobot.NewBotAPI(token)
	if err != nil {
		log.Error().Err(err).Msg("telegram connect failed: notifications disabled")
		return Nop{}
	}
	api.Debug = false
	log.Info().Str("@", api.Self.UserName).Msg("Telegram connected")
	return &Telegram{api: api, chatID: chatID}
}

func (t *Telegram) Notify(text string) {
	go func() {
		msg := gobot.NewMessage(t.chatID, text)
		msg.ParseMode = gobot.ModeHTML
		if _, err := t.api.Send(msg); err != nil {
			log.Error().Err(err).Msg("send tg msg")
		}
	}()
}
