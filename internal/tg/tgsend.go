package tg

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/school-attendance/internal/observability"
)

// API — то, чем пользуемся из *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

// New — клиент бота по токену.
func New(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

// Считаем системными: 5xx, 429, timeout. 400-ки и типичные телеграм-валидации в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	if strings.Contains(s, "Bad Request") ||
		strings.Contains(s, "chat not found") ||
		strings.Contains(s, "can't parse entities") {
		return false
	}
	return strings.Contains(s, "429") || strings.Contains(s, "500") || strings.Contains(s, "502") ||
		strings.Contains(s, "503") || strings.Contains(s, "timeout")
}

func Send(bot API, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return m, err
}

func Request(bot API, req tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r, err := bot.Request(req)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return r, err
}
