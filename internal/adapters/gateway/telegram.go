package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dm-sender/internal/domain"
)

// Telegram реализует domain.MessagingGateway через Bot API. Получатель —
// chat id в строковом виде. Файл уходит вместе с сообщением, поэтому
// UploadMedia лишь проверяет его наличие и возвращает путь как handle.
type Telegram struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

var _ domain.MessagingGateway = (*Telegram)(nil)

// NewTelegram создаёт шлюз.
func NewTelegram(bot *tgbotapi.BotAPI, log zerolog.Logger) *Telegram {
	return &Telegram{bot: bot, log: log}
}

// Authenticate проверяет токен бота.
func (t *Telegram) Authenticate(_ context.Context) error {
	user, err := t.bot.GetMe()
	if err != nil {
		return fmt.Errorf("проверка токена бота: %w", err)
	}
	t.log.Info().Str("bot", user.UserName).Msg("telegram: аутентификация успешна")
	return nil
}

// UploadMedia проверяет файл и возвращает путь как handle.
func (t *Telegram) UploadMedia(_ context.Context, path string) (domain.MediaHandle, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("файл вложения недоступен: %w", err)
	}
	return domain.MediaHandle(path), nil
}

// SendDirectMessage отправляет сообщение в чат, с фото или без.
func (t *Telegram) SendDirectMessage(_ context.Context, recipientID, text string, media domain.MediaHandle) error {
	chatID, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return fmt.Errorf("некорректный chat id %q: %w", recipientID, err)
	}

	var chattable tgbotapi.Chattable
	if media != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(string(media)))
		photo.Caption = text
		chattable = photo
	} else {
		chattable = tgbotapi.NewMessage(chatID, text)
	}

	if _, err := t.bot.Send(chattable); err != nil {
		return fmt.Errorf("отправка сообщения: %w", classifyTelegram(err))
	}
	return nil
}

// classifyTelegram переводит коды Bot API в доменные ошибки.
func classifyTelegram(err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		switch tgErr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", domain.ErrForbidden, err)
		}
	}
	return err
}
