package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"dm-sender/internal/domain"
	"dm-sender/internal/infra/twitterapi"
)

// Twitter реализует domain.MessagingGateway поверх Twitter API.
type Twitter struct {
	client *twitterapi.Client
	log    zerolog.Logger
}

var _ domain.MessagingGateway = (*Twitter)(nil)

// NewTwitter создаёт шлюз.
func NewTwitter(client *twitterapi.Client, log zerolog.Logger) *Twitter {
	return &Twitter{client: client, log: log}
}

// Authenticate проверяет учётные данные.
func (t *Twitter) Authenticate(ctx context.Context) error {
	if err := t.client.VerifyCredentials(ctx); err != nil {
		return fmt.Errorf("проверка учётных данных: %w", err)
	}
	t.log.Info().Msg("twitter: аутентификация успешна")
	return nil
}

// UploadMedia загружает файл и возвращает media_id.
func (t *Twitter) UploadMedia(ctx context.Context, path string) (domain.MediaHandle, error) {
	mediaID, err := t.client.UploadMedia(ctx, path)
	if err != nil {
		return "", fmt.Errorf("загрузка медиа: %w", classify(err))
	}
	return domain.MediaHandle(mediaID), nil
}

// SendDirectMessage отправляет личное сообщение, опционально с медиа.
func (t *Twitter) SendDirectMessage(ctx context.Context, recipientID, text string, media domain.MediaHandle) error {
	if err := t.client.CreateDirectMessage(ctx, recipientID, text, string(media)); err != nil {
		return fmt.Errorf("отправка DM: %w", classify(err))
	}
	return nil
}

// classify переводит HTTP-статусы платформы в доменные ошибки.
func classify(err error) error {
	var apiErr *twitterapi.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", domain.ErrForbidden, err)
		}
	}
	return err
}
