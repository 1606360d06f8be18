package twitterapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"dm-sender/internal/infra/metrics"
)

const (
	defaultAPIBaseURL    = "https://api.twitter.com"
	defaultUploadBaseURL = "https://upload.twitter.com"
)

// Client выполняет запросы к Twitter API: загрузка медиа через v1.1,
// личные сообщения через v2. Все запросы подписываются OAuth 1.0a.
type Client struct {
	http          *http.Client
	apiBaseURL    string
	uploadBaseURL string
}

// Credentials — ключи приложения и токены пользователя.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// NewClient создаёт клиента с OAuth1-подписью запросов.
func NewClient(creds Credentials, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := cfg.Client(oauth1.NoContext, token)
	httpClient.Timeout = timeout
	return &Client{
		http:          httpClient,
		apiBaseURL:    defaultAPIBaseURL,
		uploadBaseURL: defaultUploadBaseURL,
	}
}

// APIError описывает ответ Twitter со статусом >= 400.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("twitter: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("twitter: %s (status %d)", e.Message, e.StatusCode)
}

// VerifyCredentials проверяет учётные данные через v1.1.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	endpoint := c.apiBaseURL + "/1.1/account/verify_credentials.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("twitter: build request: %w", err)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("twitter", "verify_credentials", "v1.1", start, err)
		return fmt.Errorf("twitter: do request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp.StatusCode, body)
		metrics.ObserveNetworkRequest("twitter", "verify_credentials", "v1.1", start, apiErr)
		return apiErr
	}
	metrics.ObserveNetworkRequest("twitter", "verify_credentials", "v1.1", start, nil)
	return nil
}

// UploadMedia загружает файл через v1.1 и возвращает media_id.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("twitter: open media: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("twitter: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("twitter: read media: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("twitter: finalize form: %w", err)
	}

	endpoint := c.uploadBaseURL + "/1.1/media/upload.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("twitter: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("twitter", "media_upload", "v1.1", start, err)
		return "", fmt.Errorf("twitter: do request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("twitter", "media_upload", "v1.1", start, err)
		return "", fmt.Errorf("twitter: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp.StatusCode, body)
		metrics.ObserveNetworkRequest("twitter", "media_upload", "v1.1", start, apiErr)
		return "", apiErr
	}
	var uploaded struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		metrics.ObserveNetworkRequest("twitter", "media_upload", "v1.1", start, err)
		return "", fmt.Errorf("twitter: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("twitter", "media_upload", "v1.1", start, nil)
	if uploaded.MediaIDString == "" {
		return "", fmt.Errorf("twitter: пустой media_id в ответе")
	}
	return uploaded.MediaIDString, nil
}

type dmRequest struct {
	Text        string         `json:"text"`
	Attachments []dmAttachment `json:"attachments,omitempty"`
}

type dmAttachment struct {
	MediaID string `json:"media_id"`
}

// CreateDirectMessage отправляет личное сообщение через v2.
func (c *Client) CreateDirectMessage(ctx context.Context, participantID, text, mediaID string) error {
	payload := dmRequest{Text: text}
	if mediaID != "" {
		payload.Attachments = []dmAttachment{{MediaID: mediaID}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("twitter: marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/2/dm_conversations/with/%s/messages", c.apiBaseURL, participantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("twitter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("twitter", "create_dm", "v2", start, err)
		return fmt.Errorf("twitter: do request: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		metrics.ObserveNetworkRequest("twitter", "create_dm", "v2", start, apiErr)
		return apiErr
	}
	metrics.ObserveNetworkRequest("twitter", "create_dm", "v2", start, nil)
	return nil
}

// parseAPIError разбирает тела ошибок обоих поколений API.
func parseAPIError(status int, body []byte) *APIError {
	var v2 struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &v2); err == nil {
		msg := strings.TrimSpace(v2.Detail)
		if msg == "" && len(v2.Errors) > 0 {
			msg = strings.TrimSpace(v2.Errors[0].Message)
		}
		if msg == "" {
			msg = strings.TrimSpace(v2.Title)
		}
		if msg != "" {
			return &APIError{StatusCode: status, Message: msg}
		}
	}
	return &APIError{StatusCode: status}
}
