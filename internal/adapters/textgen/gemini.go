package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dm-sender/internal/domain"
	"dm-sender/internal/infra/gemini"
)

// Личные сообщения ограничены 10 000 символов; режем с запасом.
const maxMessageRunes = 9500

type generateClient interface {
	GenerateContent(ctx context.Context, model string, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error)
}

// Gemini реализует domain.TextGenerator через generateContent.
type Gemini struct {
	client  generateClient
	model   string
	timeout time.Duration
}

var _ domain.TextGenerator = (*Gemini)(nil)

// NewGemini создаёт провайдер генерации.
func NewGemini(client generateClient, model string, timeout time.Duration) *Gemini {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gemini{client: client, model: model, timeout: timeout}
}

// Complete генерирует текст сообщения по промпту.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := gemini.GenerateContentRequest{
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: prompt}}},
		},
	}
	resp, err := g.client.GenerateContent(ctx, g.model, req)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini completion: пустой ответ")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini completion: пустой текст")
	}
	return clipRunes(text, maxMessageRunes), nil
}

func clipRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
