package textgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dm-sender/internal/infra/gemini"
)

type fakeClient struct {
	text string
	err  error
}

func (f *fakeClient) GenerateContent(context.Context, string, gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
	if f.err != nil {
		return gemini.GenerateContentResponse{}, f.err
	}
	return gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{
			{Content: gemini.Content{Parts: []gemini.Part{{Text: f.text}}}},
		},
	}, nil
}

func TestCompleteReturnsTrimmedText(t *testing.T) {
	g := NewGemini(&fakeClient{text: "  привет, как дела?  "}, "", 0)
	got, err := g.Complete(context.Background(), "поздоровайся")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got != "привет, как дела?" {
		t.Fatalf("неожиданный текст: %q", got)
	}
}

func TestCompleteClipsLongText(t *testing.T) {
	g := NewGemini(&fakeClient{text: strings.Repeat("а", 12000)}, "", 0)
	got, err := g.Complete(context.Background(), "длинно")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	runes := []rune(got)
	if len(runes) != maxMessageRunes+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("ожидали обрезку до %d рун с многоточием, получили %d", maxMessageRunes, len(runes))
	}
}

func TestCompletePropagatesError(t *testing.T) {
	g := NewGemini(&fakeClient{err: errors.New("quota exceeded")}, "", 0)
	if _, err := g.Complete(context.Background(), "x"); err == nil {
		t.Fatalf("ожидали ошибку генерации")
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	g := NewGemini(&fakeClient{text: "   "}, "", 0)
	if _, err := g.Complete(context.Background(), "x"); err == nil {
		t.Fatalf("ожидали ошибку на пустой ответ")
	}
}
