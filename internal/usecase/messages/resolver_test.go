package messages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dm-sender/internal/domain"
)

type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (f *fakeGenerator) Complete(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func candidates(texts ...string) []domain.MessageCandidate {
	out := make([]domain.MessageCandidate, 0, len(texts))
	for _, t := range texts {
		out = append(out, domain.MessageCandidate{Text: t})
	}
	return out
}

func TestCandidatesInlineWinsOverCategory(t *testing.T) {
	r := NewResolver(Config{
		Templates: map[string][]domain.MessageCandidate{"greeting": candidates("из категории")},
	}, zerolog.Nop())
	rec := domain.Recipient{ID: "1", Category: "greeting", Inline: candidates("личное")}
	got := r.Candidates(rec)
	if len(got) != 1 || got[0].Text != "личное" {
		t.Fatalf("личный список должен побеждать категорию: %v", got)
	}
}

func TestCandidatesUnknownCategoryFallsBackToDefaults(t *testing.T) {
	r := NewResolver(Config{
		Templates: map[string][]domain.MessageCandidate{"greeting": candidates("x")},
		Defaults:  candidates("по умолчанию"),
	}, zerolog.Nop())
	got := r.Candidates(domain.Recipient{ID: "1", Category: "nope"})
	if len(got) != 1 || got[0].Text != "по умолчанию" {
		t.Fatalf("ожидали список по умолчанию: %v", got)
	}
}

func TestResolveRotationUsesCursorModulo(t *testing.T) {
	r := NewResolver(Config{Defaults: candidates("a", "b")}, zerolog.Nop())
	rec := domain.Recipient{ID: "1"}

	for cursor, want := range map[uint64]string{0: "a", 1: "b", 2: "a", 5: "b"} {
		res, err := r.Resolve(context.Background(), rec, domain.PolicyRotate, cursor)
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if res.Candidate.Text != want {
			t.Fatalf("курсор %d: ожидали %q, получили %q", cursor, want, res.Candidate.Text)
		}
		if !res.Rotated {
			t.Fatalf("ротация должна помечать кандидата для сдвига курсора")
		}
	}
}

func TestResolveRandomizeNeverRotates(t *testing.T) {
	r := NewResolver(Config{Defaults: candidates("a", "b", "c")}, zerolog.Nop())
	r.randIntn = func(n int) int { return 2 }

	res, err := r.Resolve(context.Background(), domain.Recipient{ID: "1"}, domain.PolicyRandomize, 99)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if res.Candidate.Text != "c" {
		t.Fatalf("ожидали выбор по randIntn, получили %q", res.Candidate.Text)
	}
	if res.Rotated {
		t.Fatalf("случайный режим не должен двигать курсор")
	}
}

func TestResolveEmptyCandidateSet(t *testing.T) {
	r := NewResolver(Config{}, zerolog.Nop())
	_, err := r.Resolve(context.Background(), domain.Recipient{ID: "1"}, domain.PolicyRotate, 0)
	if !errors.Is(err, domain.ErrNoCandidates) {
		t.Fatalf("ожидали ErrNoCandidates, получили %v", err)
	}
}

func TestResolveAppendsTimestampAfterSelection(t *testing.T) {
	r := NewResolver(Config{Defaults: candidates("привет"), EnableTimestamp: true}, zerolog.Nop())
	fixed := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	res, err := r.Resolve(context.Background(), domain.Recipient{ID: "1"}, domain.PolicyRotate, 0)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.HasSuffix(res.Candidate.Text, "\n\n2026-03-14 15:09:26") {
		t.Fatalf("ожидали метку времени в конце: %q", res.Candidate.Text)
	}
}

func TestResolveGenerativeMode(t *testing.T) {
	gen := &fakeGenerator{text: "сгенерировано"}
	r := NewResolver(Config{
		Generator: gen,
		Prompts:   []string{"напиши что-нибудь"},
		Fallback:  []string{"запасной"},
	}, zerolog.Nop())

	res, err := r.Resolve(context.Background(), domain.Recipient{ID: "1"}, domain.PolicyRotate, 7)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if res.Candidate.Text != "сгенерировано" || res.Rotated {
		t.Fatalf("генеративный режим не должен трогать ротацию: %+v", res)
	}
	if gen.calls != 1 {
		t.Fatalf("ожидали один вызов генератора, получили %d", gen.calls)
	}
}

func TestResolveGenerativeFallbackOnError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	r := NewResolver(Config{
		Generator: gen,
		Prompts:   []string{"p"},
		Fallback:  []string{"запасной текст"},
	}, zerolog.Nop())

	res, err := r.Resolve(context.Background(), domain.Recipient{ID: "1"}, domain.PolicyRotate, 0)
	if err != nil {
		t.Fatalf("ошибка генерации должна гаситься запасным пулом: %v", err)
	}
	if res.Candidate.Text != "запасной текст" {
		t.Fatalf("ожидали запасное сообщение, получили %q", res.Candidate.Text)
	}
}
