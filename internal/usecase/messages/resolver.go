package messages

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"dm-sender/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05"

// Config описывает источники сообщений.
type Config struct {
	// Templates — глобальная карта категория -> список кандидатов.
	Templates map[string][]domain.MessageCandidate
	// Defaults используется, когда категория получателя не найдена.
	Defaults []domain.MessageCandidate
	// Generator включает генеративный режим, когда не nil.
	Generator domain.TextGenerator
	// Prompts — пул промптов генеративного режима.
	Prompts []string
	// Fallback — обязательный пул запасных сообщений при ошибке генерации.
	Fallback []string
	// EnableTimestamp добавляет строку со временем после выбора кандидата.
	EnableTimestamp bool
}

// Resolution — выбранный кандидат и признак участия в ротации.
type Resolution struct {
	Candidate domain.MessageCandidate
	// Index — позиция кандидата в списке; имеет смысл только при ротации.
	Index int
	// Rotated истинно, когда после успешной отправки курсор должен
	// сдвинуться. Случайный и генеративный режимы курсор не трогают.
	Rotated bool
}

// Resolver выбирает текст сообщения для получателя за цикл.
type Resolver struct {
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
	randIntn func(int) int
}

// NewResolver создаёт резолвер.
func NewResolver(cfg Config, log zerolog.Logger) *Resolver {
	return &Resolver{
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		randIntn: rand.Intn,
	}
}

// Candidates возвращает список кандидатов получателя: личный список
// всегда приоритетнее категории, отсутствующая категория заменяется
// списком по умолчанию.
func (r *Resolver) Candidates(rec domain.Recipient) []domain.MessageCandidate {
	if len(rec.Inline) > 0 {
		return rec.Inline
	}
	if list, ok := r.cfg.Templates[rec.Category]; ok && len(list) > 0 {
		return list
	}
	return r.cfg.Defaults
}

// Resolve выбирает кандидата по политике. cursor — текущее значение
// курсора ротации получателя, остаток берётся по длине списка.
func (r *Resolver) Resolve(ctx context.Context, rec domain.Recipient, policy domain.Policy, cursor uint64) (Resolution, error) {
	var res Resolution
	if r.cfg.Generator != nil {
		res = r.generate(ctx)
	} else {
		candidates := r.Candidates(rec)
		if len(candidates) == 0 {
			return Resolution{}, fmt.Errorf("%w: %s", domain.ErrNoCandidates, rec.ID)
		}
		switch policy {
		case domain.PolicyRandomize:
			res = Resolution{Candidate: candidates[r.randIntn(len(candidates))]}
		default:
			idx := int(cursor % uint64(len(candidates)))
			res = Resolution{Candidate: candidates[idx], Index: idx, Rotated: true}
		}
	}

	if res.Candidate.Text == "" {
		return Resolution{}, fmt.Errorf("%w: пустой текст у %s", domain.ErrNoCandidates, rec.ID)
	}
	if r.cfg.EnableTimestamp {
		// Метка времени добавляется после выбора, чтобы кандидат в
		// хранимом списке оставался без неё.
		res.Candidate.Text = res.Candidate.Text + "\n\n" + r.now().Format(timestampLayout)
	}
	return res, nil
}

// generate строит сообщение генератором, при любой ошибке переключаясь
// на пул запасных сообщений.
func (r *Resolver) generate(ctx context.Context) Resolution {
	if len(r.cfg.Prompts) > 0 {
		prompt := r.cfg.Prompts[r.randIntn(len(r.cfg.Prompts))]
		text, err := r.cfg.Generator.Complete(ctx, prompt)
		if err == nil {
			return Resolution{Candidate: domain.MessageCandidate{Text: text}}
		}
		r.log.Warn().Err(err).Msg("генерация не удалась, используем запасное сообщение")
	}
	if len(r.cfg.Fallback) == 0 {
		return Resolution{}
	}
	text := r.cfg.Fallback[r.randIntn(len(r.cfg.Fallback))]
	return Resolution{Candidate: domain.MessageCandidate{Text: text}}
}
