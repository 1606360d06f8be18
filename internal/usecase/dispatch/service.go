package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dm-sender/internal/domain"
	"dm-sender/internal/infra/metrics"
	"dm-sender/internal/usecase/messages"
)

// MediaAttacher подбирает и загружает изображения для сообщений.
type MediaAttacher interface {
	Resolve(imageRef string) (string, bool)
	PickRandom() (string, bool)
	Upload(ctx context.Context, path string) (domain.MediaHandle, error)
}

// Options задают поведение цикла.
type Options struct {
	// Policy — стратегия выбора сообщений.
	Policy domain.Policy
	// SendDelay — пауза между последовательными попытками отправки.
	// Это контракт пейсинга платформы, а не деталь реализации.
	SendDelay time.Duration
	// RateLimitCooldown — пауза цикла после сигнала о лимите запросов.
	RateLimitCooldown time.Duration
	// AttachProbability — вероятность вложения в генеративном режиме.
	AttachProbability float64
}

// DefaultSendDelay соответствует историческому пейсингу рассылки.
const DefaultSendDelay = 3 * time.Second

// DefaultRateLimitCooldown — пауза после ответа 429.
const DefaultRateLimitCooldown = 15 * time.Minute

// Service выполняет один цикл рассылки: проходит получателей по порядку,
// изолирует ошибки каждого и сводит итоги. Сбой одного получателя
// никогда не останавливает остальных.
type Service struct {
	roster   *domain.Roster
	resolver *messages.Resolver
	attacher MediaAttacher
	gateway  domain.MessagingGateway
	rotation domain.RotationStore
	events   domain.EventSink     // может быть nil
	recorder domain.CycleRecorder // может быть nil
	log      zerolog.Logger
	opts     Options

	pause     func(ctx context.Context, d time.Duration)
	randFloat func() float64
}

// NewService создаёт сервис рассылки.
func NewService(roster *domain.Roster, resolver *messages.Resolver, attacher MediaAttacher, gateway domain.MessagingGateway, rotation domain.RotationStore, events domain.EventSink, recorder domain.CycleRecorder, log zerolog.Logger, opts Options) *Service {
	if opts.SendDelay <= 0 {
		opts.SendDelay = DefaultSendDelay
	}
	if opts.RateLimitCooldown <= 0 {
		opts.RateLimitCooldown = DefaultRateLimitCooldown
	}
	return &Service{
		roster:    roster,
		resolver:  resolver,
		attacher:  attacher,
		gateway:   gateway,
		rotation:  rotation,
		events:    events,
		recorder:  recorder,
		log:       log,
		opts:      opts,
		pause:     sleepCtx,
		randFloat: rand.Float64,
	}
}

// Run выполняет один цикл. Курсоры ротации читаются целиком до начала и
// записываются целиком после завершения.
func (s *Service) Run(ctx context.Context) (domain.CycleSummary, error) {
	summary := domain.CycleSummary{ID: uuid.NewString(), StartedAt: time.Now()}

	cursors, err := s.rotation.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("загрузка курсоров ротации: %w", err)
	}

	recipients := s.roster.List()
	s.log.Info().Str("cycle", summary.ID).Int("recipients", len(recipients)).Msg("цикл рассылки начат")

	sendAttempted := false
	for _, rec := range recipients {
		// Отмена проверяется только на границе итерации: начатая
		// отправка дорабатывает до естественного исхода.
		if ctx.Err() != nil {
			s.log.Warn().Str("cycle", summary.ID).Msg("цикл прерван по сигналу")
			break
		}

		result := s.dispatchOne(ctx, rec, cursors, &sendAttempted)
		summary.Results = append(summary.Results, result)
		metrics.DispatchTotal.WithLabelValues(string(result.Outcome)).Inc()
		switch {
		case result.Outcome.Failed():
			summary.Failed++
		case result.Outcome.Skipped():
			summary.Skipped++
		default:
			summary.Sent++
		}
		s.logResult(rec, result)
		s.emit(ctx, result)
	}

	// Курсоры и история пишутся на отсоединённом контексте: остановка
	// процесса посреди цикла не должна терять сдвиги уже успешных
	// отправок, иначе следующий цикл пришлёт те же кандидаты повторно.
	saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancelSave()
	if err := s.rotation.Save(saveCtx, cursors); err != nil {
		s.log.Error().Err(err).Msg("не удалось сохранить курсоры ротации")
	}

	summary.FinishedAt = time.Now()
	metrics.CycleDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	if s.recorder != nil {
		if err := s.recorder.SaveCycle(saveCtx, summary); err != nil {
			s.log.Error().Err(err).Msg("не удалось сохранить историю цикла")
		}
	}

	s.log.Info().
		Str("cycle", summary.ID).
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("цикл рассылки завершён")
	return summary, nil
}

func (s *Service) dispatchOne(ctx context.Context, rec domain.Recipient, cursors domain.Cursors, sendAttempted *bool) domain.DispatchResult {
	result := domain.DispatchResult{RecipientID: rec.ID, DisplayName: rec.DisplayName, At: time.Now()}

	if !rec.Enabled {
		result.Outcome = domain.OutcomeSkippedDisabled
		return result
	}
	if rec.ID == "" {
		result.Outcome = domain.OutcomeSkippedNoID
		return result
	}

	resolution, err := s.resolver.Resolve(ctx, rec, s.opts.Policy, cursors[rec.ID])
	if err != nil {
		result.Outcome = domain.OutcomeSkippedNoCandidates
		result.Reason = err.Error()
		return result
	}

	media, mediaDegraded := s.attachMedia(ctx, resolution.Candidate.ImageRef)

	// Пауза между попытками отправки; пропуски её не тратят.
	if *sendAttempted {
		s.pause(ctx, s.opts.SendDelay)
	}
	*sendAttempted = true

	if err := s.gateway.SendDirectMessage(ctx, rec.ID, resolution.Candidate.Text, media); err != nil {
		result.Outcome = domain.OutcomeFailedSend
		result.Reason = err.Error()
		metrics.SendErrors.Inc()
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			metrics.RateLimitPauses.Inc()
			s.log.Warn().Str("recipient", rec.ID).Dur("cooldown", s.opts.RateLimitCooldown).
				Msg("лимит запросов платформы, пауза перед продолжением цикла")
			s.pause(ctx, s.opts.RateLimitCooldown)
		case errors.Is(err, domain.ErrForbidden):
			s.log.Error().Str("recipient", rec.ID).Err(err).
				Msg("отправка запрещена: блокировка или закрытые личные сообщения")
		default:
			s.log.Error().Str("recipient", rec.ID).Err(err).Msg("ошибка отправки")
		}
		return result
	}

	// Курсор двигается только после успешной отправки, чтобы повтор на
	// следующем цикле пришёлся на тот же кандидат.
	if resolution.Rotated {
		cursors[rec.ID] = cursors[rec.ID] + 1
	}

	switch {
	case media != "":
		result.Outcome = domain.OutcomeSentWithMedia
	case mediaDegraded:
		result.Outcome = domain.OutcomeSentMediaFailed
	default:
		result.Outcome = domain.OutcomeSent
	}
	return result
}

// attachMedia возвращает handle вложения и признак деградации: явная
// картинка кандидата была, но приложить её не удалось.
func (s *Service) attachMedia(ctx context.Context, imageRef string) (domain.MediaHandle, bool) {
	if imageRef != "" {
		path, ok := s.attacher.Resolve(imageRef)
		if !ok {
			return "", true
		}
		handle, err := s.attacher.Upload(ctx, path)
		if err != nil {
			s.log.Warn().Err(err).Str("image", imageRef).Msg("вложение не загружено, отправляем только текст")
			return "", true
		}
		return handle, false
	}

	if s.opts.AttachProbability > 0 && s.randFloat() < s.opts.AttachProbability {
		path, ok := s.attacher.PickRandom()
		if !ok {
			return "", false
		}
		handle, err := s.attacher.Upload(ctx, path)
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("случайное вложение не загружено, отправляем только текст")
			return "", false
		}
		return handle, false
	}
	return "", false
}

func (s *Service) logResult(rec domain.Recipient, result domain.DispatchResult) {
	evt := s.log.Info()
	if result.Outcome.Failed() {
		evt = s.log.Error()
	} else if result.Outcome.Skipped() {
		evt = s.log.Debug()
	}
	evt.Str("recipient", rec.ID).
		Str("name", rec.DisplayName).
		Str("outcome", string(result.Outcome)).
		Msg("получатель обработан")
}

func (s *Service) emit(ctx context.Context, result domain.DispatchResult) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, result); err != nil {
		s.log.Warn().Err(err).Str("recipient", result.RecipientID).Msg("событие не опубликовано")
	}
}

// sleepCtx спит с уважением к отмене контекста.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
