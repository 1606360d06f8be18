package sched

import (
	"context"
	"time"
)

// Scheduler запускает задачу с фиксированным интервалом. Срабатывание
// проверяется опросом с минутной гранулярностью; циклы никогда не
// перекрываются — опоздавший тик просто выполняется позже.
type Scheduler struct {
	interval time.Duration
	poll     time.Duration
	now      func() time.Time
}

// New создаёт планировщик с указанным интервалом между запусками.
func New(interval time.Duration) *Scheduler {
	return &Scheduler{
		interval: interval,
		poll:     time.Minute,
		now:      time.Now,
	}
}

// NextDue возвращает момент следующего запуска после last.
func (s *Scheduler) NextDue(last time.Time) time.Time {
	return last.Add(s.interval)
}

// Run выполняет fn немедленно и далее по расписанию, пока контекст не
// отменён. Отмена проверяется только на границах: запущенный fn
// дорабатывает до конца.
func (s *Scheduler) Run(ctx context.Context, fn func(context.Context)) error {
	fn(ctx)
	next := s.NextDue(s.now())

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.now().Before(next) {
				continue
			}
			fn(ctx)
			next = s.NextDue(s.now())
		}
	}
}
