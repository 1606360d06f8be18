package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dm-sender/internal/domain"
)

// Postgres сохраняет историю циклов рассылки: сводку и исход по каждому
// получателю.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.CycleRecorder = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицы истории, если их ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS dispatch_cycles (
    id          UUID PRIMARY KEY,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    sent        INT NOT NULL,
    failed      INT NOT NULL,
    skipped     INT NOT NULL
);
CREATE TABLE IF NOT EXISTS dispatch_results (
    id           BIGSERIAL PRIMARY KEY,
    cycle_id     UUID NOT NULL REFERENCES dispatch_cycles(id),
    recipient_id TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    outcome      TEXT NOT NULL,
    reason       TEXT NOT NULL DEFAULT '',
    at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dispatch_results_cycle ON dispatch_results(cycle_id);
CREATE INDEX IF NOT EXISTS idx_dispatch_results_recipient ON dispatch_results(recipient_id);
`)
	if err != nil {
		return fmt.Errorf("создание схемы истории: %w", err)
	}
	return nil
}

// SaveCycle пишет сводку цикла и все результаты одной транзакцией.
func (p *Postgres) SaveCycle(ctx context.Context, summary domain.CycleSummary) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO dispatch_cycles (id, started_at, finished_at, sent, failed, skipped)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		summary.ID, summary.StartedAt, summary.FinishedAt, summary.Sent, summary.Failed, summary.Skipped)
	if err != nil {
		return fmt.Errorf("сохранение сводки цикла: %w", err)
	}

	for _, res := range summary.Results {
		_, err = tx.Exec(ctx,
			`INSERT INTO dispatch_results (cycle_id, recipient_id, display_name, outcome, reason, at)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			summary.ID, res.RecipientID, res.DisplayName, string(res.Outcome), res.Reason, res.At)
		if err != nil {
			return fmt.Errorf("сохранение результата %s: %w", res.RecipientID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("фиксация транзакции: %w", err)
	}
	return nil
}

// ListRecentCycles возвращает последние сводки для диагностики.
func (p *Postgres) ListRecentCycles(ctx context.Context, limit int) ([]domain.CycleSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT id, started_at, finished_at, sent, failed, skipped
         FROM dispatch_cycles ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("выборка истории циклов: %w", err)
	}
	defer rows.Close()

	var out []domain.CycleSummary
	for rows.Next() {
		var s domain.CycleSummary
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.FinishedAt, &s.Sent, &s.Failed, &s.Skipped); err != nil {
			return nil, fmt.Errorf("чтение строки истории: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
