package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"dm-sender/internal/domain"
	"dm-sender/internal/infra/metrics"
)

// RabbitSink публикует события рассылки в очередь RabbitMQ, чтобы внешние
// потребители могли реагировать на исходы без доступа к БД.
type RabbitSink struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

var _ domain.EventSink = (*RabbitSink)(nil)

// NewRabbitSink подключается к брокеру и объявляет очередь.
func NewRabbitSink(url, queue string) (*RabbitSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("подключение к rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("открытие канала: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("объявление очереди %s: %w", queue, err)
	}
	return &RabbitSink{conn: conn, ch: ch, queue: queue}, nil
}

// Publish отправляет результат обработки получателя.
func (s *RabbitSink) Publish(ctx context.Context, result domain.DispatchResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("сериализация события: %w", err)
	}
	start := time.Now()
	err = s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", s.queue, start, err)
	if err != nil {
		return fmt.Errorf("публикация события: %w", err)
	}
	return nil
}

// Close закрывает канал и подключение.
func (s *RabbitSink) Close() error {
	if err := s.ch.Close(); err != nil {
		_ = s.conn.Close()
		return err
	}
	return s.conn.Close()
}
