package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dm-sender/internal/domain"
)

// RedisStore хранит курсоры ротации одним JSON-документом под одним
// ключом. Документ читается и пишется целиком, по разу на цикл.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ domain.RotationStore = (*RedisStore)(nil)

// NewRedisStore создаёт хранилище.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Load читает документ. Отсутствие ключа — пустые курсоры.
func (s *RedisStore) Load(ctx context.Context) (domain.Cursors, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Cursors{}, nil
		}
		return nil, fmt.Errorf("чтение курсоров из redis: %w", err)
	}
	var cursors domain.Cursors
	if err := json.Unmarshal(data, &cursors); err != nil {
		return nil, fmt.Errorf("разбор курсоров: %w", err)
	}
	if cursors == nil {
		cursors = domain.Cursors{}
	}
	return cursors, nil
}

// Save записывает документ целиком.
func (s *RedisStore) Save(ctx context.Context, cursors domain.Cursors) error {
	payload, err := json.Marshal(cursors)
	if err != nil {
		return fmt.Errorf("сериализация курсоров: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("запись курсоров в redis: %w", err)
	}
	return nil
}
