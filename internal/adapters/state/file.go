package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"dm-sender/internal/domain"
)

// FileStore хранит курсоры ротации в JSON-файле. Вариант для установок
// без Redis; формат совместим с историческим message_index.json.
type FileStore struct {
	path string
}

var _ domain.RotationStore = (*FileStore)(nil)

// NewFileStore создаёт хранилище по указанному пути.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает файл. Отсутствие файла — пустые курсоры.
func (s *FileStore) Load(_ context.Context) (domain.Cursors, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Cursors{}, nil
		}
		return nil, fmt.Errorf("чтение файла курсоров: %w", err)
	}
	var cursors domain.Cursors
	if err := json.Unmarshal(data, &cursors); err != nil {
		return nil, fmt.Errorf("разбор файла курсоров: %w", err)
	}
	if cursors == nil {
		cursors = domain.Cursors{}
	}
	return cursors, nil
}

// Save пишет во временный файл и переименовывает, чтобы не оставить
// полузаписанный документ при сбое.
func (s *FileStore) Save(_ context.Context, cursors domain.Cursors) error {
	payload, err := json.Marshal(cursors)
	if err != nil {
		return fmt.Errorf("сериализация курсоров: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("создание каталога курсоров: %w", err)
	}
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("запись файла курсоров: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("замена файла курсоров: %w", err)
	}
	return nil
}
