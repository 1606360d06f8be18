package domain

import "fmt"

// Roster хранит проверенный список получателей в порядке конфигурации.
// Список неизменяем на время жизни процесса, перечитывание — это рестарт.
type Roster struct {
	recipients []Recipient
}

// NewRoster валидирует структуру списка. Дублирующиеся id — ошибка
// конфигурации; запись с пустым id допускается и пропускается на этапе
// диспетчеризации.
func NewRoster(recipients []Recipient) (*Roster, error) {
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		if r.ID == "" {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			return nil, fmt.Errorf("дублирующийся id получателя: %s", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	out := make([]Recipient, len(recipients))
	copy(out, recipients)
	return &Roster{recipients: out}, nil
}

// List возвращает всех получателей в порядке конфигурации.
func (r *Roster) List() []Recipient {
	return r.recipients
}

// ListEnabled возвращает включённых получателей, сохраняя порядок.
func (r *Roster) ListEnabled() []Recipient {
	out := make([]Recipient, 0, len(r.recipients))
	for _, rec := range r.recipients {
		if rec.Enabled {
			out = append(out, rec)
		}
	}
	return out
}

// Get ищет получателя по id.
func (r *Roster) Get(id string) (Recipient, error) {
	if id != "" {
		for _, rec := range r.recipients {
			if rec.ID == id {
				return rec, nil
			}
		}
	}
	return Recipient{}, ErrRecipientNotFound
}
