package domain

import (
	"encoding/json"
	"time"
)

// Policy определяет стратегию выбора сообщения для получателя.
type Policy int

const (
	// PolicyRotate перебирает сообщения по кругу, курсор двигается после успешной отправки.
	PolicyRotate Policy = iota
	// PolicyRandomize выбирает сообщение случайно, курсор не используется.
	PolicyRandomize
)

// Recipient описывает получателя личных сообщений.
type Recipient struct {
	ID          string
	DisplayName string
	Category    string
	Inline      []MessageCandidate
	Enabled     bool
}

// MessageCandidate — один вариант сообщения с необязательной картинкой.
type MessageCandidate struct {
	Text     string
	ImageRef string
}

// UnmarshalJSON принимает как объект {"text","image"}, так и голую строку
// (старый формат конфигурации).
func (c *MessageCandidate) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*c = MessageCandidate{Text: text}
		return nil
	}
	var raw struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = MessageCandidate{Text: raw.Text, ImageRef: raw.Image}
	return nil
}

// MarshalJSON сохраняет кандидата в нормализованном виде.
func (c MessageCandidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Text  string `json:"text"`
		Image string `json:"image,omitempty"`
	}{Text: c.Text, Image: c.ImageRef})
}

// MediaHandle — непрозрачный идентификатор загруженного медиа. Пустое
// значение означает отсутствие вложения.
type MediaHandle string

// Outcome фиксирует исход обработки одного получателя за цикл.
type Outcome string

const (
	OutcomeSent                Outcome = "sent"
	OutcomeSentWithMedia       Outcome = "sent_with_media"
	OutcomeSentMediaFailed     Outcome = "sent_media_failed"
	OutcomeSkippedDisabled     Outcome = "skipped_disabled"
	OutcomeSkippedNoID         Outcome = "skipped_no_id"
	OutcomeSkippedNoCandidates Outcome = "skipped_no_candidates"
	OutcomeFailedSend          Outcome = "failed_send"
)

// Failed сообщает, является ли исход ошибкой отправки.
func (o Outcome) Failed() bool { return o == OutcomeFailedSend }

// Skipped сообщает, был ли получатель пропущен без обращения к платформе.
func (o Outcome) Skipped() bool {
	switch o {
	case OutcomeSkippedDisabled, OutcomeSkippedNoID, OutcomeSkippedNoCandidates:
		return true
	}
	return false
}

// DispatchResult описывает итог обработки получателя в рамках одного цикла.
type DispatchResult struct {
	RecipientID string    `json:"recipient_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Outcome     Outcome   `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

// CycleSummary агрегирует результаты одного прохода по получателям.
type CycleSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Sent       int
	Failed     int
	Skipped    int
	Results    []DispatchResult
}

// Cursors хранит позиции ротации по id получателя. Значение растёт
// неограниченно, остаток по длине списка берётся при чтении.
type Cursors map[string]uint64
