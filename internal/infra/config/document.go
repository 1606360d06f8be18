package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"dm-sender/internal/domain"
)

// Document описывает файл настроек рассылки (config.json): расписание,
// медиа, шаблоны сообщений, генеративный режим и список получателей.
type Document struct {
	Schedule   ScheduleSettings                     `json:"schedule_settings"`
	Media      MediaSettings                        `json:"media_settings"`
	Generator  GeneratorSettings                    `json:"generator_settings"`
	Templates  map[string][]domain.MessageCandidate `json:"message_templates"`
	Recipients []RecipientEntry                     `json:"recipients"`
}

// ScheduleSettings управляют периодичностью и видом сообщений.
type ScheduleSettings struct {
	IntervalHours     int  `json:"interval_hours"`
	EnableTimestamp   bool `json:"enable_timestamp"`
	RandomizeMessages bool `json:"randomize_messages"`
}

// MediaSettings управляют вложениями.
type MediaSettings struct {
	ImagesDirectory   string   `json:"images_directory"`
	MaxImageSizeMB    float64  `json:"max_image_size_mb"`
	SupportedFormats  []string `json:"supported_formats"`
	AttachProbability float64  `json:"attach_probability"`
}

// GeneratorSettings описывают генеративный режим. Пул запасных сообщений
// обязателен: при любой ошибке генерации рассылка продолжается на нём.
type GeneratorSettings struct {
	Enabled          bool     `json:"enabled"`
	Prompts          []string `json:"message_prompts"`
	FallbackMessages []string `json:"fallback_messages"`
}

// RecipientEntry — запись получателя в документе. Поле enabled по
// умолчанию true, как в историческом формате.
type RecipientEntry struct {
	UserID          string                    `json:"user_id"`
	Username        string                    `json:"username"`
	MessageCategory string                    `json:"message_category"`
	CustomMessages  []domain.MessageCandidate `json:"custom_messages"`
	Enabled         *bool                     `json:"enabled"`
}

var defaultFormats = []string{"jpg", "jpeg", "png", "gif", "webp"}

// LoadDocument читает и валидирует документ настроек.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("чтение документа настроек: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("разбор документа настроек: %w", err)
	}
	if err := doc.normalize(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (d *Document) normalize() error {
	if d.Schedule.IntervalHours <= 0 {
		d.Schedule.IntervalHours = 6
	}
	if d.Media.ImagesDirectory == "" {
		d.Media.ImagesDirectory = "images"
	}
	if d.Media.MaxImageSizeMB <= 0 {
		d.Media.MaxImageSizeMB = 5.0
	}
	if len(d.Media.SupportedFormats) == 0 {
		d.Media.SupportedFormats = defaultFormats
	}
	for i, f := range d.Media.SupportedFormats {
		d.Media.SupportedFormats[i] = strings.ToLower(strings.TrimPrefix(f, "."))
	}
	if d.Media.AttachProbability < 0 || d.Media.AttachProbability > 1 {
		return fmt.Errorf("attach_probability должен быть в диапазоне 0..1, получен %v", d.Media.AttachProbability)
	}
	if d.Generator.Enabled {
		if len(d.Generator.Prompts) == 0 {
			return errors.New("генеративный режим включён, но message_prompts пуст")
		}
		if len(d.Generator.FallbackMessages) == 0 {
			return errors.New("генеративный режим включён, но fallback_messages пуст")
		}
	}
	return nil
}

// Policy возвращает стратегию выбора сообщений.
func (d Document) Policy() domain.Policy {
	if d.Schedule.RandomizeMessages {
		return domain.PolicyRandomize
	}
	return domain.PolicyRotate
}

// RecipientList переводит записи документа в доменные сущности.
func (d Document) RecipientList() []domain.Recipient {
	out := make([]domain.Recipient, 0, len(d.Recipients))
	for _, e := range d.Recipients {
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		out = append(out, domain.Recipient{
			ID:          e.UserID,
			DisplayName: e.Username,
			Category:    e.MessageCategory,
			Inline:      e.CustomMessages,
			Enabled:     enabled,
		})
	}
	return out
}
