package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewRosterRejectsDuplicateIDs(t *testing.T) {
	_, err := NewRoster([]Recipient{
		{ID: "1", Enabled: true},
		{ID: "1", Enabled: true},
	})
	if err == nil {
		t.Fatalf("ожидали ошибку на дублирующийся id")
	}
}

func TestNewRosterKeepsEmptyID(t *testing.T) {
	roster, err := NewRoster([]Recipient{
		{ID: "", DisplayName: "без id", Enabled: true},
		{ID: "2", Enabled: true},
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(roster.List()) != 2 {
		t.Fatalf("запись с пустым id должна остаться в списке")
	}
}

func TestListEnabledPreservesOrder(t *testing.T) {
	roster, err := NewRoster([]Recipient{
		{ID: "a", Enabled: true},
		{ID: "b", Enabled: false},
		{ID: "c", Enabled: true},
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	enabled := roster.ListEnabled()
	if len(enabled) != 2 || enabled[0].ID != "a" || enabled[1].ID != "c" {
		t.Fatalf("ожидали [a c], получили %v", enabled)
	}
}

func TestGetUnknownRecipient(t *testing.T) {
	roster, _ := NewRoster([]Recipient{{ID: "a", Enabled: true}})
	if _, err := roster.Get("zzz"); !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("ожидали ErrRecipientNotFound, получили %v", err)
	}
}

func TestMessageCandidateUnmarshalString(t *testing.T) {
	var c MessageCandidate
	if err := json.Unmarshal([]byte(`"просто текст"`), &c); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if c.Text != "просто текст" || c.ImageRef != "" {
		t.Fatalf("строка должна нормализоваться в {text, image:\"\"}: %+v", c)
	}
}

func TestMessageCandidateUnmarshalObject(t *testing.T) {
	var c MessageCandidate
	if err := json.Unmarshal([]byte(`{"text":"привет","image":"morning.jpg"}`), &c); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if c.Text != "привет" || c.ImageRef != "morning.jpg" {
		t.Fatalf("неожиданный результат: %+v", c)
	}
}
