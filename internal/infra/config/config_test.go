package config

import "testing"

func TestValidateAcceptsKnownPlatforms(t *testing.T) {
	for _, p := range []string{PlatformTwitter, PlatformTelegram} {
		cfg := AppConfig{Platform: p}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("платформа %s должна проходить проверку: %v", p, err)
		}
	}
}

func TestValidateRejectsUnknownPlatform(t *testing.T) {
	cfg := AppConfig{Platform: "telegramm"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ожидали ошибку на опечатку в названии платформы")
	}
}
