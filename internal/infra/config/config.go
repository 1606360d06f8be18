package config

import (
	"fmt"
	"log"

	"github.com/kelseyhightower/envconfig"
)

// Поддерживаемые платформы шлюза.
const (
	PlatformTwitter  = "twitter"
	PlatformTelegram = "telegram"
)

// AppConfig описывает переменные окружения процесса: учётные данные,
// адреса инфраструктуры и путь к документу настроек рассылки.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"UTC"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9091"`

	// Platform выбирает реализацию шлюза: twitter или telegram.
	Platform   string `envconfig:"PLATFORM" default:"twitter"`
	ConfigFile string `envconfig:"CONFIG_FILE" default:"config.json"`

	Twitter struct {
		APIKey       string `envconfig:"TWITTER_API_KEY"`
		APISecret    string `envconfig:"TWITTER_API_SECRET"`
		AccessToken  string `envconfig:"TWITTER_ACCESS_TOKEN"`
		AccessSecret string `envconfig:"TWITTER_ACCESS_SECRET"`
	} `envconfig:""`

	Telegram struct {
		Token string `envconfig:"TG_BOT_TOKEN"`
	} `envconfig:""`

	Gemini struct {
		APIKey string `envconfig:"GEMINI_API_KEY"`
		Model  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	} `envconfig:""`

	RedisAddr   string `envconfig:"REDIS_ADDR"`
	RotationKey string `envconfig:"ROTATION_KEY" default:"dm:rotation"`

	// RotationFile используется, когда Redis не настроен.
	RotationFile string `envconfig:"ROTATION_FILE" default:"message_index.json"`

	PGDSN string `envconfig:"PG_DSN"`

	AMQPURL     string `envconfig:"AMQP_URL"`
	EventsQueue string `envconfig:"DISPATCH_EVENTS_QUEUE" default:"dm_dispatch_events"`
}

// Validate проверяет значения, которые envconfig не ограничивает.
func (c AppConfig) Validate() error {
	switch c.Platform {
	case PlatformTwitter, PlatformTelegram:
		return nil
	}
	return fmt.Errorf("неизвестная платформа %q: ожидается %s или %s", c.Platform, PlatformTwitter, PlatformTelegram)
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("некорректный конфиг: %v", err)
	}
	return cfg
}
