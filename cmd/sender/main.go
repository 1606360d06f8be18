package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"dm-sender/internal/adapters/events"
	"dm-sender/internal/adapters/gateway"
	"dm-sender/internal/adapters/media"
	"dm-sender/internal/adapters/repo"
	"dm-sender/internal/adapters/state"
	"dm-sender/internal/adapters/textgen"
	"dm-sender/internal/domain"
	"dm-sender/internal/infra/config"
	"dm-sender/internal/infra/db"
	"dm-sender/internal/infra/gemini"
	"dm-sender/internal/infra/log"
	"dm-sender/internal/infra/metrics"
	"dm-sender/internal/infra/sched"
	"dm-sender/internal/infra/twitterapi"
	"dm-sender/internal/usecase/dispatch"
	"dm-sender/internal/usecase/messages"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	doc, err := config.LoadDocument(cfg.ConfigFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("не удалось загрузить документ настроек")
	}
	roster, err := domain.NewRoster(doc.RecipientList())
	if err != nil {
		logger.Fatal().Err(err).Msg("некорректный список получателей")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister(prometheus.DefaultRegisterer)
	go metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	var gw domain.MessagingGateway
	switch cfg.Platform {
	case config.PlatformTelegram:
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось создать бота")
		}
		gw = gateway.NewTelegram(botAPI, logger)
	case config.PlatformTwitter:
		client := twitterapi.NewClient(twitterapi.Credentials{
			ConsumerKey:    cfg.Twitter.APIKey,
			ConsumerSecret: cfg.Twitter.APISecret,
			AccessToken:    cfg.Twitter.AccessToken,
			AccessSecret:   cfg.Twitter.AccessSecret,
		}, 30*time.Second)
		gw = gateway.NewTwitter(client, logger)
	default:
		logger.Fatal().Str("platform", cfg.Platform).Msg("неизвестная платформа")
	}
	if err := gw.Authenticate(ctx); err != nil {
		logger.Fatal().Err(err).Str("platform", cfg.Platform).Msg("аутентификация не пройдена")
	}

	var rotation domain.RotationStore
	if cfg.RedisAddr != "" {
		rotation = state.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.RotationKey)
	} else {
		rotation = state.NewFileStore(cfg.RotationFile)
	}

	resolverCfg := messages.Config{
		Templates:       doc.Templates,
		Defaults:        doc.Templates["default"],
		EnableTimestamp: doc.Schedule.EnableTimestamp,
	}
	if doc.Generator.Enabled {
		if cfg.Gemini.APIKey == "" {
			logger.Fatal().Msg("генеративный режим включён, но GEMINI_API_KEY не задан")
		}
		client := gemini.NewClient(cfg.Gemini.APIKey, "", 60*time.Second)
		resolverCfg.Generator = textgen.NewGemini(client, cfg.Gemini.Model, 30*time.Second)
		resolverCfg.Prompts = doc.Generator.Prompts
		resolverCfg.Fallback = doc.Generator.FallbackMessages
	}
	resolver := messages.NewResolver(resolverCfg, logger)

	attacher := media.NewAttacher(gw, doc.Media.ImagesDirectory, doc.Media.MaxImageSizeMB, doc.Media.SupportedFormats, logger)

	var recorder domain.CycleRecorder
	if cfg.PGDSN != "" {
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("не удалось подготовить схему истории")
		}
		if cycles, err := pg.ListRecentCycles(ctx, 1); err != nil {
			logger.Warn().Err(err).Msg("не удалось прочитать историю циклов")
		} else if len(cycles) > 0 {
			last := cycles[0]
			logger.Info().
				Str("cycle", last.ID).
				Time("finished_at", last.FinishedAt).
				Int("sent", last.Sent).
				Int("failed", last.Failed).
				Msg("последний сохранённый цикл")
		}
		recorder = pg
	}

	var sink domain.EventSink
	if cfg.AMQPURL != "" {
		rabbit, err := events.NewRabbitSink(cfg.AMQPURL, cfg.EventsQueue)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к брокеру событий")
		}
		defer rabbit.Close()
		sink = rabbit
	}

	svc := dispatch.NewService(roster, resolver, attacher, gw, rotation, sink, recorder, logger, dispatch.Options{
		Policy:            doc.Policy(),
		AttachProbability: doc.Media.AttachProbability,
	})

	interval := time.Duration(doc.Schedule.IntervalHours) * time.Hour
	logger.Info().
		Str("platform", cfg.Platform).
		Dur("interval", interval).
		Int("recipients", len(roster.List())).
		Msg("сервис рассылки запущен")

	scheduler := sched.New(interval)
	_ = scheduler.Run(ctx, func(ctx context.Context) {
		if _, err := svc.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("цикл рассылки завершился ошибкой")
		}
	})
	logger.Info().Msg("сервис рассылки остановлен")
}
