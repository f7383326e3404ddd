// Package app wires the components into runnable modes. Each mode can run
// in its own process; bot and worker share nothing but the database.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/api"
	"github.com/icoffio/articleflow/internal/bot"
	"github.com/icoffio/articleflow/internal/extract"
	"github.com/icoffio/articleflow/internal/images"
	"github.com/icoffio/articleflow/internal/llm"
	"github.com/icoffio/articleflow/internal/pipeline"
	"github.com/icoffio/articleflow/internal/platform/config"
	"github.com/icoffio/articleflow/internal/platform/observability"
	"github.com/icoffio/articleflow/internal/platform/worker"
	"github.com/icoffio/articleflow/internal/publish"
	"github.com/icoffio/articleflow/internal/queue"
	"github.com/icoffio/articleflow/internal/settings"
	db "github.com/icoffio/articleflow/internal/storage"
	"github.com/icoffio/articleflow/internal/translate"
)

type App struct {
	cfg    *config.Config
	db     *db.DB
	logger *zerolog.Logger

	queue     *queue.Queue
	settings  *settings.Service
	publisher *publish.Publisher
}

func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		db:     database,
		logger: logger,
		queue: queue.New(database, *logger, queue.Config{
			MaxRetries:     cfg.JobMaxRetries,
			StaleThreshold: cfg.StaleJobThreshold,
		}),
		settings:  settings.New(database, *logger, cfg.SettingsCacheTTL),
		publisher: publish.New(database, *logger, cfg.SiteBaseURL),
	}
}

// RunBot runs the Telegram intake gateway.
func (a *App) RunBot(ctx context.Context) error {
	gateway, err := bot.New(a.cfg, a.queue, a.settings, a.db, a.logger)
	if err != nil {
		return fmt.Errorf("bot init: %w", err)
	}

	return gateway.Run(ctx)
}

// RunWorker runs the pipeline consumer.
func (a *App) RunWorker(ctx context.Context) error {
	llmClient := llm.New(a.cfg, a.logger)

	tgAPI, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("bot api init: %w", err)
	}
	notifier := bot.NewNotifier(tgAPI, a.settings, a.logger)

	orchestrator := pipeline.New(pipeline.Deps{
		Settings:  a.settings,
		Extractor: extract.New(*a.logger, a.cfg.WebFetchTimeout, a.cfg.MaxContentChars),
		Rewriter:  llmClient,
		Translator: translate.New(
			llmClient, *a.logger, a.cfg.PivotLanguage, a.cfg.TargetLanguages,
		),
		Images: images.NewService(
			llmClient,
			images.NewUnsplashProvider(a.cfg.StockSearchURL, a.cfg.StockAccessKey, a.cfg.ImageFetchTimeout),
			images.NewModelProvider(llmClient, a.cfg.ImageModel, a.cfg.ImageSize),
			*a.logger,
		),
		Publisher: a.publisher,
		Notifier:  notifier,
		Auditor:   a.db,
		Pivot:     a.cfg.PivotLanguage,
	}, *a.logger)

	consumer := worker.NewConsumer(a.queue, orchestrator, a.db, worker.ConsumerConfig{
		BatchSize:          a.cfg.WorkerBatchSize,
		PollInterval:       a.cfg.WorkerPollInterval,
		StaleSweepInterval: a.cfg.StaleSweepInterval,
	}, a.logger)

	return consumer.Run(ctx)
}

// StartHealthServer serves health, metrics and the read API. Runs in every
// mode so each process is observable on its own port.
func (a *App) StartHealthServer(ctx context.Context) error {
	handler := api.New(a.queue, a.db, a.publisher, a.logger)
	server := observability.NewServer(a.db.Pool, a.cfg.HealthPort, handler.Router(), a.logger)

	return server.Start(ctx)
}
