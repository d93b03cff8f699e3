package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"NoiseGate/internal/config"
	"NoiseGate/internal/domain"
	"NoiseGate/internal/httpapi"
	"NoiseGate/internal/infrastructure/fetcher"
	"NoiseGate/internal/infrastructure/llm"
	"NoiseGate/internal/infrastructure/ml"
	"NoiseGate/internal/infrastructure/parser"
	"NoiseGate/internal/infrastructure/scheduler"
	"NoiseGate/internal/infrastructure/storage"
	"NoiseGate/internal/logging"
	"NoiseGate/internal/ports"
	"NoiseGate/internal/provider"
	"NoiseGate/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	repo      *storage.Repository
	previewer *usecase.Previewer
	ingestor  *usecase.Ingestor
	processor *usecase.BatchProcessor
}

// NewPreviewer builds the preview use case alone; it needs no database.
func NewPreviewer(cfg config.Config, baseLogger *slog.Logger) *usecase.Previewer {
	return usecase.NewPreviewer(
		fetcher.NewHTTPFetcher(cfg.Fetcher.TimeoutDuration()),
		parser.NewFeedParser(logging.Component(baseLogger, "parser")),
		baseLogger,
	)
}

// New opens storage, ensures the schema and wires every use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, dialect, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := storage.NewRepository(db, dialect)
	if err := repo.Ensure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	feedFetcher := fetcher.NewHTTPFetcher(cfg.Fetcher.TimeoutDuration())
	feedParser := parser.NewFeedParser(logging.Component(baseLogger, "parser"))

	feeds := make([]usecase.Feed, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, usecase.Feed{Name: f.Name, URL: f.URL})
	}

	baseLogger.Debug("application wired",
		"driver", dialect.Name,
		"provider", cfg.Classifier.Provider,
		"feeds", len(feeds))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		repo:      repo,
		previewer: usecase.NewPreviewer(feedFetcher, feedParser, baseLogger),
		ingestor: usecase.NewIngestor(usecase.IngestDeps{
			Fetcher: feedFetcher,
			Parser:  feedParser,
			Store:   repo,
			Feeds:   feeds,
			Logger:  baseLogger,
		}),
		processor: usecase.NewBatchProcessor(usecase.ClassifyDeps{
			Source:     repo,
			Classifier: newClassifier(cfg, baseLogger),
			Sink:       repo,
			Logger:     baseLogger,
		}),
	}, nil
}

func newClassifier(cfg config.Config, log *slog.Logger) ports.Classifier {
	registry := provider.NewRegistry()
	registry.Register(config.ProviderOpenAI, llm.NewChatGPTClassifier(cfg.OpenAI))
	registry.Register(config.ProviderML, ml.NewClient(cfg.ML))

	classifier, err := registry.Resolve(cfg.Classifier.Provider)
	if err != nil {
		log.Warn("no classifier available", "error", err)
		return nil
	}
	return classifier
}

func (a *Application) runConfig(trigger any) usecase.RunConfig {
	return usecase.RunConfig{
		Provider:   a.cfg.Classifier.Provider,
		Credential: a.cfg.Credential(),
		Trigger:    trigger,
	}
}

// Classify performs a single classification run.
func (a *Application) Classify(ctx context.Context, trigger any) domain.ProcessResult {
	return a.processor.Run(ctx, a.runConfig(trigger))
}

// Ingest performs a single pass over the configured feeds.
func (a *Application) Ingest(ctx context.Context) usecase.IngestResult {
	return a.ingestor.Run(ctx)
}

// Stats reports store counters.
func (a *Application) Stats(ctx context.Context) (storage.Stats, error) {
	return a.repo.Stats(ctx)
}

// RunScheduled ingests and classifies on every scheduler tick until ctx ends.
func (a *Application) RunScheduled(ctx context.Context) error {
	sched := usecase.NewScheduler(usecase.SchedulerDeps{
		Driver:    scheduler.NewIntervalScheduler(a.cfg.Scheduler.IntervalDuration(), a.cfg.Scheduler.Location()),
		Ingestor:  a.ingestor,
		Processor: a.processor,
		Run:       a.runConfig(nil),
		Logger:    a.logger,
	})
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.IntervalDuration().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Serve exposes the HTTP API until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	srv := httpapi.NewServer(httpapi.Deps{
		Previewer: a.previewer,
		Processor: a.processor,
		Ingestor:  a.ingestor,
		Stats:     a.repo,
		Run:       a.runConfig(nil),
		Logger:    a.logger,
	})
	return srv.ListenAndServe(ctx, a.cfg.HTTP.Addr)
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
