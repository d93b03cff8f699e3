package usecase

import (
	"context"
	"log/slog"
	"time"

	"NoiseGate/internal/domain"
	"NoiseGate/internal/logging"
	"NoiseGate/internal/ports"
)

// SchedulerDeps wires the periodic driver with the pipeline use cases.
type SchedulerDeps struct {
	Driver    ports.Scheduler
	Ingestor  *Ingestor
	Processor *BatchProcessor
	Run       RunConfig
	Logger    *slog.Logger
}

// Scheduler runs ingestion followed by classification on every tick.
type Scheduler struct {
	driver    ports.Scheduler
	ingestor  *Ingestor
	processor *BatchProcessor
	run       RunConfig
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	return &Scheduler{
		driver:    deps.Driver,
		ingestor:  deps.Ingestor,
		processor: deps.Processor,
		run:       deps.Run,
		logger:    logging.Component(deps.Logger, "scheduler"),
	}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.processor == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.Tick(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Tick runs one ingest-then-classify cycle. The tick time is the run trigger.
func (s *Scheduler) Tick(ctx context.Context, trigger time.Time) (IngestResult, domain.ProcessResult) {
	var ingest IngestResult
	if s.ingestor != nil {
		ingest = s.ingestor.Run(ctx)
	}

	run := s.run
	run.Trigger = map[string]string{"source": "scheduler", "time": trigger.UTC().Format(time.RFC3339)}
	result := domain.NewProcessResult()
	if s.processor != nil {
		result = s.processor.Run(ctx, run)
	}

	s.logger.Info("scheduled cycle done",
		"stored", ingest.ItemsStored,
		"classified", result.ItemsClassified,
		"errors", len(ingest.Errors)+len(result.Errors))
	return ingest, result
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
