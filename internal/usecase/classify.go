package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"NoiseGate/internal/domain"
	"NoiseGate/internal/logging"
	"NoiseGate/internal/ports"
)

const (
	// BatchSize is the number of items sent to the provider per request.
	BatchSize = 10
	// MaxItemsPerRun caps how many pending items a single run picks up.
	MaxItemsPerRun = 50
	// PacingDelay separates consecutive provider requests.
	PacingDelay = 500 * time.Millisecond
)

// RunConfig carries per-run settings. Trigger is logged verbatim and has no
// other effect.
type RunConfig struct {
	Provider   string
	Credential string
	Trigger    any
}

// SleepFunc pauses between batches; it returns early with ctx.Err() on cancellation.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ClassifyDeps wires the driven adapters into the batch processor.
type ClassifyDeps struct {
	Source     ports.UnclassifiedSource
	Classifier ports.Classifier
	Sink       ports.ClassificationSink
	Logger     *slog.Logger
	Sleep      SleepFunc
}

// BatchProcessor classifies pending feed items in small sequential batches.
// A failing batch or item is recorded in the run summary and never aborts
// the remaining work.
type BatchProcessor struct {
	source     ports.UnclassifiedSource
	classifier ports.Classifier
	sink       ports.ClassificationSink
	logger     *slog.Logger
	sleep      SleepFunc
}

// NewBatchProcessor constructs the classification use case.
func NewBatchProcessor(deps ClassifyDeps) *BatchProcessor {
	sleep := deps.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &BatchProcessor{
		source:     deps.Source,
		classifier: deps.Classifier,
		sink:       deps.Sink,
		logger:     logging.Component(deps.Logger, "classifier"),
		sleep:      sleep,
	}
}

// Run performs one classification pass and always returns a summary.
func (p *BatchProcessor) Run(ctx context.Context, cfg RunConfig) domain.ProcessResult {
	result := domain.NewProcessResult()
	log := p.logger.With("run_id", uuid.NewString())
	log.Info("classification run started", "trigger", cfg.Trigger, "provider", cfg.Provider)

	if err := p.checkConfig(cfg); err != nil {
		log.Error("classification run aborted", "error", err)
		result.AddError(err.Error())
		return result
	}

	items, err := p.source.FetchUnclassified(ctx, MaxItemsPerRun)
	if err != nil {
		log.Error("fetch unclassified items failed", "error", err)
		result.AddError(fmt.Sprintf("fetch unclassified items: %v", err))
		return result
	}
	if len(items) == 0 {
		log.Info("no items to classify")
		return result
	}
	log.Info("found unclassified items", "count", len(items))

	batches := chunk(items, BatchSize)
	for i, batch := range batches {
		p.processBatch(ctx, log, i+1, batch, &result)

		if i < len(batches)-1 {
			if err := p.sleep(ctx, PacingDelay); err != nil {
				log.Warn("pacing interrupted", "error", err)
			}
		}
	}

	log.Info("classification run finished",
		"processed", result.ItemsProcessed,
		"classified", result.ItemsClassified,
		"errors", len(result.Errors))
	return result
}

func (p *BatchProcessor) checkConfig(cfg RunConfig) error {
	if strings.TrimSpace(cfg.Credential) == "" {
		return fmt.Errorf("%w: no credential for provider %q", ErrProviderNotConfigured, cfg.Provider)
	}
	if p.source == nil || p.classifier == nil || p.sink == nil {
		return fmt.Errorf("%w: pipeline is not wired", ErrProviderNotConfigured)
	}
	return nil
}

func (p *BatchProcessor) processBatch(ctx context.Context, log *slog.Logger, n int, batch []domain.FeedItem, result *domain.ProcessResult) {
	log.Debug("processing batch", "batch", n, "size", len(batch))

	classifications, err := p.classifier.ClassifyBatch(ctx, batch)
	if err != nil {
		log.Error("batch classification failed", "batch", n, "error", err)
		result.AddError(fmt.Sprintf("batch %d failed: %v", n, err))
		return
	}
	result.ItemsProcessed += len(batch)

	// pending[id] stays true until the item receives a verdict.
	pending := make(map[string]bool, len(batch))
	for _, item := range batch {
		pending[item.ID] = true
	}

	classified := 0
	for _, c := range classifications {
		waiting, known := pending[c.ID]
		switch {
		case !known:
			result.AddError(fmt.Sprintf("classification for unknown item %s", c.ID))
			continue
		case !waiting:
			result.AddError(fmt.Sprintf("duplicate classification for item %s", c.ID))
			continue
		}
		pending[c.ID] = false

		if err := p.persist(ctx, c); err != nil {
			log.Error("persist classification failed", "item", c.ID, "error", err)
			result.AddError(fmt.Sprintf("update failed for item %s: %v", c.ID, err))
			continue
		}
		result.ItemsClassified++
		classified++
	}

	for _, item := range batch {
		if pending[item.ID] {
			result.AddError(fmt.Sprintf("classification missing for item %s", item.ID))
		}
	}

	log.Info("batch done", "batch", n, "size", len(batch), "classified", classified)
}

func (p *BatchProcessor) persist(ctx context.Context, c domain.Classification) error {
	if err := p.sink.PersistItemClassification(ctx, c); err != nil {
		return fmt.Errorf("item: %w", err)
	}
	if err := p.sink.PersistStoryGroupClassification(ctx, c); err != nil {
		return fmt.Errorf("story group: %w", err)
	}
	return nil
}

func chunk(items []domain.FeedItem, size int) [][]domain.FeedItem {
	batches := make([][]domain.FeedItem, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
