package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"NoiseGate/internal/logging"
	"NoiseGate/internal/ports"
)

// Feed is a subscribed feed handed to the ingestor.
type Feed struct {
	Name string
	URL  string
}

// IngestResult summarizes one ingestion pass over all feeds.
type IngestResult struct {
	FeedsFetched int      `json:"feedsFetched"`
	ItemsParsed  int      `json:"itemsParsed"`
	ItemsStored  int      `json:"itemsStored"`
	Errors       []string `json:"errors"`
}

// IngestDeps wires the driven adapters into the ingestor.
type IngestDeps struct {
	Fetcher ports.FeedFetcher
	Parser  ports.FeedParser
	Store   ports.CandidateStore
	Feeds   []Feed
	Logger  *slog.Logger
}

// Ingestor pulls every configured feed and stores new items as unclassified.
type Ingestor struct {
	fetcher ports.FeedFetcher
	parser  ports.FeedParser
	store   ports.CandidateStore
	feeds   []Feed
	logger  *slog.Logger
}

// NewIngestor constructs the ingestion use case.
func NewIngestor(deps IngestDeps) *Ingestor {
	return &Ingestor{
		fetcher: deps.Fetcher,
		parser:  deps.Parser,
		store:   deps.Store,
		feeds:   deps.Feeds,
		logger:  logging.Component(deps.Logger, "ingest"),
	}
}

// Run fetches feeds one after another. A failing feed is recorded and skipped.
func (in *Ingestor) Run(ctx context.Context) IngestResult {
	result := IngestResult{Errors: []string{}}
	if in.fetcher == nil || in.parser == nil || in.store == nil {
		result.Errors = append(result.Errors, "ingestor is not wired")
		return result
	}

	in.logger.Info("ingest started", "feeds", len(in.feeds))
	for _, feed := range in.feeds {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("feed %s: %v", feed.Name, err))
			continue
		}

		parsed, stored, err := in.ingestFeed(ctx, feed)
		if err != nil {
			in.logger.Warn("feed failed", "feed", feed.Name, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("feed %s: %v", feed.Name, err))
			continue
		}
		result.FeedsFetched++
		result.ItemsParsed += parsed
		result.ItemsStored += stored
		in.logger.Debug("feed ingested", "feed", feed.Name, "parsed", parsed, "stored", stored)
	}

	in.logger.Info("ingest finished",
		"fetched", result.FeedsFetched,
		"parsed", result.ItemsParsed,
		"stored", result.ItemsStored,
		"errors", len(result.Errors))
	return result
}

func (in *Ingestor) ingestFeed(ctx context.Context, feed Feed) (int, int, error) {
	raw, err := in.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch: %w", err)
	}
	items := in.parser.Parse(raw, feed.URL)
	if len(items) == 0 {
		return 0, 0, nil
	}
	stored, err := in.store.SaveCandidates(ctx, feed.Name, items)
	if err != nil {
		return len(items), 0, fmt.Errorf("store: %w", err)
	}
	return len(items), stored, nil
}
