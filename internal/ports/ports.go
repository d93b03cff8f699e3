package ports

import (
	"context"
	"time"

	"NoiseGate/internal/domain"
)

// UnclassifiedSource yields previously ingested items that still await classification.
type UnclassifiedSource interface {
	FetchUnclassified(ctx context.Context, max int) ([]domain.FeedItem, error)
}

// Classifier scores a batch of items. It returns one result per input item
// or fails the batch as a whole.
type Classifier interface {
	ClassifyBatch(ctx context.Context, items []domain.FeedItem) ([]domain.Classification, error)
}

// ClassificationSink durably records classifications for items and their story groups.
type ClassificationSink interface {
	PersistItemClassification(ctx context.Context, c domain.Classification) error
	PersistStoryGroupClassification(ctx context.Context, c domain.Classification) error
}

// CandidateStore persists freshly parsed feed entries as unclassified items.
type CandidateStore interface {
	SaveCandidates(ctx context.Context, source string, items []domain.CandidateItem) (int, error)
}

// FeedFetcher retrieves raw feed markup.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FeedParser normalizes raw RSS/Atom markup into candidate items.
type FeedParser interface {
	Parse(raw, sourceURL string) []domain.CandidateItem
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
