package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NoiseGate/internal/domain"
)

type fakeSource struct {
	items   []domain.FeedItem
	err     error
	calls   int
	lastMax int
}

func (f *fakeSource) FetchUnclassified(_ context.Context, max int) ([]domain.FeedItem, error) {
	f.calls++
	f.lastMax = max
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > max {
		return f.items[:max], nil
	}
	return f.items, nil
}

type fakeClassifier struct {
	batches [][]domain.FeedItem
	failOn  map[int]error
	respond func(batch []domain.FeedItem) []domain.Classification
}

func (f *fakeClassifier) ClassifyBatch(_ context.Context, batch []domain.FeedItem) ([]domain.Classification, error) {
	f.batches = append(f.batches, batch)
	if err := f.failOn[len(f.batches)]; err != nil {
		return nil, err
	}
	if f.respond != nil {
		return f.respond(batch), nil
	}
	out := make([]domain.Classification, 0, len(batch))
	for _, item := range batch {
		out = append(out, domain.Classification{
			ID:         item.ID,
			Category:   domain.CategoryTech,
			Sentiment:  domain.SentimentNeutral,
			Importance: 5,
		})
	}
	return out, nil
}

type fakeSink struct {
	calls     []string
	failItem  map[string]error
	failGroup map[string]error
}

func (f *fakeSink) PersistItemClassification(_ context.Context, c domain.Classification) error {
	f.calls = append(f.calls, "item:"+c.ID)
	return f.failItem[c.ID]
}

func (f *fakeSink) PersistStoryGroupClassification(_ context.Context, c domain.Classification) error {
	f.calls = append(f.calls, "group:"+c.ID)
	return f.failGroup[c.ID]
}

type recordingSleep struct {
	calls []time.Duration
}

func (r *recordingSleep) Sleep(_ context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return nil
}

func makeItems(n int) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, domain.FeedItem{
			ID:           fmt.Sprintf("item-%02d", i),
			StoryGroupID: fmt.Sprintf("group-%02d", i),
			Title:        fmt.Sprintf("Headline %d", i),
			URL:          fmt.Sprintf("https://example.com/%d", i),
		})
	}
	return items
}

type fakeFetcher struct {
	bodies map[string]string
	errs   map[string]error
	urls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	if err := f.errs[url]; err != nil {
		return "", err
	}
	return f.bodies[url], nil
}

// fakeParser yields one item per line of the raw document.
type fakeParser struct{}

func (fakeParser) Parse(raw, sourceURL string) []domain.CandidateItem {
	var items []domain.CandidateItem
	if strings.TrimSpace(raw) == "" {
		return items
	}
	for i, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		items = append(items, domain.CandidateItem{
			Title: line,
			URL:   fmt.Sprintf("%s#%d", sourceURL, i),
		})
	}
	return items
}

type fakeStore struct {
	saved map[string]int
	err   error
}

func (f *fakeStore) SaveCandidates(_ context.Context, source string, items []domain.CandidateItem) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.saved == nil {
		f.saved = map[string]int{}
	}
	f.saved[source] += len(items)
	return len(items), nil
}
