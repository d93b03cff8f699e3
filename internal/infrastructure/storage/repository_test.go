package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"NoiseGate/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	ctx := context.Background()
	db, dialect, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "nested", "noisegate.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db, dialect)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	if err := repo.Ensure(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := repo.Ensure(ctx); err != nil {
		t.Fatalf("ensure must be idempotent: %v", err)
	}
	return repo
}

func candidate(title, url string) domain.CandidateItem {
	return domain.CandidateItem{
		Title:       title,
		URL:         url,
		Excerpt:     "excerpt of " + title,
		PublishedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveCandidatesGroupsStories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	n, err := repo.SaveCandidates(ctx, "wire-a", []domain.CandidateItem{
		candidate("Markets rally after Fed decision!", "https://a.example/1"),
		candidate("Comet visible tonight", "https://a.example/2"),
	})
	if err != nil || n != 2 {
		t.Fatalf("first save: n=%d err=%v", n, err)
	}

	n, err = repo.SaveCandidates(ctx, "wire-b", []domain.CandidateItem{
		candidate("markets rally after fed decision", "https://b.example/1"),
		candidate("Markets rally after Fed decision!", "https://a.example/1"),
		{Title: "", URL: "https://b.example/empty"},
	})
	if err != nil || n != 1 {
		t.Fatalf("second save: n=%d err=%v", n, err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (Stats{Items: 3, Unclassified: 3, StoryGroups: 2}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	items, err := repo.FetchUnclassified(ctx, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].StoryGroupID != items[2].StoryGroupID || items[0].StoryGroupID == items[1].StoryGroupID {
		t.Fatalf("unexpected grouping: %+v", items)
	}

	group, err := repo.StoryGroup(ctx, items[0].StoryGroupID)
	if err != nil {
		t.Fatalf("story group: %v", err)
	}
	if group.ItemCount != 2 || group.Title != "Markets rally after Fed decision!" {
		t.Fatalf("unexpected group: %+v", group)
	}
}

func TestSaveCandidatesRetitledURLAddsNoGroup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	if n, err := repo.SaveCandidates(ctx, "wire-a", []domain.CandidateItem{candidate("Comet visible tonight", "https://a.example/2")}); err != nil || n != 1 {
		t.Fatalf("first save: n=%d err=%v", n, err)
	}
	n, err := repo.SaveCandidates(ctx, "wire-a", []domain.CandidateItem{
		candidate("Comet visible tonight, updated", "https://a.example/2"),
		candidate("Eclipse next week", "https://a.example/3"),
		candidate("Eclipse next week (corrected)", "https://a.example/3"),
	})
	if err != nil || n != 1 {
		t.Fatalf("second save: n=%d err=%v", n, err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (Stats{Items: 2, Unclassified: 2, StoryGroups: 2}) {
		t.Fatalf("skipped urls must not leave empty story groups: %+v", stats)
	}
}

func TestFetchUnclassifiedOrderAndLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	for _, c := range []domain.CandidateItem{
		candidate("First", "https://x.example/1"),
		candidate("Second", "https://x.example/2"),
		candidate("Third", "https://x.example/3"),
	} {
		if _, err := repo.SaveCandidates(ctx, "x", []domain.CandidateItem{c}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	items, err := repo.FetchUnclassified(ctx, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 || items[0].Title != "First" || items[1].Title != "Second" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[0].Source != "x" || items[0].Excerpt != "excerpt of First" {
		t.Fatalf("fields not round-tripped: %+v", items[0])
	}
	if !items[0].PublishedAt.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published_at: %s", items[0].PublishedAt)
	}

	none, err := repo.FetchUnclassified(ctx, 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no items for max=0, got %d (%v)", len(none), err)
	}
}

func TestClassificationLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	if _, err := repo.SaveCandidates(ctx, "a", []domain.CandidateItem{
		candidate("Election results announced", "https://a.example/e"),
		candidate("Election results announced", "https://b.example/e"),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	items, err := repo.FetchUnclassified(ctx, 10)
	if err != nil || len(items) != 2 {
		t.Fatalf("fetch: %d %v", len(items), err)
	}

	first := domain.Classification{ID: items[0].ID, Category: domain.CategoryPolitics, Sentiment: domain.SentimentNeutral, Importance: 8}
	if err := repo.PersistItemClassification(ctx, first); err != nil {
		t.Fatalf("persist item: %v", err)
	}
	pending, _ := repo.FetchUnclassified(ctx, 10)
	if len(pending) != 2 {
		t.Fatalf("item must stay pending until the group is updated, got %d pending", len(pending))
	}

	if err := repo.PersistStoryGroupClassification(ctx, first); err != nil {
		t.Fatalf("persist group: %v", err)
	}
	pending, _ = repo.FetchUnclassified(ctx, 10)
	if len(pending) != 1 || pending[0].ID != items[1].ID {
		t.Fatalf("expected only the second item pending, got %+v", pending)
	}

	second := domain.Classification{ID: items[1].ID, Category: domain.CategoryWorld, Sentiment: domain.SentimentNegative, Importance: 3}
	if err := repo.PersistItemClassification(ctx, second); err != nil {
		t.Fatalf("persist item: %v", err)
	}
	if err := repo.PersistStoryGroupClassification(ctx, second); err != nil {
		t.Fatalf("persist group: %v", err)
	}

	group, err := repo.StoryGroup(ctx, items[0].StoryGroupID)
	if err != nil {
		t.Fatalf("story group: %v", err)
	}
	if group.Category != domain.CategoryWorld || group.Sentiment != domain.SentimentNegative {
		t.Fatalf("expected last write to win for category/sentiment: %+v", group)
	}
	if group.Importance != 8 {
		t.Fatalf("expected max importance 8, got %d", group.Importance)
	}

	// Re-classifying is idempotent.
	if err := repo.PersistItemClassification(ctx, second); err != nil {
		t.Fatalf("reclassify item: %v", err)
	}
	if err := repo.PersistStoryGroupClassification(ctx, second); err != nil {
		t.Fatalf("reclassify group: %v", err)
	}
}

func TestPersistUnknownItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	c := domain.Classification{ID: "missing", Category: domain.CategoryOther, Sentiment: domain.SentimentNeutral, Importance: 1}

	if err := repo.PersistItemClassification(ctx, c); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.PersistStoryGroupClassification(ctx, c); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	t.Parallel()

	if d, err := DialectFor("POSTGRES"); err != nil || d.Name != "postgres" {
		t.Fatalf("unexpected dialect: %+v %v", d, err)
	}
	if _, err := DialectFor("mysql"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
