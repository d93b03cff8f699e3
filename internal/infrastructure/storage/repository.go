package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NoiseGate/internal/domain"
	"NoiseGate/internal/ports"
)

// ErrNotFound is returned when a classification targets an unknown item.
var ErrNotFound = errors.New("not found")

// Repository persists feed items and story groups in Postgres or SQLite.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var (
	_ ports.UnclassifiedSource = (*Repository)(nil)
	_ ports.ClassificationSink = (*Repository)(nil)
	_ ports.CandidateStore     = (*Repository)(nil)
)

// NewRepository wires a sql.DB opened for dialect.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.placeholder),
		now:     time.Now,
	}
}

// Ensure creates the schema when it does not exist yet.
func (r *Repository) Ensure(ctx context.Context) error {
	ts := r.dialect.timestamp
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS story_groups (
    id TEXT PRIMARY KEY,
    story_key TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    category TEXT,
    sentiment TEXT,
    importance INTEGER,
    item_count INTEGER NOT NULL DEFAULT 0,
    classified_at %[1]s,
    created_at %[1]s NOT NULL
);
CREATE TABLE IF NOT EXISTS feed_items (
    id TEXT PRIMARY KEY,
    story_group_id TEXT NOT NULL REFERENCES story_groups(id),
    source TEXT NOT NULL,
    title TEXT NOT NULL,
    url TEXT NOT NULL UNIQUE,
    excerpt TEXT NOT NULL DEFAULT '',
    published_at %[1]s NOT NULL,
    category TEXT,
    sentiment TEXT,
    importance INTEGER,
    classified_at %[1]s,
    created_at %[1]s NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feed_items_pending ON feed_items (classified_at, created_at);
CREATE INDEX IF NOT EXISTS idx_feed_items_group ON feed_items (story_group_id);
`, ts))
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveCandidates stores new items, attaching each to the story group of its
// title fingerprint. Items whose URL is already known are skipped.
func (r *Repository) SaveCandidates(ctx context.Context, source string, items []domain.CandidateItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, item := range items {
		if item.Title == "" || item.URL == "" {
			continue
		}
		known, err := r.urlKnown(ctx, tx, item.URL)
		if err != nil {
			return 0, err
		}
		if known {
			continue
		}

		now := r.now().UTC()
		groupID, err := r.upsertGroup(ctx, tx, item.Title, now)
		if err != nil {
			return 0, err
		}

		published := item.PublishedAt.UTC()
		if item.PublishedAt.IsZero() {
			published = now
		}
		query, args, err := r.sb.Insert("feed_items").
			Columns("id", "story_group_id", "source", "title", "url", "excerpt", "published_at", "created_at").
			Values(uuid.NewString(), groupID, source, item.Title, item.URL, item.Excerpt, published, now).
			Suffix("ON CONFLICT (url) DO NOTHING").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build insert item: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert item %s: %w", item.URL, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}

		query, args, err = r.sb.Update("story_groups").
			Set("item_count", sq.Expr("item_count + 1")).
			Where(sq.Eq{"id": groupID}).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build group count: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("count group %s: %w", groupID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *Repository) urlKnown(ctx context.Context, tx *sql.Tx, url string) (bool, error) {
	query, args, err := r.sb.Select("1").From("feed_items").Where(sq.Eq{"url": url}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build select url: %w", err)
	}
	var one int
	err = tx.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("select url %s: %w", url, err)
	}
	return true, nil
}

func (r *Repository) upsertGroup(ctx context.Context, tx *sql.Tx, title string, now time.Time) (string, error) {
	key := domain.StoryKey(title)
	query, args, err := r.sb.Insert("story_groups").
		Columns("id", "story_key", "title", "item_count", "created_at").
		Values(uuid.NewString(), key, title, 0, now).
		Suffix("ON CONFLICT (story_key) DO NOTHING").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert group: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert group: %w", err)
	}

	query, args, err = r.sb.Select("id").From("story_groups").Where(sq.Eq{"story_key": key}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build select group: %w", err)
	}
	var id string
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("select group: %w", err)
	}
	return id, nil
}

// FetchUnclassified returns up to max pending items, oldest first.
func (r *Repository) FetchUnclassified(ctx context.Context, max int) ([]domain.FeedItem, error) {
	if max <= 0 {
		return []domain.FeedItem{}, nil
	}

	query, args, err := r.sb.
		Select("id", "story_group_id", "source", "title", "url", "excerpt", "published_at").
		From("feed_items").
		Where(sq.Eq{"classified_at": nil}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(max)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unclassified: %w", err)
	}

	items := make([]domain.FeedItem, 0, max)
	for rows.Next() {
		var it domain.FeedItem
		if err := rows.Scan(&it.ID, &it.StoryGroupID, &it.Source, &it.Title, &it.URL, &it.Excerpt, &it.PublishedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.PublishedAt = it.PublishedAt.UTC()
		items = append(items, it)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return items, nil
}

// PersistItemClassification writes the verdict onto the item. The item stays
// pending until its story group has been updated too.
func (r *Repository) PersistItemClassification(ctx context.Context, c domain.Classification) error {
	query, args, err := r.sb.Update("feed_items").
		Set("category", string(c.Category)).
		Set("sentiment", string(c.Sentiment)).
		Set("importance", c.Importance).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update item: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update item %s: %w", c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("item %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

// PersistStoryGroupClassification folds the verdict into the item's story
// group and marks the item classified in the same transaction. Category and
// sentiment follow the latest member; importance keeps the maximum.
func (r *Repository) PersistStoryGroupClassification(ctx context.Context, c domain.Classification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.sb.Select("story_group_id").From("feed_items").Where(sq.Eq{"id": c.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build select item: %w", err)
	}
	var groupID string
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("item %s: %w", c.ID, ErrNotFound)
		}
		return fmt.Errorf("select item %s: %w", c.ID, err)
	}

	now := r.now().UTC()
	query, args, err = r.sb.Update("story_groups").
		Set("category", string(c.Category)).
		Set("sentiment", string(c.Sentiment)).
		Set("importance", sq.Expr("CASE WHEN importance IS NULL OR importance < ? THEN ? ELSE importance END", c.Importance, c.Importance)).
		Set("classified_at", now).
		Where(sq.Eq{"id": groupID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update group: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update group %s: %w", groupID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("story group %s: %w", groupID, ErrNotFound)
	}

	query, args, err = r.sb.Update("feed_items").Set("classified_at", now).Where(sq.Eq{"id": c.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build mark item: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark item %s: %w", c.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// StoryGroup loads a group by id.
func (r *Repository) StoryGroup(ctx context.Context, id string) (domain.StoryGroup, error) {
	query, args, err := r.sb.
		Select("id", "story_key", "title", "category", "sentiment", "importance", "item_count").
		From("story_groups").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.StoryGroup{}, fmt.Errorf("build select group: %w", err)
	}

	var (
		g          domain.StoryGroup
		category   sql.NullString
		sentiment  sql.NullString
		importance sql.NullInt64
	)
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&g.ID, &g.StoryKey, &g.Title, &category, &sentiment, &importance, &g.ItemCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StoryGroup{}, fmt.Errorf("story group %s: %w", id, ErrNotFound)
		}
		return domain.StoryGroup{}, fmt.Errorf("select group %s: %w", id, err)
	}
	g.Category = domain.Category(category.String)
	g.Sentiment = domain.Sentiment(sentiment.String)
	g.Importance = int(importance.Int64)
	return g, nil
}

// Stats summarizes the store contents.
type Stats struct {
	Items        int `json:"items"`
	Unclassified int `json:"unclassified"`
	StoryGroups  int `json:"storyGroups"`
}

// Stats counts items, pending items and story groups.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	counts := []struct {
		dst   *int
		query sq.SelectBuilder
	}{
		{&s.Items, r.sb.Select("COUNT(*)").From("feed_items")},
		{&s.Unclassified, r.sb.Select("COUNT(*)").From("feed_items").Where(sq.Eq{"classified_at": nil})},
		{&s.StoryGroups, r.sb.Select("COUNT(*)").From("story_groups")},
	}
	for _, c := range counts {
		query, args, err := c.query.ToSql()
		if err != nil {
			return Stats{}, fmt.Errorf("build count: %w", err)
		}
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("count: %w", err)
		}
	}
	return s, nil
}
