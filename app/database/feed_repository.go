package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type FeedStore struct {
	db *DB
}

func NewFeedStore(db *DB) *FeedStore {
	return &FeedStore{db: db}
}

const feedColumns = `id, name, feed_url, link, title, description, image_url, language,
	last_fetched_at, next_fetch_at, feed_published_at, created_at, updated_at`

// GetFeed returns nil without an error for an unknown name.
func (r *FeedStore) GetFeed(feedName string) (*Feed, error) {
	row := r.db.QueryRow(`SELECT `+feedColumns+` FROM feeds WHERE name = ?`, feedName)

	var feed Feed
	var lastFetched, nextFetch, publishedAt sql.NullTime
	err := row.Scan(&feed.ID, &feed.Name, &feed.FeedURL, &feed.Link, &feed.Title,
		&feed.Description, &feed.ImageURL, &feed.Language,
		&lastFetched, &nextFetch, &publishedAt, &feed.CreatedAt, &feed.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed %s: %w", feedName, err)
	}

	feed.LastFetchedAt = timePtr(lastFetched)
	feed.NextFetchAt = timePtr(nextFetch)
	feed.FeedPublishedAt = timePtr(publishedAt)

	return &feed, nil
}

func (r *FeedStore) GetFeedCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

// UpsertFeed registers a feed by name or points an existing one at a new URL.
func (r *FeedStore) UpsertFeed(feedName, feedURL string) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO feeds (id, name, feed_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			feed_url = excluded.feed_url,
			updated_at = excluded.updated_at
	`, uuid.NewString(), feedName, feedURL, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert feed %s: %w", feedName, err)
	}

	return nil
}

func (r *FeedStore) UpdateFeedMetadata(feedName string, title string, link string, description string, imageURL string, language string, feedPublishedAt *time.Time, nextFetch time.Time) error {
	now := time.Now().UTC()

	res, err := r.db.Exec(`
		UPDATE feeds SET
			title = ?, link = ?, description = ?, image_url = ?, language = ?,
			feed_published_at = ?, last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
		WHERE name = ?
	`, title, link, description, imageURL, language,
		nullTime(feedPublishedAt), now, nextFetch.UTC(), now, feedName)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata for %s: %w", feedName, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update feed metadata: feed %s not found", feedName)
	}

	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
