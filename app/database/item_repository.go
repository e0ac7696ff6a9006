package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ItemStore struct {
	db *DB
}

func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemColumns = `i.id, i.feed_id, i.guid, i.link, i.title, i.description, i.content, i.image_url,
	i.published_at, i.updated_at, i.authors, i.categories, i.is_filtered, i.filter_reason,
	i.content_hash, i.created_at, i.content_extracted_at, i.content_extraction_status,
	i.content_extraction_error, i.extraction_attempts, i.enclosure_url, i.enclosure_length,
	i.enclosure_type`

// GetVisibleItems returns unfiltered items newest first. A limit of zero or
// less returns all of them.
func (r *ItemStore) GetVisibleItems(feedName string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items i JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = ? AND i.is_filtered = 0
		ORDER BY i.published_at DESC
		LIMIT ?
	`, feedName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query visible items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemStore) GetAllItems(feedName string) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items i JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = ?
		ORDER BY i.published_at DESC
	`, feedName)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemStore) GetItemCount(feedName string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM items i JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = ? AND i.is_filtered = 0
	`, feedName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// GetItemStats returns the total, visible and filtered item counts.
func (r *ItemStore) GetItemStats(feedName string) (int, int, int, error) {
	var total, filtered int
	err := r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(i.is_filtered), 0)
		FROM items i JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = ?
	`, feedName).Scan(&total, &filtered)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get item stats: %w", err)
	}
	return total, total - filtered, filtered, nil
}

// UpsertItem stores an item keyed by feed and GUID. Refreshing an existing
// item keeps its id, creation time and extraction state.
func (r *ItemStore) UpsertItem(feedName string, item FeedItem) error {
	feedID, err := r.feedID(feedName)
	if err != nil {
		return err
	}

	authors, err := json.Marshal(nonNil(item.Authors))
	if err != nil {
		return fmt.Errorf("failed to encode authors: %w", err)
	}
	categories, err := json.Marshal(nonNil(item.Categories))
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO items (
			id, feed_id, guid, link, title, description, content, image_url,
			published_at, updated_at, authors, categories, is_filtered, filter_reason,
			content_hash, created_at, enclosure_url, enclosure_length, enclosure_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_id, guid) DO UPDATE SET
			link = excluded.link,
			title = excluded.title,
			description = excluded.description,
			content = excluded.content,
			image_url = excluded.image_url,
			published_at = excluded.published_at,
			updated_at = excluded.updated_at,
			authors = excluded.authors,
			categories = excluded.categories,
			is_filtered = excluded.is_filtered,
			filter_reason = excluded.filter_reason,
			content_hash = excluded.content_hash,
			enclosure_url = excluded.enclosure_url,
			enclosure_length = excluded.enclosure_length,
			enclosure_type = excluded.enclosure_type
	`, uuid.NewString(), feedID, item.GUID, item.Link, item.Title, item.Description,
		item.Content, item.ImageURL, item.PublishedAt.UTC(), nullTime(item.UpdatedAt),
		string(authors), string(categories), item.IsFiltered, item.FilterReason,
		item.ContentHash, time.Now().UTC(), item.EnclosureURL, item.EnclosureLength,
		item.EnclosureType)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.GUID, err)
	}

	return nil
}

func (r *ItemStore) UpdateItemFilterStatus(itemID string, isFiltered bool, reason string) error {
	_, err := r.db.Exec(`UPDATE items SET is_filtered = ?, filter_reason = ? WHERE id = ?`,
		isFiltered, reason, itemID)
	if err != nil {
		return fmt.Errorf("failed to update filter status for item %s: %w", itemID, err)
	}
	return nil
}

func (r *ItemStore) CheckDuplicate(feedName, contentHash string) (bool, *string, error) {
	var id string
	err := r.db.QueryRow(`
		SELECT i.id FROM items i JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = ? AND i.content_hash = ?
		LIMIT 1
	`, feedName, contentHash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return true, &id, nil
}

// GetItemsForExtraction returns visible items with a link whose content has
// not been extracted yet, or whose earlier attempts failed fewer than
// MaxExtractionAttempts times.
func (r *ItemStore) GetItemsForExtraction(feedName string, limit int) ([]ItemForExtraction, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(`
		SELECT i.id, i.link FROM items i JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = ? AND i.is_filtered = 0 AND i.link != ''
			AND (i.content_extraction_status = ?
				OR (i.content_extraction_status = ? AND i.extraction_attempts < ?))
		ORDER BY i.published_at DESC
		LIMIT ?
	`, feedName, ExtractionPending, ExtractionFailed, MaxExtractionAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for extraction: %w", err)
	}
	defer rows.Close()

	var items []ItemForExtraction
	for rows.Next() {
		var item ItemForExtraction
		if err := rows.Scan(&item.ID, &item.Link); err != nil {
			return nil, fmt.Errorf("failed to scan item for extraction: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *ItemStore) UpdateExtractionStatus(itemID string, status string, extractedAt *time.Time, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE items SET
			content_extraction_status = ?,
			content_extracted_at = ?,
			content_extraction_error = ?,
			extraction_attempts = extraction_attempts + 1
		WHERE id = ?
	`, status, nullTime(extractedAt), errorMsg, itemID)
	if err != nil {
		return fmt.Errorf("failed to update extraction status for item %s: %w", itemID, err)
	}
	return nil
}

func (r *ItemStore) UpdateExtractedContentAndStatus(itemID string, content string, status string, extractedAt *time.Time, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE items SET
			content = ?,
			content_extraction_status = ?,
			content_extracted_at = ?,
			content_extraction_error = ?,
			extraction_attempts = extraction_attempts + 1
		WHERE id = ?
	`, content, status, nullTime(extractedAt), errorMsg, itemID)
	if err != nil {
		return fmt.Errorf("failed to update extracted content for item %s: %w", itemID, err)
	}
	return nil
}

func (r *ItemStore) feedID(feedName string) (string, error) {
	var id string
	err := r.db.QueryRow(`SELECT id FROM feeds WHERE name = ?`, feedName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("feed %s is not registered", feedName)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up feed %s: %w", feedName, err)
	}
	return id, nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	items := []Item{}

	for rows.Next() {
		var (
			item                   Item
			updatedAt, extractedAt sql.NullTime
			authors, categories    string
		)

		err := rows.Scan(&item.ID, &item.FeedID, &item.GUID, &item.Link, &item.Title,
			&item.Description, &item.Content, &item.ImageURL, &item.PublishedAt, &updatedAt,
			&authors, &categories, &item.IsFiltered, &item.FilterReason, &item.ContentHash,
			&item.CreatedAt, &extractedAt, &item.ContentExtractionStatus,
			&item.ContentExtractionError, &item.ExtractionAttempts, &item.EnclosureURL,
			&item.EnclosureLength, &item.EnclosureType)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		item.UpdatedAt = timePtr(updatedAt)
		item.ContentExtractedAt = timePtr(extractedAt)

		if err := json.Unmarshal([]byte(authors), &item.Authors); err != nil {
			return nil, fmt.Errorf("failed to decode authors of item %s: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(categories), &item.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories of item %s: %w", item.ID, err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
