package database

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("Expected clean schema version 1, got: %d (dirty=%v)", version, dirty)
	}

	return db
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	db := setupTestDB(t)

	if _, _, err := RunMigrations(db); err != nil {
		t.Errorf("Expected second migration run to be a no-op, got: %v", err)
	}
}

func TestFeedStore(t *testing.T) {
	feeds := NewFeedStore(setupTestDB(t))

	feed, err := feeds.GetFeed("missing")
	if err != nil || feed != nil {
		t.Fatalf("Expected nil feed without error, got: %v, %v", feed, err)
	}

	if err := feeds.UpsertFeed("news", "https://example.com/feed.xml"); err != nil {
		t.Fatalf("Failed to upsert feed: %v", err)
	}
	first, err := feeds.GetFeed("news")
	if err != nil || first == nil {
		t.Fatalf("Expected feed, got: %v, %v", first, err)
	}

	if err := feeds.UpsertFeed("news", "https://example.com/atom.xml"); err != nil {
		t.Fatalf("Failed to upsert feed again: %v", err)
	}
	second, err := feeds.GetFeed("news")
	if err != nil {
		t.Fatalf("Failed to get feed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected ID to be kept on upsert, got: %s and %s", first.ID, second.ID)
	}
	if second.FeedURL != "https://example.com/atom.xml" {
		t.Errorf("Expected updated feed URL, got: %s", second.FeedURL)
	}

	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	nextFetch := time.Now().Add(time.Hour)
	err = feeds.UpdateFeedMetadata("news", "News", "https://example.com", "All the news",
		"https://example.com/logo.png", "en", &published, nextFetch)
	if err != nil {
		t.Fatalf("Failed to update metadata: %v", err)
	}

	feed, err = feeds.GetFeed("news")
	if err != nil {
		t.Fatalf("Failed to get feed: %v", err)
	}
	if feed.Title != "News" || feed.Language != "en" || feed.ImageURL != "https://example.com/logo.png" {
		t.Errorf("Expected stored metadata, got: %+v", feed)
	}
	if feed.FeedPublishedAt == nil || !feed.FeedPublishedAt.Equal(published) {
		t.Errorf("Expected feed published at %v, got: %v", published, feed.FeedPublishedAt)
	}
	if feed.LastFetchedAt == nil || feed.NextFetchAt == nil {
		t.Error("Expected fetch times to be set")
	}

	if err := feeds.UpdateFeedMetadata("missing", "", "", "", "", "", nil, nextFetch); err == nil {
		t.Error("Expected error updating an unknown feed")
	}

	count, err := feeds.GetFeedCount()
	if err != nil || count != 1 {
		t.Errorf("Expected 1 feed, got: %d (%v)", count, err)
	}
}

func TestItemStore(t *testing.T) {
	db := setupTestDB(t)
	feeds := NewFeedStore(db)
	items := NewItemStore(db)

	if err := feeds.UpsertFeed("news", "https://example.com/feed.xml"); err != nil {
		t.Fatalf("Failed to upsert feed: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, guid := range []string{"a", "b", "c"} {
		err := items.UpsertItem("news", FeedItem{
			GUID:        guid,
			Title:       "Item " + guid,
			Link:        "https://example.com/" + guid,
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
			Authors:     []string{"jane@example.com (Jane)"},
			ContentHash: "hash-" + guid,
			IsFiltered:  guid == "b",
		})
		if err != nil {
			t.Fatalf("Failed to upsert item %s: %v", guid, err)
		}
	}

	if err := items.UpsertItem("unknown", FeedItem{GUID: "x"}); err == nil {
		t.Error("Expected error storing an item for an unregistered feed")
	}

	visible, err := items.GetVisibleItems("news", 0)
	if err != nil {
		t.Fatalf("Failed to get visible items: %v", err)
	}
	if len(visible) != 2 || visible[0].GUID != "c" || visible[1].GUID != "a" {
		t.Fatalf("Expected visible items [c a], got: %+v", visible)
	}
	if len(visible[0].Authors) != 1 || visible[0].Authors[0] != "jane@example.com (Jane)" {
		t.Errorf("Expected authors to round trip, got: %v", visible[0].Authors)
	}
	if visible[0].Categories == nil {
		t.Error("Expected empty categories, got nil")
	}
	if visible[0].ContentExtractionStatus != ExtractionPending {
		t.Errorf("Expected pending extraction, got: %s", visible[0].ContentExtractionStatus)
	}

	limited, err := items.GetVisibleItems("news", 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Expected one item with limit, got: %d (%v)", len(limited), err)
	}

	total, shown, filtered, err := items.GetItemStats("news")
	if err != nil || total != 3 || shown != 2 || filtered != 1 {
		t.Errorf("Expected stats 3/2/1, got: %d/%d/%d (%v)", total, shown, filtered, err)
	}

	// Upserting the same GUID keeps the row
	err = items.UpsertItem("news", FeedItem{
		GUID:        "a",
		Title:       "Item a, edited",
		PublishedAt: base,
		ContentHash: "hash-a2",
	})
	if err != nil {
		t.Fatalf("Failed to update item: %v", err)
	}
	all, err := items.GetAllItems("news")
	if err != nil || len(all) != 3 {
		t.Fatalf("Expected 3 items after update, got: %d (%v)", len(all), err)
	}
	if all[2].Title != "Item a, edited" || all[2].ID != visible[1].ID {
		t.Errorf("Expected item a to be updated in place, got: %+v", all[2])
	}

	dup, id, err := items.CheckDuplicate("news", "hash-c")
	if err != nil || !dup || id == nil || *id != visible[0].ID {
		t.Errorf("Expected duplicate of item c, got: %v, %v, %v", dup, id, err)
	}
	if dup, _, _ := items.CheckDuplicate("news", "hash-a"); dup {
		t.Error("Expected replaced hash to no longer match")
	}

	if err := items.UpdateItemFilterStatus(visible[0].ID, true, "excluded"); err != nil {
		t.Fatalf("Failed to update filter status: %v", err)
	}
	if count, _ := items.GetItemCount("news"); count != 1 {
		t.Errorf("Expected 1 visible item after filtering, got: %d", count)
	}
}

func TestItemExtractionQueue(t *testing.T) {
	db := setupTestDB(t)
	feeds := NewFeedStore(db)
	items := NewItemStore(db)

	if err := feeds.UpsertFeed("news", "https://example.com/feed.xml"); err != nil {
		t.Fatalf("Failed to upsert feed: %v", err)
	}
	for _, guid := range []string{"a", "b"} {
		item := FeedItem{GUID: guid, Link: "https://example.com/" + guid, PublishedAt: time.Now(), ContentHash: guid}
		if err := items.UpsertItem("news", item); err != nil {
			t.Fatalf("Failed to upsert item: %v", err)
		}
	}
	if err := items.UpsertItem("news", FeedItem{GUID: "nolink", PublishedAt: time.Now(), ContentHash: "n"}); err != nil {
		t.Fatalf("Failed to upsert item: %v", err)
	}

	queue, err := items.GetItemsForExtraction("news", 10)
	if err != nil || len(queue) != 2 {
		t.Fatalf("Expected 2 items queued, got: %d (%v)", len(queue), err)
	}

	now := time.Now()
	if err := items.UpdateExtractedContentAndStatus(queue[0].ID, "<p>full</p>", ExtractionSuccess, &now, ""); err != nil {
		t.Fatalf("Failed to store extracted content: %v", err)
	}

	// A failing item is retried until it runs out of attempts
	for attempt := 1; attempt <= MaxExtractionAttempts; attempt++ {
		pending, err := items.GetItemsForExtraction("news", 10)
		if err != nil || len(pending) != 1 || pending[0].ID != queue[1].ID {
			t.Fatalf("Expected item to be queued on attempt %d, got: %+v (%v)", attempt, pending, err)
		}
		if err := items.UpdateExtractionStatus(queue[1].ID, ExtractionFailed, &now, "boom"); err != nil {
			t.Fatalf("Failed to update extraction status: %v", err)
		}
	}

	pending, err := items.GetItemsForExtraction("news", 10)
	if err != nil || len(pending) != 0 {
		t.Errorf("Expected empty queue, got: %+v (%v)", pending, err)
	}

	all, err := items.GetAllItems("news")
	if err != nil {
		t.Fatalf("Failed to get items: %v", err)
	}
	for _, item := range all {
		if item.ID == queue[0].ID && item.Content != "<p>full</p>" {
			t.Errorf("Expected extracted content to be stored, got: %s", item.Content)
		}
	}
}
