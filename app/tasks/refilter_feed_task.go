package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/earl/app/database"
	"github.com/lysyi3m/earl/app/feed"
)

// RefilterFeedTask re-applies the current filters to every stored item of a
// feed, so a config change also affects items fetched before it.
type RefilterFeedTask struct {
	Task
}

func NewRefilterFeedTask(feedConfig *feed.Config, env *Env) *RefilterFeedTask {
	return &RefilterFeedTask{Task: NewTask(TaskTypeRefilterFeed, feedConfig, env)}
}

func (t *RefilterFeedTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	items, err := t.env.ItemRepo.GetAllItems(t.FeedName)
	if err != nil {
		return fmt.Errorf("failed to get feed items: %w", err)
	}

	feedItems := make([]feed.Item, len(items))
	for i, item := range items {
		feedItems[i] = fromStored(item)
	}

	updatedCount := 0
	errorCount := 0

	for i, filtered := range t.env.Filterer.Run(feedItems, t.FeedConfig) {
		stored := items[i]
		if stored.IsFiltered == filtered.IsFiltered && stored.FilterReason == filtered.FilterReason {
			continue
		}

		if err := t.env.ItemRepo.UpdateItemFilterStatus(stored.ID, filtered.IsFiltered, filtered.FilterReason); err != nil {
			slog.Error("Failed to update item filter status", "item_id", stored.ID, "error", err)
			errorCount++
			continue
		}
		updatedCount++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"updated", updatedCount,
		"errors", errorCount)

	return nil
}

// fromStored rebuilds the fields filters look at.
func fromStored(item database.Item) feed.Item {
	return feed.Item{
		GUID:        item.GUID,
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Content:     item.Content,
		ImageURL:    item.ImageURL,
		PublishedAt: item.PublishedAt,
		UpdatedAt:   item.UpdatedAt,
		Authors:     item.Authors,
		Categories:  item.Categories,
		ContentHash: item.ContentHash,
	}
}
