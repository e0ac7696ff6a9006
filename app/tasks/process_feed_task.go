package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/earl/app/database"
	"github.com/lysyi3m/earl/app/feed"
)

// ProcessFeedTask fetches a feed, stores its metadata and keeps every item
// not seen before, marking the ones the filters reject.
type ProcessFeedTask struct {
	Task
}

func NewProcessFeedTask(feedConfig *feed.Config, env *Env) *ProcessFeedTask {
	return &ProcessFeedTask{Task: NewTask(TaskTypeProcessFeed, feedConfig, env)}
}

func (t *ProcessFeedTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !t.FeedConfig.Settings.Enabled {
		slog.Debug("Feed disabled, skipping", "feed", t.FeedName)
		return nil
	}

	data, err := fetch(ctx, t.env, t.FeedConfig.URL, t.timeout(), nil)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, _, err := t.env.Parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}
	if metadata.Defects > 0 {
		slog.Warn("Feed parsed with defects", "feed", t.FeedName, "format", metadata.Format, "defects", metadata.Defects)
	}

	if err := t.storeFeedMetadata(metadata); err != nil {
		return fmt.Errorf("failed to store feed metadata: %w", err)
	}

	fresh := make([]feed.Item, 0, len(items))
	for _, item := range items {
		isDuplicate, _, err := t.env.ItemRepo.CheckDuplicate(t.FeedName, item.ContentHash)
		if err != nil {
			return fmt.Errorf("failed to check for duplicates: %w", err)
		}
		if !isDuplicate {
			fresh = append(fresh, item)
		}
	}

	filteredCount := 0
	for _, item := range t.env.Filterer.Run(fresh, t.FeedConfig) {
		if item.IsFiltered {
			filteredCount++
		}
		if err := t.env.ItemRepo.UpsertItem(t.FeedName, toStored(item)); err != nil {
			return fmt.Errorf("failed to upsert item: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"total", len(items),
		"duplicates", len(items)-len(fresh),
		"filtered", filteredCount,
		"new", len(fresh)-filteredCount)

	return nil
}

func (t *ProcessFeedTask) storeFeedMetadata(metadata *feed.Metadata) error {
	nextFetch := time.Now().UTC().Add(time.Duration(t.FeedConfig.Settings.RefreshInterval) * time.Second)

	err := t.env.FeedRepo.UpdateFeedMetadata(t.FeedName, metadata.Title, metadata.Link, metadata.Description,
		metadata.ImageURL, metadata.Language, metadata.FeedPublishedAt, nextFetch)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata and next fetch time: %w", err)
	}

	return nil
}

func toStored(item feed.Item) database.FeedItem {
	return database.FeedItem{
		GUID:            item.GUID,
		Link:            item.Link,
		Title:           item.Title,
		Description:     item.Description,
		Content:         item.Content,
		ImageURL:        item.ImageURL,
		PublishedAt:     item.PublishedAt,
		UpdatedAt:       item.UpdatedAt,
		Authors:         item.Authors,
		Categories:      item.Categories,
		IsFiltered:      item.IsFiltered,
		FilterReason:    item.FilterReason,
		ContentHash:     item.ContentHash,
		EnclosureURL:    item.EnclosureURL,
		EnclosureLength: item.EnclosureLength,
		EnclosureType:   item.EnclosureType,
	}
}
