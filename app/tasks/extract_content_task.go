package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/earl/app/database"
	"github.com/lysyi3m/earl/app/feed"
)

// ExtractContentTask replaces item content with the readable article found
// at the item's link.
type ExtractContentTask struct {
	Task
}

func NewExtractContentTask(feedConfig *feed.Config, env *Env) *ExtractContentTask {
	return &ExtractContentTask{Task: NewTask(TaskTypeExtractContent, feedConfig, env)}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !t.FeedConfig.Settings.ExtractContent {
		slog.Debug("Content extraction disabled for feed", "feed", t.FeedName)
		return nil
	}

	items, err := t.env.ItemRepo.GetItemsForExtraction(t.FeedName, t.FeedConfig.Settings.MaxItems)
	if err != nil {
		return fmt.Errorf("failed to get items for content extraction: %w", err)
	}

	if len(items) == 0 {
		slog.Debug("No items need content extraction", "feed", t.FeedName)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := t.extract(ctx, item); err != nil {
			slog.Error("Failed to extract content for item", "item_id", item.ID, "url", item.Link, "error", err)
			errorCount++

			now := time.Now().UTC()
			if err := t.env.ItemRepo.UpdateExtractionStatus(item.ID, database.ExtractionFailed, &now, err.Error()); err != nil {
				slog.Error("Failed to update content extraction status", "item_id", item.ID, "error", err)
			}
			continue
		}
		successCount++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extract(ctx context.Context, item database.ItemForExtraction) error {
	data, err := fetch(ctx, t.env, item.Link, t.timeout(), acceptHTML)
	if err != nil {
		return fmt.Errorf("failed to fetch article content: %w", err)
	}

	article, err := t.env.ContentExtractor.Run(data, item.Link)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	now := time.Now().UTC()
	err = t.env.ItemRepo.UpdateExtractedContentAndStatus(item.ID, article.Content, database.ExtractionSuccess, &now, "")
	if err != nil {
		return fmt.Errorf("failed to update extracted content and status: %w", err)
	}

	slog.Debug("Content extracted successfully", "item_id", item.ID, "url", item.Link, "content_length", len(article.Content))
	return nil
}
