package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/earl/app/feed"
)

// SyncFeedConfigTask registers a configured feed in the database.
type SyncFeedConfigTask struct {
	Task
}

func NewSyncFeedConfigTask(feedConfig *feed.Config, env *Env) *SyncFeedConfigTask {
	return &SyncFeedConfigTask{Task: NewTask(TaskTypeSyncFeedConfig, feedConfig, env)}
}

func (t *SyncFeedConfigTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := t.env.FeedRepo.UpsertFeed(t.FeedName, t.FeedConfig.URL); err != nil {
		return fmt.Errorf("failed to sync feed config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"duration", t.GetDuration())

	return nil
}
