package tasks

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/earl/app/database"
	"github.com/lysyi3m/earl/app/feed"
)

type TaskType string

const (
	TaskTypeExtractContent TaskType = "extract_content"
	TaskTypeProcessFeed    TaskType = "process_feed"
	TaskTypeRefilterFeed   TaskType = "refilter_feed"
	TaskTypeSyncFeedConfig TaskType = "sync_feed_config"
)

const (
	DefaultMaxRetries = 3
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetFeedName() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

// Env carries the collaborators shared by every task.
type Env struct {
	FeedRepo         database.FeedRepository
	ItemRepo         database.ItemRepository
	HTTPClient       *http.Client
	UserAgent        string
	Parser           *feed.Parser
	Filterer         *feed.Filterer
	ContentExtractor *feed.ContentExtractor
}

type Task struct {
	ID         string
	Type       TaskType
	FeedName   string
	FeedConfig *feed.Config
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time

	env *Env
}

func NewTask(taskType TaskType, feedConfig *feed.Config, env *Env) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		FeedName:   feedConfig.Name,
		FeedConfig: feedConfig,
		MaxRetries: DefaultMaxRetries,
		env:        env,
	}
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetFeedName() string {
	return t.FeedName
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func (t *Task) timeout() time.Duration {
	return time.Duration(t.FeedConfig.Settings.Timeout) * time.Second
}
