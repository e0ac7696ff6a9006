package api

import (
	"time"

	"github.com/lysyi3m/earl/app/database"
	"github.com/lysyi3m/earl/app/feed"
	"github.com/lysyi3m/earl/app/tasks"
)

type GeneratorInterface interface {
	Run(feed database.Feed, items []database.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	env         *tasks.Env
	generator   GeneratorInterface
	renderer    *feed.Renderer
	configCache *feed.ConfigCache
	scheduler   tasks.TaskSchedulerInterface
}

// ItemResponse is a stored item as served by the items endpoint.
type ItemResponse struct {
	ID              string     `json:"id"`
	GUID            string     `json:"guid"`
	Title           string     `json:"title"`
	Link            string     `json:"link,omitempty"`
	Description     string     `json:"description,omitempty"`
	Content         string     `json:"content,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	PublishedAt     time.Time  `json:"published_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	Authors         []string   `json:"authors"`
	Categories      []string   `json:"categories"`
	EnclosureURL    string     `json:"enclosure_url,omitempty"`
	EnclosureType   string     `json:"enclosure_type,omitempty"`
	EnclosureLength int64      `json:"enclosure_length,omitempty"`
}
