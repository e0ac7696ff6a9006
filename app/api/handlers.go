package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/earl/app/database"
	"github.com/lysyi3m/earl/app/feed"
	"github.com/lysyi3m/earl/app/parser"
	"github.com/lysyi3m/earl/app/tasks"
)

func NewHandler(configCache *feed.ConfigCache, env *tasks.Env, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		env:         env,
		generator:   feed.NewGenerator(),
		renderer:    feed.NewRenderer(),
		configCache: configCache,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Debug("Feed configuration not found", "feed", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	stored, ok := h.storedFeed(c, name)
	if !ok {
		return
	}

	items, err := h.env.ItemRepo.GetVisibleItems(name, feedConfig.Settings.MaxItems)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(*stored, items)
	if err != nil {
		slog.Error("RSS generation error", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Header("X-Feed-Name", name)
	c.Header("X-Last-Updated", stored.UpdatedAt.Format(time.RFC3339))

	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(rss))
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
	}

	if feedCount, err := h.env.FeedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	} else {
		slog.Error("Database error", "operation", "get_feed_count", "error", err)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feeds := make([]gin.H, 0, len(configs))
	for _, feedConfig := range configs {
		feedInfo := gin.H{
			"name":             feedConfig.Name,
			"url":              feedConfig.URL,
			"title":            "",
			"enabled":          feedConfig.Settings.Enabled,
			"max_items":        feedConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(feedConfig.Filters),
		}

		if stored, err := h.env.FeedRepo.GetFeed(feedConfig.Name); err == nil && stored != nil {
			feedInfo["title"] = stored.Title
			feedInfo["last_fetched_at"] = stored.LastFetchedAt
			feedInfo["next_fetch_at"] = stored.NextFetchAt
		}

		if itemCount, err := h.env.ItemRepo.GetItemCount(feedConfig.Name); err == nil {
			feedInfo["item_count"] = itemCount
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	name := c.Param("name")

	feedConfig, ok := h.feedConfig(c, name)
	if !ok {
		return
	}
	stored, ok := h.storedFeed(c, name)
	if !ok {
		return
	}

	details := gin.H{
		"name":             name,
		"url":              feedConfig.URL,
		"title":            stored.Title,
		"link":             stored.Link,
		"description":      stored.Description,
		"language":         stored.Language,
		"image_url":        stored.ImageURL,
		"enabled":          feedConfig.Settings.Enabled,
		"extract_content":  feedConfig.Settings.ExtractContent,
		"max_items":        feedConfig.Settings.MaxItems,
		"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(feedConfig.Settings.Timeout) * time.Second).String(),
		"filters":          feedConfig.Filters,
		"database": gin.H{
			"id":              stored.ID,
			"last_fetched_at": stored.LastFetchedAt,
			"next_fetch_at":   stored.NextFetchAt,
			"created_at":      stored.CreatedAt,
			"updated_at":      stored.UpdatedAt,
		},
	}

	if total, visible, filtered, err := h.env.ItemRepo.GetItemStats(name); err == nil {
		details["items"] = gin.H{
			"total":    total,
			"visible":  visible,
			"filtered": filtered,
		}
	}

	c.JSON(http.StatusOK, details)
}

// APIGetItems serves visible items with their HTML either sanitized
// (format=html, the default) or converted to Markdown (format=markdown).
func (h *Handler) APIGetItems(c *gin.Context) {
	name := c.Param("name")

	format := c.DefaultQuery("format", "html")
	if format != "html" && format != "markdown" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be html or markdown"})
		return
	}

	feedConfig, ok := h.feedConfig(c, name)
	if !ok {
		return
	}

	limit := feedConfig.Settings.MaxItems
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, limit)
	}

	items, err := h.env.ItemRepo.GetVisibleItems(name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		r, err := h.renderItem(item, format)
		if err != nil {
			slog.Error("Failed to render item", "feed", name, "item_id", item.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render item"})
			return
		}
		response = append(response, r)
	}

	c.JSON(http.StatusOK, gin.H{
		"feed":   name,
		"format": format,
		"items":  response,
		"total":  len(response),
	})
}

func (h *Handler) renderItem(item database.Item, format string) (ItemResponse, error) {
	r := ItemResponse{
		ID:              item.ID,
		GUID:            item.GUID,
		Title:           item.Title,
		Link:            item.Link,
		ImageURL:        item.ImageURL,
		PublishedAt:     item.PublishedAt,
		UpdatedAt:       item.UpdatedAt,
		Authors:         item.Authors,
		Categories:      item.Categories,
		EnclosureURL:    item.EnclosureURL,
		EnclosureType:   item.EnclosureType,
		EnclosureLength: item.EnclosureLength,
	}

	if format == "html" {
		r.Description = h.renderer.Sanitize(item.Description)
		r.Content = h.renderer.Sanitize(item.Content)
		return r, nil
	}

	var err error
	if r.Description, err = h.renderer.Markdown(item.Description, item.Link); err != nil {
		return r, err
	}
	if r.Content, err = h.renderer.Markdown(item.Content, item.Link); err != nil {
		return r, err
	}
	return r, nil
}

// APIReloadFeed rereads a feed config from disk and schedules a sync,
// a refilter and a fetch for it.
func (h *Handler) APIReloadFeed(c *gin.Context) {
	name := c.Param("name")

	if _, ok := h.feedConfig(c, name); !ok {
		return
	}

	feedConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	// The sync runs inline so the follow-up tasks find the feed registered.
	syncTask := tasks.NewSyncFeedConfigTask(feedConfig, h.env)
	syncTask.Start()
	if err := syncTask.Execute(c.Request.Context()); err != nil {
		slog.Error("Error syncing feed config", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync feed config"})
		return
	}

	queued := []tasks.TaskInterface{tasks.NewRefilterFeedTask(feedConfig, h.env)}
	if feedConfig.Settings.Enabled {
		queued = append(queued, tasks.NewProcessFeedTask(feedConfig, h.env))
	}

	enqueued := make([]gin.H, 0, len(queued))
	for _, task := range queued {
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Error("Error enqueueing task", "type", task.GetType(), "feed", name, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Failed to enqueue task",
				"details": err.Error(),
			})
			return
		}
		enqueued = append(enqueued, gin.H{"id": task.GetID(), "type": task.GetType()})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"feed": gin.H{
			"name": name,
			"url":  feedConfig.URL,
		},
		"tasks": enqueued,
	})
}

// APIParse runs the posted document through the parser and returns its
// items and defects without storing anything.
func (h *Handler) APIParse(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxParseBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty request body"})
		return
	}

	_, _, doc, err := h.env.Parser.Run(data)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, feed.ErrUnsupportedFormat) || errors.Is(err, feed.ErrUnknownFormat) {
			status = http.StatusUnsupportedMediaType
		}

		response := gin.H{"error": err.Error()}
		var se *parser.SyntaxError
		if errors.As(err, &se) {
			response["element"] = se.Element
		}
		c.JSON(status, response)
		return
	}

	c.JSON(http.StatusOK, feed.NewDocumentView(doc))
}

func (h *Handler) feedConfig(c *gin.Context, name string) (*feed.Config, bool) {
	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return nil, false
	}
	return feedConfig, true
}

// storedFeed writes the error response itself when it returns false.
func (h *Handler) storedFeed(c *gin.Context, name string) (*database.Feed, bool) {
	stored, err := h.env.FeedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if stored == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found in database"})
		return nil, false
	}
	return stored, true
}
