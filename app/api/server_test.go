package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/earl/app/cfg"
	"github.com/lysyi3m/earl/app/database"
	"github.com/lysyi3m/earl/app/feed"
	"github.com/lysyi3m/earl/app/tasks"
)

const testKey = "secret"

type recordingScheduler struct {
	tasks []tasks.TaskInterface
}

func (s *recordingScheduler) Start() {}
func (s *recordingScheduler) Stop() {}

func (s *recordingScheduler) EnqueueTask(task tasks.TaskInterface) error {
	s.tasks = append(s.tasks, task)
	return nil
}

func setupServer(t *testing.T) (*gin.Engine, *recordingScheduler) {
	t.Helper()

	t.Setenv("BASE_URL", "")
	if _, err := cfg.LoadArgs([]string{}); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	feedsDir := t.TempDir()
	config := "url: \"https://example.com/feed.xml\"\nsettings:\n  enabled: true\n"
	if err := os.WriteFile(filepath.Join(feedsDir, "news.yml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	configCache := feed.NewConfigCache(feedsDir)
	if err := configCache.Run(); err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}

	feeds := database.NewFeedStore(db)
	items := database.NewItemStore(db)
	if err := feeds.UpsertFeed("news", "https://example.com/feed.xml"); err != nil {
		t.Fatal(err)
	}
	err = items.UpsertItem("news", database.FeedItem{
		GUID:        "https://example.com/hello",
		Title:       "Hello",
		Link:        "https://example.com/hello",
		Description: `<p>Hi <script>alert(1)</script><a href="/more">more</a></p>`,
		Content:     "<h2>Heading</h2><p>Body</p>",
		PublishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ContentHash: "h1",
	})
	if err != nil {
		t.Fatal(err)
	}

	env := &tasks.Env{
		FeedRepo: feeds,
		ItemRepo: items,
		Parser:   feed.NewParser(),
		Filterer: feed.NewFilterer(),
	}
	scheduler := &recordingScheduler{}

	return NewServer(NewHandler(configCache, env, scheduler), testKey), scheduler
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	r, _ := setupServer(t)

	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}

	var health map[string]any
	decode(t, w, &health)
	if health["feeds"] != float64(1) || health["loaded_configurations"] != float64(1) {
		t.Errorf("Expected 1 feed and 1 config, got: %v", health)
	}
}

func TestGetFeed(t *testing.T) {
	r, _ := setupServer(t)

	w := do(r, http.MethodGet, "/feeds/news", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Expected XML content type, got: %s", ct)
	}
	if w.Header().Get("X-Feed-Items") != "1" {
		t.Errorf("Expected 1 item header, got: %s", w.Header().Get("X-Feed-Items"))
	}
	if !strings.Contains(w.Body.String(), "<title>Hello</title>") {
		t.Errorf("Expected item in feed, got: %s", w.Body.String())
	}

	if w := do(r, http.MethodGet, "/feeds/unknown", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown feed, got: %d", w.Code)
	}
}

func TestAuth(t *testing.T) {
	r, _ := setupServer(t)

	tests := []struct {
		name     string
		headers  []string
		expected int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", []string{"X-API-Key", "nope"}, http.StatusUnauthorized},
		{"header key", []string{"X-API-Key", testKey}, http.StatusOK},
		{"bearer token", []string{"Authorization", "Bearer " + testKey}, http.StatusOK},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if w := do(r, http.MethodGet, "/api/feeds", "", test.headers...); w.Code != test.expected {
				t.Errorf("Expected %d, got: %d", test.expected, w.Code)
			}
		})
	}
}

func TestAPIGetItems(t *testing.T) {
	r, _ := setupServer(t)

	w := do(r, http.MethodGet, "/api/feeds/news/items", "", "X-API-Key", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d (%s)", w.Code, w.Body.String())
	}

	var html struct {
		Format string         `json:"format"`
		Items  []ItemResponse `json:"items"`
	}
	decode(t, w, &html)
	if html.Format != "html" || len(html.Items) != 1 {
		t.Fatalf("Expected one html item, got: %+v", html)
	}
	if strings.Contains(html.Items[0].Description, "script") {
		t.Errorf("Expected sanitized description, got: %s", html.Items[0].Description)
	}

	w = do(r, http.MethodGet, "/api/feeds/news/items?format=markdown", "", "X-API-Key", testKey)
	var md struct {
		Items []ItemResponse `json:"items"`
	}
	decode(t, w, &md)
	if len(md.Items) != 1 || !strings.Contains(md.Items[0].Content, "## Heading") {
		t.Errorf("Expected markdown content, got: %+v", md.Items)
	}
	if !strings.Contains(md.Items[0].Description, "(https://example.com/more)") {
		t.Errorf("Expected links resolved against the item link, got: %s", md.Items[0].Description)
	}

	if w := do(r, http.MethodGet, "/api/feeds/news/items?format=pdf", "", "X-API-Key", testKey); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown format, got: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/feeds/unknown/items", "", "X-API-Key", testKey); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown feed, got: %d", w.Code)
	}
}

func TestAPIParse(t *testing.T) {
	r, _ := setupServer(t)

	atom := `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>T</title>
  <id>urn:feed</id>
  <updated>2024-01-01T00:00:00Z</updated>
  <entry>
    <id>urn:entry:1</id>
    <title>First</title>
    <updated>2024-01-02T00:00:00Z</updated>
    <link href="https://example.com/1"/>
  </entry>
  <entry>
    <id>urn:entry:2</id>
    <updated>2024-01-03T00:00:00Z</updated>
  </entry>
</feed>`

	w := do(r, http.MethodPost, "/api/parse", atom, "X-API-Key", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d (%s)", w.Code, w.Body.String())
	}

	var doc feed.DocumentView
	decode(t, w, &doc)
	if doc.Format != "atom" || len(doc.Items) != 2 {
		t.Fatalf("Expected 2 atom items, got: %+v", doc)
	}
	if doc.Items[0].ID != "urn:entry:1" || doc.Items[0].Link != "https://example.com/1" {
		t.Errorf("Expected first item contract values, got: %+v", doc.Items[0])
	}
	if len(doc.Defects) == 0 {
		t.Error("Expected a defect for the entry without a title")
	}

	if w := do(r, http.MethodPost, "/api/parse", `{"version": "https://jsonfeed.org/version/1"}`, "X-API-Key", testKey); w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415 for JSON Feed, got: %d", w.Code)
	}

	w = do(r, http.MethodPost, "/api/parse", `<rss version="2.0"><channel><item><title>cut`, "X-API-Key", testKey)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for malformed document, got: %d", w.Code)
	}

	if w := do(r, http.MethodPost, "/api/parse", "", "X-API-Key", testKey); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty body, got: %d", w.Code)
	}
}

func TestAPIReloadFeed(t *testing.T) {
	r, scheduler := setupServer(t)

	w := do(r, http.MethodPost, "/api/feeds/news/reload", "", "X-API-Key", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d (%s)", w.Code, w.Body.String())
	}

	if len(scheduler.tasks) != 2 {
		t.Fatalf("Expected 2 tasks enqueued, got: %d", len(scheduler.tasks))
	}
	if scheduler.tasks[0].GetType() != tasks.TaskTypeRefilterFeed || scheduler.tasks[1].GetType() != tasks.TaskTypeProcessFeed {
		t.Errorf("Expected refilter then process tasks, got: %s, %s", scheduler.tasks[0].GetType(), scheduler.tasks[1].GetType())
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	configCache := feed.NewConfigCache(t.TempDir())
	r := NewServer(NewHandler(configCache, &tasks.Env{}, &recordingScheduler{}), "")

	if w := do(r, http.MethodGet, "/api/feeds", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected API routes to be absent, got: %d", w.Code)
	}
}
