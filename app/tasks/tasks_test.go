package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/earl/app/database"
	"github.com/lysyi3m/earl/app/feed"
)

const testRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Channel</title>
    <link>https://example.com</link>
    <description>Channel description</description>
    <item>
      <title>Go release</title>
      <link>%s/articles/go</link>
      <guid>go-release</guid>
      <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
    </item>
    <item>
      <title>Spam offer</title>
      <link>%s/articles/spam</link>
      <guid>spam</guid>
      <pubDate>Mon, 02 Jan 2006 16:04:05 +0000</pubDate>
    </item>
  </channel>
</rss>`

const testArticle = `<html><head><title>Go release</title></head><body><article>
<p>The Go team is happy to announce a new release. This paragraph is long enough to look like the main content of a page.</p>
<p>Another paragraph follows with more details about the release and what changed since the previous version of the toolchain.</p>
<p>A further paragraph rounds things off so the readability scorer has enough text to be confident about the article body, with commas, clauses, and plenty of words.</p>
<p>Release notes list the changes to the compiler, the runtime, the standard library, and the tools, and explain how to upgrade existing projects safely.</p>
<p>Finally, thanks go to everyone who contributed code, reported bugs, reviewed changes, and tested the release candidates over the past months.</p>
</article></body></html>`

type fixture struct {
	env    *Env
	items  *database.ItemStore
	feeds  *database.FeedStore
	config *feed.Config

	mu   sync.Mutex
	hits map[string]string
}

func (f *fixture) hit(path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ua, ok := f.hits[path]
	return ua, ok
}

func (f *fixture) hitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hits)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	f := &fixture{hits: map[string]string{}}

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path] = r.UserAgent()
		f.mu.Unlock()

		switch {
		case r.URL.Path == "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(strings.ReplaceAll(testRSS, "%s", server.URL)))
		case strings.HasPrefix(r.URL.Path, "/articles/"):
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(testArticle))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	f.feeds = database.NewFeedStore(db)
	f.items = database.NewItemStore(db)
	f.env = &Env{
		FeedRepo:         f.feeds,
		ItemRepo:         f.items,
		HTTPClient:       server.Client(),
		UserAgent:        "earl-test",
		Parser:           feed.NewParser(),
		Filterer:         feed.NewFilterer(),
		ContentExtractor: feed.NewContentExtractor(),
	}
	f.config = &feed.Config{
		Name: "test",
		URL:  server.URL + "/feed.xml",
		Settings: feed.ConfigSettings{
			Enabled:         true,
			RefreshInterval: 3600,
			MaxItems:        10,
			Timeout:         5,
			ExtractContent:  true,
		},
		Filters: []feed.ConfigFilter{{Field: "title", Excludes: []string{"spam"}}},
	}

	return f
}

func (f *fixture) run(t *testing.T, task TaskInterface) {
	t.Helper()
	task.Start()
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected %s to succeed, got: %v", task.GetType(), err)
	}
}

func TestProcessFeedTask(t *testing.T) {
	f := newFixture(t)

	f.run(t, NewSyncFeedConfigTask(f.config, f.env))
	f.run(t, NewProcessFeedTask(f.config, f.env))

	if ua, _ := f.hit("/feed.xml"); ua != "earl-test" {
		t.Errorf("Expected feed fetched with user agent, got: %q", ua)
	}

	stored, err := f.feeds.GetFeed("test")
	if err != nil || stored == nil {
		t.Fatalf("Expected stored feed, got: %v, %v", stored, err)
	}
	if stored.Title != "Test Channel" || stored.NextFetchAt == nil {
		t.Errorf("Expected metadata and next fetch to be stored, got: %+v", stored)
	}

	total, visible, filtered, err := f.items.GetItemStats("test")
	if err != nil || total != 2 || visible != 1 || filtered != 1 {
		t.Fatalf("Expected 2 items with 1 filtered, got: %d/%d/%d (%v)", total, visible, filtered, err)
	}

	// A second run finds only duplicates
	f.run(t, NewProcessFeedTask(f.config, f.env))
	if total, _, _, _ := f.items.GetItemStats("test"); total != 2 {
		t.Errorf("Expected duplicates to be skipped, got: %d items", total)
	}
}

func TestProcessFeedTaskDisabled(t *testing.T) {
	f := newFixture(t)
	f.config.Settings.Enabled = false

	f.run(t, NewProcessFeedTask(f.config, f.env))

	if n := f.hitCount(); n != 0 {
		t.Errorf("Expected no requests for a disabled feed, got: %d", n)
	}
}

func TestProcessFeedTaskFetchError(t *testing.T) {
	f := newFixture(t)
	f.config.URL = strings.Replace(f.config.URL, "/feed.xml", "/missing.xml", 1)

	if err := NewProcessFeedTask(f.config, f.env).Execute(context.Background()); err == nil {
		t.Error("Expected error for a missing feed")
	}
}

func TestRefilterFeedTask(t *testing.T) {
	f := newFixture(t)
	f.run(t, NewSyncFeedConfigTask(f.config, f.env))
	f.run(t, NewProcessFeedTask(f.config, f.env))

	f.config.Filters = []feed.ConfigFilter{{Field: "title", Excludes: []string{"go"}}}
	f.run(t, NewRefilterFeedTask(f.config, f.env))

	items, err := f.items.GetVisibleItems("test", 0)
	if err != nil || len(items) != 1 || items[0].GUID != "spam" {
		t.Errorf("Expected only the spam item to remain visible, got: %+v (%v)", items, err)
	}
}

func TestExtractContentTask(t *testing.T) {
	f := newFixture(t)
	f.run(t, NewSyncFeedConfigTask(f.config, f.env))
	f.run(t, NewProcessFeedTask(f.config, f.env))
	f.run(t, NewExtractContentTask(f.config, f.env))

	if _, ok := f.hit("/articles/go"); !ok {
		t.Error("Expected visible article to be fetched")
	}
	if _, ok := f.hit("/articles/spam"); ok {
		t.Error("Expected filtered article not to be fetched")
	}

	items, err := f.items.GetVisibleItems("test", 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("Expected one visible item, got: %d (%v)", len(items), err)
	}
	if items[0].ContentExtractionStatus != database.ExtractionSuccess {
		t.Errorf("Expected extraction success, got: %s (%s)", items[0].ContentExtractionStatus, items[0].ContentExtractionError)
	}
	if !strings.Contains(items[0].Content, "happy to announce") {
		t.Errorf("Expected extracted article content, got: %s", items[0].Content)
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{40, 30 * time.Second},
	}

	for _, test := range tests {
		if got := retryDelay(test.attempt); got != test.expected {
			t.Errorf("Expected delay %v for attempt %d, got: %v", test.expected, test.attempt, got)
		}
	}
}

func TestTaskRetryCount(t *testing.T) {
	task := NewTask(TaskTypeProcessFeed, &feed.Config{Name: "test"}, nil)

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Expected no retries after the maximum")
	}
	if task.GetID() == "" || task.GetFeedName() != "test" {
		t.Errorf("Expected id and feed name to be set, got: %q, %q", task.GetID(), task.GetFeedName())
	}
}

func TestSchedulerEnqueueAfterStop(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(feed.NewConfigCache(t.TempDir()), f.env, time.Hour, 1)
	s.Start()
	s.Stop()

	if err := s.EnqueueTask(NewProcessFeedTask(f.config, f.env)); err == nil {
		t.Error("Expected enqueue to fail after stop")
	}
}
