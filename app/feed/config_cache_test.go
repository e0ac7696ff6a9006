package feed

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "tech.yml", `
url: "https://example.com/feed.xml"

settings:
  enabled: true
  refresh_interval: 1800
  max_items: 25
  timeout: 15
  extract_content: true

filters:
  - field: "title"
    includes:
      - "technology"
    excludes:
      - "spam"
`)
	writeConfig(t, tempDir, "news.yaml", `
url: "https://example.com/news.xml"
`)
	writeConfig(t, tempDir, "README.md", "not a config")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 2 {
		t.Errorf("Expected 2 configs, got: %d", configCache.GetConfigCount())
	}

	feedConfig, err := configCache.GetConfig("tech")
	if err != nil {
		t.Fatal(err)
	}
	if feedConfig.Name != "tech" || feedConfig.URL != "https://example.com/feed.xml" {
		t.Errorf("Expected tech config, got: %+v", feedConfig)
	}
	if feedConfig.Settings.RefreshInterval != 1800 || feedConfig.Settings.MaxItems != 25 || feedConfig.Settings.Timeout != 15 {
		t.Errorf("Expected explicit settings, got: %+v", feedConfig.Settings)
	}
	if !feedConfig.Settings.ExtractContent {
		t.Error("Expected content extraction to be enabled")
	}
	if len(feedConfig.Filters) != 1 {
		t.Errorf("Expected 1 filter, got: %d", len(feedConfig.Filters))
	}

	news, err := configCache.GetConfig("news")
	if err != nil {
		t.Fatal(err)
	}
	if news.Settings.RefreshInterval != DefaultRefreshInterval ||
		news.Settings.MaxItems != DefaultMaxItems ||
		news.Settings.Timeout != DefaultTimeout {
		t.Errorf("Expected default settings, got: %+v", news.Settings)
	}
	if news.Settings.Enabled {
		t.Error("Expected feed to be disabled by default")
	}

	if enabled := configCache.GetEnabledConfigs(); len(enabled) != 1 || enabled["tech"] == nil {
		t.Errorf("Expected only tech to be enabled, got: %v", enabled)
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "missing"))

	if err := configCache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got: %v", err)
	}
	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got: %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheGetConfigNotFound(t *testing.T) {
	configCache := NewConfigCache(t.TempDir())

	if _, err := configCache.GetConfig("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got: %v", err)
	}
	if _, err := configCache.LoadConfig("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound from LoadConfig, got: %v", err)
	}
}

func TestConfigCacheReloadConfig(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "feed.yml", `url: "https://example.com/a.xml"`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	writeConfig(t, tempDir, "feed.yml", `url: "https://example.com/b.xml"`)
	if _, err := configCache.LoadConfig("feed"); err != nil {
		t.Fatal(err)
	}

	feedConfig, _ := configCache.GetConfig("feed")
	if feedConfig.URL != "https://example.com/b.xml" {
		t.Errorf("Expected reloaded URL, got: %s", feedConfig.URL)
	}
}

func TestConfigCacheGetConfigsReturnsCopy(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "feed.yml", `url: "https://example.com/a.xml"`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	configs := configCache.GetConfigs()
	delete(configs, "feed")

	if configCache.GetConfigCount() != 1 {
		t.Error("Expected cache to be unaffected by changes to the returned map")
	}
}

func TestConfigCacheInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"missing url", `settings: {enabled: true}`, "feed URL is required"},
		{"relative url", `url: "/feed.xml"`, "absolute http(s) URL"},
		{"bad yaml", "url: [unclosed", "failed to parse YAML"},
		{"negative timeout", "url: \"https://example.com/f\"\nsettings: {timeout: -1}", "timeout must be non-negative"},
		{"unknown filter field", "url: \"https://example.com/f\"\nfilters: [{field: guid, includes: [x]}]", "invalid filter field at index 0: guid"},
		{"empty filter", "url: \"https://example.com/f\"\nfilters: [{field: title}]", "at least one include or exclude rule"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeConfig(t, tempDir, "feed.yml", test.content)

			err := NewConfigCache(tempDir).Run()
			if err == nil || !strings.Contains(err.Error(), test.errText) {
				t.Errorf("Expected error containing %q, got: %v", test.errText, err)
			}
		})
	}
}
