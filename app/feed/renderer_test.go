package feed

import (
	"strings"
	"testing"
)

func TestRendererSanitize(t *testing.T) {
	r := NewRenderer()

	out := r.Sanitize(`<p onclick="evil()">Hello <script>alert(1)</script><a href="https://example.com">link</a></p>`)

	if strings.Contains(out, "script") || strings.Contains(out, "onclick") {
		t.Errorf("Expected unsafe markup to be removed, got: %s", out)
	}
	if !strings.Contains(out, "<p>Hello") || !strings.Contains(out, `href="https://example.com"`) {
		t.Errorf("Expected safe markup to be kept, got: %s", out)
	}
}

func TestRendererMarkdown(t *testing.T) {
	r := NewRenderer()

	md, err := r.Markdown(`<h2>Title</h2><p>Some <strong>bold</strong> text and a <a href="/post">link</a>.</p>`, "https://example.com")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, want := range []string{"## Title", "**bold**", "[link](https://example.com/post)"} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q, got: %s", want, md)
		}
	}
}

func TestRendererMarkdownDropsScripts(t *testing.T) {
	md, err := NewRenderer().Markdown(`<p>Safe</p><script>alert(1)</script>`, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if md != "Safe" {
		t.Errorf("Expected 'Safe', got: %q", md)
	}
}

func TestRendererMarkdownEmpty(t *testing.T) {
	md, err := NewRenderer().Markdown("   ", "")
	if err != nil || md != "" {
		t.Errorf("Expected empty markdown, got: %q (%v)", md, err)
	}
}
