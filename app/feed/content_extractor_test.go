package feed

import (
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
	<title>Test Article</title>
	<meta property="og:image" content="https://example.com/cover.jpg">
</head>
<body>
	<header><nav>Navigation</nav></header>
	<main>
		<article>
			<h1>Main Article Title</h1>
			<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
			<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
			<p>Here is some more substantial content to ensure we meet the character threshold. This paragraph adds more context and information that would be valuable to readers.</p>
		</article>
	</main>
</body>
</html>`

func TestContentExtractorRun(t *testing.T) {
	article, err := NewContentExtractor().Run([]byte(articlePage), "https://example.com/post")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(article.Content, "main content of the article") {
		t.Errorf("Expected extracted content to contain main article text, got: %s", article.Content)
	}
	if article.Title == "" {
		t.Error("Expected a title")
	}
	if article.ImageURL != "https://example.com/cover.jpg" {
		t.Errorf("Expected og:image, got: %s", article.ImageURL)
	}
}

func TestContentExtractorRejectsEmptyInput(t *testing.T) {
	extractor := NewContentExtractor()

	if _, err := extractor.Run(nil, ""); err == nil {
		t.Error("Expected error for empty data")
	}
	if _, err := extractor.Run([]byte(articlePage), "http://[bad"); err == nil {
		t.Error("Expected error for invalid page URL")
	}
}

func TestFirstImage(t *testing.T) {
	tests := []struct {
		html     string
		expected string
	}{
		{`<div><p>text</p><img src="/a.png"><img src="/b.png"></div>`, "/a.png"},
		{`<div><img alt="no source"><img src="/b.png"></div>`, "/b.png"},
		{`<p>no images</p>`, ""},
	}

	for _, test := range tests {
		if got := firstImage(test.html); got != test.expected {
			t.Errorf("Expected %q for %s, got: %q", test.expected, test.html, got)
		}
	}
}
