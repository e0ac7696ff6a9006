package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

type Article struct {
	Title    string
	Content  string
	ImageURL string
}

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run extracts the main article from an HTML page. pageURL resolves
// relative links and may be empty.
func (e *ContentExtractor) Run(data []byte, pageURL string) (*Article, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	var base *url.URL
	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("invalid page URL: %w", err)
		}
		base = u
	}

	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	if strings.TrimSpace(article.Content) == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	result := &Article{
		Title:    article.Title,
		Content:  article.Content,
		ImageURL: article.Image,
	}
	if result.ImageURL == "" {
		result.ImageURL = firstImage(article.Content)
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(article.Content),
		"image", result.ImageURL != "")

	return result, nil
}

func firstImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}
