package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/earl/app/cfg"
	"github.com/lysyi3m/earl/app/database"
)

const rssHeader = `<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:media="http://search.yahoo.com/mrss/">`

// Generator renders stored items back out as RSS 2.0.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(feed database.Feed, items []database.Item) (string, error) {
	w := &rssWriter{}

	w.raw(0, xml.Header[:len(xml.Header)-1])
	w.raw(0, rssHeader)
	w.raw(1, "<channel>")

	w.element(2, "title", cmp.Or(feed.Title, feed.Name))
	w.element(2, "link", feed.Link)
	w.element(2, "description", cmp.Or(feed.Description, fmt.Sprintf("Items from %s", feed.FeedURL)))
	w.empty(2, "atom:link", "href", g.selfLink(feed.Name), "rel", "self", "type", "application/rss+xml")
	w.element(2, "language", feed.Language)
	if feed.FeedPublishedAt != nil {
		w.element(2, "pubDate", feed.FeedPublishedAt.Format(time.RFC1123Z))
	}
	w.element(2, "lastBuildDate", g.lastBuildDate(items).Format(time.RFC1123Z))
	w.element(2, "generator", "earl/"+cfg.Get().Version)

	if feed.ImageURL != "" {
		w.raw(2, "<image>")
		w.element(3, "url", feed.ImageURL)
		w.element(3, "title", cmp.Or(feed.Title, feed.Name))
		w.element(3, "link", feed.Link)
		w.raw(2, "</image>")
	}

	for _, item := range items {
		g.writeItem(w, item)
	}

	w.raw(1, "</channel>")
	w.buf.WriteString("</rss>")

	return w.buf.String(), nil
}

func (g *Generator) writeItem(w *rssWriter, item database.Item) {
	w.raw(2, "<item>")

	if item.GUID != "" {
		w.attrElement(3, "guid", item.GUID, "isPermaLink", strconv.FormatBool(isURL(item.GUID)))
	}
	w.element(3, "title", item.Title)
	w.element(3, "link", item.Link)
	w.element(3, "description", cmp.Or(item.Description, "No description available"))
	if item.Content != "" && item.Content != item.Description {
		w.cdata(3, "content:encoded", item.Content)
	}
	w.element(3, "pubDate", item.PublishedAt.Format(time.RFC1123Z))
	if len(item.Authors) > 0 {
		w.element(3, "author", item.Authors[0])
	}
	for _, category := range item.Categories {
		w.element(3, "category", category)
	}

	// RSS 2.0 requires url, length and type on an enclosure
	if item.EnclosureURL != "" && item.EnclosureType != "" {
		w.empty(3, "enclosure",
			"url", item.EnclosureURL,
			"length", strconv.FormatInt(item.EnclosureLength, 10),
			"type", item.EnclosureType)
	}
	if item.ImageURL != "" && item.ImageURL != item.EnclosureURL {
		w.empty(3, "media:thumbnail", "url", item.ImageURL)
	}

	w.raw(2, "</item>")
}

func (g *Generator) selfLink(name string) string {
	c := cfg.Get()
	if c.BaseUrl != "" {
		return fmt.Sprintf("%s/feeds/%s", strings.TrimRight(c.BaseUrl, "/"), name)
	}
	return fmt.Sprintf("http://localhost:%s/feeds/%s", c.Port, name)
}

// lastBuildDate is the newest item's date. Items arrive newest first.
func (g *Generator) lastBuildDate(items []database.Item) time.Time {
	if len(items) == 0 {
		return time.Now()
	}
	if items[0].PublishedAt.IsZero() {
		return items[0].CreatedAt
	}
	return items[0].PublishedAt
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

type rssWriter struct {
	buf bytes.Buffer
}

func (w *rssWriter) indent(level int) {
	w.buf.WriteString(strings.Repeat("  ", level))
}

func (w *rssWriter) raw(level int, s string) {
	w.indent(level)
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

// element writes <tag>text</tag> and nothing at all for empty text.
func (w *rssWriter) element(level int, tag, text string) {
	w.attrElement(level, tag, text)
}

func (w *rssWriter) attrElement(level int, tag, text string, attrs ...string) {
	if text == "" {
		return
	}
	w.open(level, tag, attrs)
	w.buf.WriteByte('>')
	xml.EscapeText(&w.buf, []byte(text))
	w.buf.WriteString("</" + tag + ">\n")
}

func (w *rssWriter) cdata(level int, tag, text string) {
	w.open(level, tag, nil)
	w.buf.WriteString("><![CDATA[")
	w.buf.WriteString(strings.ReplaceAll(text, "]]>", "]]]]><![CDATA[>"))
	w.buf.WriteString("]]></" + tag + ">\n")
}

// empty writes a self-closing tag from attribute name/value pairs.
func (w *rssWriter) empty(level int, tag string, attrs ...string) {
	w.open(level, tag, attrs)
	w.buf.WriteString(" />\n")
}

func (w *rssWriter) open(level int, tag string, attrs []string) {
	w.indent(level)
	w.buf.WriteString("<" + tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		w.buf.WriteString(" " + attrs[i] + `="`)
		xml.EscapeText(&w.buf, []byte(attrs[i+1]))
		w.buf.WriteByte('"')
	}
}
