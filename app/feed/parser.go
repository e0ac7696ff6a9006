package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/earl/app/parser"
	"github.com/lysyi3m/earl/app/xmlcursor"
	"github.com/mmcdole/gofeed"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported feed format")
	ErrUnknownFormat     = errors.New("unknown feed format")
)

type Parser struct {
	engine *parser.Parser
}

func NewParser(opts ...parser.Option) *Parser {
	return &Parser{
		engine: parser.NewParser(opts...),
	}
}

// Run rejects JSON feeds, parses the document and flattens every entry into
// an Item. The parsed document is returned as well for callers that need the
// dialect specific view.
func (p *Parser) Run(data []byte) (*Metadata, []Item, *parser.Document, error) {
	feedType := gofeed.DetectFeedType(bytes.NewReader(data))
	if feedType == gofeed.FeedTypeJSON {
		return nil, nil, nil, fmt.Errorf("failed to parse feed: %w: JSON Feed", ErrUnsupportedFormat)
	}

	// The sniffer only knows feed roots, a standalone Atom entry is left to
	// the engine to recognise
	doc, err := p.engine.Parse(xmlcursor.New(bytes.NewReader(data)))
	if err != nil {
		if feedType == gofeed.FeedTypeUnknown || errors.Is(err, parser.ErrUnknownRoot) {
			return nil, nil, nil, fmt.Errorf("failed to parse feed: %w: %w", ErrUnknownFormat, err)
		}
		return nil, nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := p.extractMetadata(doc)

	items := make([]Item, 0, len(doc.Items))
	for _, item := range doc.Items {
		normalized := p.normalizeItem(item)
		normalized.ContentHash = p.generateContentHash(normalized)
		items = append(items, normalized)
	}

	return metadata, items, doc, nil
}

func (p *Parser) extractMetadata(doc *parser.Document) *Metadata {
	metadata := &Metadata{
		Format:  string(doc.Format),
		Defects: len(doc.Defects),
	}

	switch {
	case doc.Atom != nil:
		f := doc.Atom
		metadata.Title = f.Title().Value
		metadata.Link, _ = f.Link()
		if subtitle, ok := f.Subtitle(); ok {
			metadata.Description = subtitle.Value
		}
		metadata.ImageURL = cmp.Or(f.Logo(), f.Icon())
		metadata.Language = f.Attributes().Lang
		metadata.FeedPublishedAt = knownTime(f.Updated().Time)
	case doc.RSS != nil:
		ch := doc.RSS
		metadata.Title = ch.Title()
		metadata.Link = ch.Link()
		metadata.Description = ch.Description()
		metadata.Language = ch.Language()
		if image, ok := ch.Image(); ok {
			metadata.ImageURL = image.URL
		}
		if d, ok := ch.PubDate(); ok {
			metadata.FeedPublishedAt = knownTime(d.Time)
		} else if d, ok := ch.LastBuildDate(); ok {
			metadata.FeedPublishedAt = knownTime(d.Time)
		}
	}

	return metadata
}

func (p *Parser) normalizeItem(item parser.Item) Item {
	link, _ := item.Link()
	description, _ := item.Description()
	imageURL, _ := item.ImageLink()

	normalized := Item{
		GUID:        cmp.Or(item.ID(), link),
		Title:       item.Title(),
		Link:        link,
		Description: description,
		ImageURL:    imageURL,
		PublishedAt: item.PublicationDate(),
		Authors:     []string{},
		Categories:  []string{},
	}

	switch it := item.(type) {
	case *parser.AtomEntry:
		if ct, ok := it.Content(); ok {
			normalized.Content = ct.Value
		}
		normalized.UpdatedAt = knownTime(it.Updated().Time)
		for _, person := range it.Authors() {
			if author := p.formatAuthor(person.Name, person.Email); author != "" {
				normalized.Authors = append(normalized.Authors, author)
			}
		}
		for _, category := range it.Categories() {
			if term := cmp.Or(category.Label, category.Term); term != "" {
				normalized.Categories = append(normalized.Categories, term)
			}
		}
	case *parser.RSSItem:
		if enc, ok := it.Encoded(); ok {
			normalized.Content = enc.Encoded
		} else if legacy, ok := it.LegacyContent(); ok {
			normalized.Content = legacy.CDATA
		}
		for _, category := range it.Categories() {
			if category.Term != "" {
				normalized.Categories = append(normalized.Categories, category.Term)
			}
		}
	}

	// Dialects without structured people only expose the best author name
	if len(normalized.Authors) == 0 {
		if author, ok := item.Author(); ok && strings.TrimSpace(author) != "" {
			normalized.Authors = append(normalized.Authors, strings.TrimSpace(author))
		}
	}

	// Only the first enclosure is kept, RSS 2.0 allows one per item
	if enclosures := item.Enclosures(); len(enclosures) > 0 {
		enclosure := enclosures[0]
		normalized.EnclosureURL = enclosure.Href
		normalized.EnclosureType = enclosure.Type

		if enclosure.Length != "" {
			if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil {
				normalized.EnclosureLength = length
			}
		}
	}

	return normalized
}

func (p *Parser) generateContentHash(item Item) string {
	content := fmt.Sprintf("%s|%s",
		item.Title,
		item.Link)

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func (p *Parser) formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" && email != "" {
		return fmt.Sprintf("%s (%s)", email, name)
	} else if name != "" {
		return name
	} else if email != "" {
		return email
	}

	return ""
}

// knownTime drops the epoch placeholder the engine uses for missing dates.
func knownTime(t time.Time) *time.Time {
	if t.Equal(time.Unix(0, 0)) {
		return nil
	}
	return &t
}
