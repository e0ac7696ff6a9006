package parser

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/earl/app/content"
	"github.com/lysyi3m/earl/app/xmlcursor"
)

type itemBuilder struct {
	title       string
	link        string
	description string
	author      string
	creator     string
	comments    string
	categories  []Category
	enclosures  []RSSEnclosure
	guid        *RSSGUID
	pubDate     *Date
	dcDate      *Date
	source      *RSSSource
	encoded     *ContentEncoded
	legacy      *RSSContent
}

// RSS 2.0 items carry no namespace, RSS 1.0 items live in the RSS 1.0
// namespace. Both share one element set.
var rssItemElements = map[string]handler[itemBuilder]{
	"title":       textField(func(b *itemBuilder) *string { return &b.title }),
	"link":        textField(func(b *itemBuilder) *string { return &b.link }),
	"description": textField(func(b *itemBuilder) *string { return &b.description }),
	"author":      textField(func(b *itemBuilder) *string { return &b.author }),
	"comments":    textField(func(b *itemBuilder) *string { return &b.comments }),
	"category": func(s *session, c Cursor, b *itemBuilder) error {
		domain := attr(c, "domain")
		v, err := c.ReadText()
		if err != nil {
			return err
		}
		b.categories = append(b.categories, Category{Term: strings.TrimSpace(v), Scheme: domain})
		return nil
	},
	"enclosure": func(s *session, c Cursor, b *itemBuilder) error {
		e := RSSEnclosure{URL: attr(c, "url"), Length: attr(c, "length"), Type: attr(c, "type")}
		if err := c.Skip(); err != nil {
			return err
		}
		if _, err := parseURI(e.URL); err != nil || e.URL == "" {
			s.defect("enclosure", "url", fmt.Sprintf("missing or unparsable %q, enclosure dropped", e.URL))
			return nil
		}
		b.enclosures = append(b.enclosures, e)
		return nil
	},
	"guid": func(s *session, c Cursor, b *itemBuilder) error {
		permaLink := !strings.EqualFold(attr(c, "isPermaLink"), "false")
		v, err := c.ReadText()
		if err != nil {
			return err
		}
		b.guid = &RSSGUID{Value: strings.TrimSpace(v), IsPermaLink: permaLink}
		return nil
	},
	"pubDate": dateInto("pubDate", parseRSSDate, func(b *itemBuilder) **Date { return &b.pubDate }),
	"source": func(s *session, c Cursor, b *itemBuilder) error {
		u := attr(c, "url")
		v, err := c.ReadText()
		if err != nil {
			return err
		}
		b.source = &RSSSource{URL: u, Value: strings.TrimSpace(v)}
		return nil
	},
}

var rssItemTags = []tagTable[itemBuilder]{
	{space: "", tags: rssItemElements},
	{space: RSS1Namespace, tags: rssItemElements},
	{space: DublinCoreNamespace, tags: map[string]handler[itemBuilder]{
		"creator": textField(func(b *itemBuilder) *string { return &b.creator }),
		"date":    dateInto("date", parseAtomDate, func(b *itemBuilder) **Date { return &b.dcDate }),
	}},
	{space: ContentNamespace, tags: map[string]handler[itemBuilder]{
		"encoded": func(s *session, c Cursor, b *itemBuilder) error {
			v, err := c.ReadText()
			if err != nil {
				return err
			}
			enc := ContentEncoded{Encoded: v}
			enc.Text, _ = content.PlainText(v)
			enc.Image, _ = content.FirstImage(v)
			b.encoded = &enc
			return nil
		},
	}},
	{space: legacyContentPrefix, tags: map[string]handler[itemBuilder]{
		"encoded": func(s *session, c Cursor, b *itemBuilder) error {
			rc, err := readLegacyContent(c)
			if err != nil {
				return err
			}
			b.legacy = &rc
			return nil
		},
	}},
}

// readLegacyContent reads the content:encoded dialect whose prefix is never
// declared. The domain attribute names the image. Description joins all
// character data; CDATA is the first CDATA section only.
func readLegacyContent(c Cursor) (RSSContent, error) {
	rc := RSSContent{Image: attr(c, "domain")}

	depth := c.Depth()
	var desc strings.Builder
	seenCDATA := false
	for {
		kind, err := c.NextToken()
		if err != nil {
			return RSSContent{}, err
		}
		switch kind {
		case xmlcursor.CDATA:
			if !seenCDATA {
				rc.CDATA = c.Text()
				seenCDATA = true
			}
			desc.WriteString(c.Text())
		case xmlcursor.Text:
			desc.WriteString(c.Text())
		case xmlcursor.EndTag:
			if c.Depth() < depth {
				rc.Description = strings.TrimSpace(desc.String())
				return rc, nil
			}
		case xmlcursor.EndDocument:
			return RSSContent{}, xmlcursor.ErrUnexpectedEOF
		}
	}
}

func parseRSSItem(s *session, c Cursor) (*RSSItem, error) {
	b := itemBuilder{
		categories: []Category{},
		enclosures: []RSSEnclosure{},
	}
	if err := dispatch(s, c, &b, "item", rssItemTags); err != nil {
		return nil, err
	}

	if b.title == "" && b.description == "" {
		s.defect("item", "title", "neither title nor description present")
	}

	return &RSSItem{
		title:       b.title,
		link:        b.link,
		description: b.description,
		author:      b.author,
		creator:     b.creator,
		comments:    b.comments,
		categories:  b.categories,
		enclosures:  b.enclosures,
		guid:        b.guid,
		pubDate:     b.pubDate,
		dcDate:      b.dcDate,
		source:      b.source,
		encoded:     b.encoded,
		legacy:      b.legacy,
	}, nil
}

type channelBuilder struct {
	version       string
	title         string
	link          string
	description   string
	language      string
	pubDate       *Date
	lastBuildDate *Date
	image         *RSSImage
	items         []*RSSItem
}

var rssImageElements = map[string]handler[RSSImage]{
	"url":   textField(func(b *RSSImage) *string { return &b.URL }),
	"title": textField(func(b *RSSImage) *string { return &b.Title }),
	"link":  textField(func(b *RSSImage) *string { return &b.Link }),
}

var rssImageTags = []tagTable[RSSImage]{
	{space: "", tags: rssImageElements},
	{space: RSS1Namespace, tags: rssImageElements},
}

func channelImage(s *session, c Cursor, b *channelBuilder) error {
	var img RSSImage
	if err := dispatch(s, c, &img, "image", rssImageTags); err != nil {
		return err
	}
	b.image = &img
	return nil
}

func channelItem(s *session, c Cursor, b *channelBuilder) error {
	it, err := parseRSSItem(s, c)
	if err != nil {
		return err
	}
	b.items = append(b.items, it)
	return nil
}

var rssChannelElements = map[string]handler[channelBuilder]{
	"title":          textField(func(b *channelBuilder) *string { return &b.title }),
	"link":           textField(func(b *channelBuilder) *string { return &b.link }),
	"description":    textField(func(b *channelBuilder) *string { return &b.description }),
	"language":       textField(func(b *channelBuilder) *string { return &b.language }),
	"pubDate":        dateInto("pubDate", parseRSSDate, func(b *channelBuilder) **Date { return &b.pubDate }),
	"lastBuildDate":  dateInto("lastBuildDate", parseRSSDate, func(b *channelBuilder) **Date { return &b.lastBuildDate }),
	"image":          channelImage,
	"item":           channelItem,
	"items":          skip[channelBuilder],
	"category":       skip[channelBuilder],
	"copyright":      skip[channelBuilder],
	"generator":      skip[channelBuilder],
	"docs":           skip[channelBuilder],
	"ttl":            skip[channelBuilder],
	"managingEditor": skip[channelBuilder],
	"webMaster":      skip[channelBuilder],
	"cloud":          skip[channelBuilder],
	"rating":         skip[channelBuilder],
	"textInput":      skip[channelBuilder],
	"skipHours":      skip[channelBuilder],
	"skipDays":       skip[channelBuilder],
}

var rssChannelTags = []tagTable[channelBuilder]{
	{space: "", tags: rssChannelElements},
	{space: RSS1Namespace, tags: rssChannelElements},
	{space: AtomNamespace, tags: map[string]handler[channelBuilder]{
		"link": skip[channelBuilder],
	}},
}

func openChannel(s *session, c Cursor, b *channelBuilder) error {
	return dispatch(s, c, b, "channel", rssChannelTags)
}

var rssRootTags = []tagTable[channelBuilder]{
	{space: "", tags: map[string]handler[channelBuilder]{
		"channel": openChannel,
	}},
}

// RSS 1.0 keeps items and the image next to the channel instead of inside it.
var rdfRootTags = []tagTable[channelBuilder]{
	{space: RSS1Namespace, tags: map[string]handler[channelBuilder]{
		"channel":   openChannel,
		"item":      channelItem,
		"image":     channelImage,
		"textinput": skip[channelBuilder],
	}},
}

func parseRSSChannel(s *session, c Cursor, root string, tables []tagTable[channelBuilder]) (*RSSChannel, error) {
	b := channelBuilder{version: attr(c, "version"), items: []*RSSItem{}}
	if root == "RDF" {
		b.version = "1.0"
	}
	if err := dispatch(s, c, &b, root, tables); err != nil {
		return nil, err
	}

	if b.title == "" {
		s.defect("channel", "title", "missing, replaced with empty string")
	}

	return &RSSChannel{
		version:       b.version,
		title:         b.title,
		link:          b.link,
		description:   b.description,
		language:      b.language,
		pubDate:       b.pubDate,
		lastBuildDate: b.lastBuildDate,
		image:         b.image,
		items:         b.items,
	}, nil
}
