package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/earl/app/content"
)

// maxFeedDepth bounds feeds embedded in entries: an entry of the document
// feed may carry one, entries of an embedded feed may not.
const maxFeedDepth = 1

type personBuilder struct {
	attrs Attributes
	name  string
	email string
	uri   string
}

var personTags = []tagTable[personBuilder]{{
	space: AtomNamespace,
	tags: map[string]handler[personBuilder]{
		"name":  textField(func(b *personBuilder) *string { return &b.name }),
		"email": textField(func(b *personBuilder) *string { return &b.email }),
		"uri":   textField(func(b *personBuilder) *string { return &b.uri }),
	},
}}

func parsePerson(s *session, c Cursor, element string) (Person, error) {
	b := personBuilder{attrs: readAttributes(c)}
	if err := dispatch(s, c, &b, element, personTags); err != nil {
		return Person{}, err
	}
	if b.name == "" {
		s.defect(element, "name", "missing, replaced with empty string")
	}
	return Person{Name: b.name, Email: b.email, URI: b.uri, Attributes: b.attrs}, nil
}

// parseLink reads a link from its attributes. ok is false when href is
// missing or unparsable; such links are dropped.
func parseLink(s *session, c Cursor) (l Link, ok bool, err error) {
	l = Link{
		Href:       attr(c, "href"),
		Rel:        attr(c, "rel"),
		Type:       attr(c, "type"),
		HrefLang:   attr(c, "hreflang"),
		Title:      attr(c, "title"),
		Length:     attr(c, "length"),
		Attributes: readAttributes(c),
	}
	if err := c.Skip(); err != nil {
		return Link{}, false, err
	}

	if l.Href == "" {
		s.defect("link", "href", "missing, link dropped")
		return Link{}, false, nil
	}
	if _, err := parseURI(l.Href); err != nil {
		s.defect("link", "href", fmt.Sprintf("unparsable %q, link dropped", l.Href))
		return Link{}, false, nil
	}
	return l, true, nil
}

func parseCategory(s *session, c Cursor) (Category, error) {
	cat := Category{
		Term:       attr(c, "term"),
		Scheme:     attr(c, "scheme"),
		Label:      attr(c, "label"),
		Attributes: readAttributes(c),
	}
	if err := c.Skip(); err != nil {
		return Category{}, err
	}
	if cat.Term == "" {
		s.defect("category", "term", "missing, replaced with empty string")
	}
	return cat, nil
}

func parseContent(c Cursor) (Content, error) {
	src := attr(c, "src")
	t, err := readText(c)
	if err != nil {
		return Content{}, err
	}

	ct := Content{Type: t.Type, Src: src, Value: t.Value, Attributes: t.Attributes}
	ct.Text, _ = content.PlainText(ct.Value)
	ct.Image, _ = content.FirstImage(ct.Value)
	return ct, nil
}

func parseGenerator(c Cursor) (Generator, error) {
	g := Generator{URI: attr(c, "uri"), Version: attr(c, "version")}
	v, err := c.ReadText()
	if err != nil {
		return Generator{}, err
	}
	g.Value = strings.TrimSpace(v)
	return g, nil
}

// resolveID validates an element identifier. A missing id becomes the empty
// string; an unparsable one fails the document unless the parser was told
// to be lenient.
func resolveID(s *session, element string, id *string) (string, error) {
	if id == nil {
		s.defect(element, "id", "missing, replaced with empty string")
		return "", nil
	}
	v, err := parseURI(*id)
	if err != nil {
		if !s.lenientIDs {
			return "", fmt.Errorf("%w in <%s>: %q: %v", ErrInvalidIdentifier, element, *id, err)
		}
		s.defect(element, "id", fmt.Sprintf("unparsable %q, replaced with empty string", *id))
		return "", nil
	}
	return v, nil
}

func personsInto[B any](element string, field func(*B) *[]Person) handler[B] {
	return func(s *session, c Cursor, b *B) error {
		p, err := parsePerson(s, c, element)
		if err != nil {
			return err
		}
		*field(b) = append(*field(b), p)
		return nil
	}
}

func linksInto[B any](field func(*B) *[]Link) handler[B] {
	return func(s *session, c Cursor, b *B) error {
		l, ok, err := parseLink(s, c)
		if err != nil || !ok {
			return err
		}
		*field(b) = append(*field(b), l)
		return nil
	}
}

func categoriesInto[B any](field func(*B) *[]Category) handler[B] {
	return func(s *session, c Cursor, b *B) error {
		cat, err := parseCategory(s, c)
		if err != nil {
			return err
		}
		*field(b) = append(*field(b), cat)
		return nil
	}
}

func textInto[B any](field func(*B) **Text) handler[B] {
	return func(s *session, c Cursor, b *B) error {
		t, err := readText(c)
		if err != nil {
			return err
		}
		*field(b) = &t
		return nil
	}
}

// dateInto keeps the last date that parse accepts. Unparsable values are
// treated as absent.
func dateInto[B any](element string, parse func(string) (time.Time, bool), field func(*B) **Date) handler[B] {
	return func(s *session, c Cursor, b *B) error {
		d, ok, err := readDate(c, parse)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Debug("Unparsable date ignored", "element", element, "value", d.Raw)
			return nil
		}
		*field(b) = &d
		return nil
	}
}

func idInto[B any](field func(*B) **string) handler[B] {
	return func(s *session, c Cursor, b *B) error {
		v, err := c.ReadText()
		if err != nil {
			return err
		}
		*field(b) = &v
		return nil
	}
}

type entryBuilder struct {
	depth        int
	attrs        Attributes
	id           *string
	title        *Text
	updated      *Date
	published    *Date
	authors      []Person
	contributors []Person
	links        []Link
	categories   []Category
	summary      *Text
	content      *Content
	source       *AtomFeed
	rights       *Text
}

type feedBuilder struct {
	depth        int
	attrs        Attributes
	id           *string
	title        *Text
	subtitle     *Text
	updated      *Date
	authors      []Person
	contributors []Person
	links        []Link
	categories   []Category
	generator    *Generator
	icon         string
	logo         string
	rights       *Text
	entries      []*AtomEntry
}

// Entry and feed tables refer to each other through the embedded source
// feed, so they are filled in init.
var (
	atomEntryTags []tagTable[entryBuilder]
	atomFeedTags  []tagTable[feedBuilder]
)

func init() {
	atomEntryTags = []tagTable[entryBuilder]{{
		space: AtomNamespace,
		tags: map[string]handler[entryBuilder]{
			"link":        linksInto(func(b *entryBuilder) *[]Link { return &b.links }),
			"category":    categoriesInto(func(b *entryBuilder) *[]Category { return &b.categories }),
			"contributor": personsInto("contributor", func(b *entryBuilder) *[]Person { return &b.contributors }),
			"author":      personsInto("author", func(b *entryBuilder) *[]Person { return &b.authors }),
			"title":       textInto(func(b *entryBuilder) **Text { return &b.title }),
			"summary":     textInto(func(b *entryBuilder) **Text { return &b.summary }),
			"rights":      textInto(func(b *entryBuilder) **Text { return &b.rights }),
			"id":          idInto(func(b *entryBuilder) **string { return &b.id }),
			"published":   dateInto("published", parseAtomDate, func(b *entryBuilder) **Date { return &b.published }),
			"updated":     dateInto("updated", parseAtomDate, func(b *entryBuilder) **Date { return &b.updated }),
			"content": func(s *session, c Cursor, b *entryBuilder) error {
				ct, err := parseContent(c)
				if err != nil {
					return err
				}
				b.content = &ct
				return nil
			},
			"feed": func(s *session, c Cursor, b *entryBuilder) error {
				if b.depth >= maxFeedDepth {
					s.log.Debug("Nested feed skipped", "depth", b.depth)
					return c.Skip()
				}
				f, err := parseAtomFeed(s, c, b.depth+1)
				if err != nil {
					return err
				}
				b.source = f
				return nil
			},
		},
	}}

	atomFeedTags = []tagTable[feedBuilder]{{
		space: AtomNamespace,
		tags: map[string]handler[feedBuilder]{
			"entry": func(s *session, c Cursor, b *feedBuilder) error {
				e, err := parseAtomEntry(s, c, b.depth)
				if err != nil {
					return err
				}
				b.entries = append(b.entries, e)
				return nil
			},
			"link":        linksInto(func(b *feedBuilder) *[]Link { return &b.links }),
			"category":    categoriesInto(func(b *feedBuilder) *[]Category { return &b.categories }),
			"contributor": personsInto("contributor", func(b *feedBuilder) *[]Person { return &b.contributors }),
			"author":      personsInto("author", func(b *feedBuilder) *[]Person { return &b.authors }),
			"title":       textInto(func(b *feedBuilder) **Text { return &b.title }),
			"subtitle":    textInto(func(b *feedBuilder) **Text { return &b.subtitle }),
			"rights":      textInto(func(b *feedBuilder) **Text { return &b.rights }),
			"id":          idInto(func(b *feedBuilder) **string { return &b.id }),
			"updated":     dateInto("updated", parseAtomDate, func(b *feedBuilder) **Date { return &b.updated }),
			"icon":        textField(func(b *feedBuilder) *string { return &b.icon }),
			"logo":        textField(func(b *feedBuilder) *string { return &b.logo }),
			"generator": func(s *session, c Cursor, b *feedBuilder) error {
				g, err := parseGenerator(c)
				if err != nil {
					return err
				}
				b.generator = &g
				return nil
			},
		},
	}}
}

func parseAtomEntry(s *session, c Cursor, depth int) (*AtomEntry, error) {
	b := entryBuilder{
		depth:        depth,
		attrs:        readAttributes(c),
		authors:      []Person{},
		contributors: []Person{},
		links:        []Link{},
		categories:   []Category{},
	}
	if err := dispatch(s, c, &b, "entry", atomEntryTags); err != nil {
		return nil, err
	}

	id, err := resolveID(s, "entry", b.id)
	if err != nil {
		return nil, err
	}
	if b.title == nil {
		s.defect("entry", "title", "missing, replaced with empty text")
		b.title = &Text{}
	}
	if b.updated == nil {
		s.defect("entry", "updated", "missing, replaced with epoch")
		b.updated = &Date{Time: epoch}
	}

	return &AtomEntry{
		attrs:        b.attrs,
		id:           id,
		title:        *b.title,
		updated:      *b.updated,
		published:    b.published,
		authors:      b.authors,
		contributors: b.contributors,
		links:        b.links,
		categories:   b.categories,
		summary:      b.summary,
		content:      b.content,
		source:       b.source,
		rights:       b.rights,
	}, nil
}

func parseAtomFeed(s *session, c Cursor, depth int) (*AtomFeed, error) {
	b := feedBuilder{
		depth:        depth,
		attrs:        readAttributes(c),
		authors:      []Person{},
		contributors: []Person{},
		links:        []Link{},
		categories:   []Category{},
		entries:      []*AtomEntry{},
	}
	if err := dispatch(s, c, &b, "feed", atomFeedTags); err != nil {
		return nil, err
	}

	id, err := resolveID(s, "feed", b.id)
	if err != nil {
		return nil, err
	}
	if b.title == nil {
		s.defect("feed", "title", "missing, replaced with empty text")
		b.title = &Text{}
	}
	if b.updated == nil {
		s.defect("feed", "updated", "missing, replaced with epoch")
		b.updated = &Date{Time: epoch}
	}

	return &AtomFeed{
		attrs:        b.attrs,
		id:           id,
		title:        *b.title,
		subtitle:     b.subtitle,
		updated:      *b.updated,
		authors:      b.authors,
		contributors: b.contributors,
		links:        b.links,
		categories:   b.categories,
		generator:    b.generator,
		icon:         b.icon,
		logo:         b.logo,
		rights:       b.rights,
		entries:      b.entries,
	}, nil
}
