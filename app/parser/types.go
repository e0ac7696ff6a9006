package parser

import (
	"slices"
	"time"
)

const (
	AtomNamespace       = "http://www.w3.org/2005/Atom"
	ContentNamespace    = "http://purl.org/rss/1.0/modules/content/"
	DublinCoreNamespace = "http://purl.org/dc/elements/1.1/"
	RSS1Namespace       = "http://purl.org/rss/1.0/"
	RDFNamespace        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	// legacyContentPrefix is what an undeclared content: prefix resolves to.
	legacyContentPrefix = "content"
)

// Attributes carries the xml:lang and xml:base context of an element.
type Attributes struct {
	Lang string
	Base string
}

type Text struct {
	Value string
	Type  string
	Attributes
}

// Date keeps the parsed instant next to the string it was parsed from.
type Date struct {
	Time time.Time
	Raw  string
}

type Person struct {
	Name  string
	Email string
	URI   string
	Attributes
}

type Link struct {
	Href     string
	Rel      string
	Type     string
	HrefLang string
	Title    string
	Length   string
	Attributes
}

func (l Link) IsEnclosure() bool {
	return l.Rel == "enclosure"
}

type Category struct {
	Term   string
	Scheme string
	Label  string
	Attributes
}

type Generator struct {
	Value   string
	URI     string
	Version string
}

// Content is an Atom content block. Text and Image are derived from Value;
// either is empty when nothing could be extracted.
type Content struct {
	Type  string
	Src   string
	Value string
	Text  string
	Image string
	Attributes
}

// ContentEncoded is the RSS content module's content:encoded element.
type ContentEncoded struct {
	Encoded string
	Text    string
	Image   string
}

// RSSContent is the legacy content:encoded dialect that never declares the
// content prefix. CDATA holds the first CDATA section found inside the
// element and Image the element's domain attribute.
type RSSContent struct {
	Description string
	CDATA       string
	Image       string
}

// Enclosure is the uniform attached-media view shared by all item variants.
type Enclosure struct {
	Href   string
	Type   string
	Length string
}

type RSSEnclosure struct {
	URL    string
	Length string
	Type   string
}

type RSSGUID struct {
	Value       string
	IsPermaLink bool
}

type RSSImage struct {
	URL   string
	Title string
	Link  string
}

type RSSSource struct {
	URL   string
	Value string
}

// AtomEntry is an immutable Atom entry. Slices handed out by its accessors
// are copies.
type AtomEntry struct {
	attrs        Attributes
	id           string
	title        Text
	updated      Date
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

func (e *AtomEntry) Attributes() Attributes { return e.attrs }
func (e *AtomEntry) TitleText() Text { return e.title }
func (e *AtomEntry) Updated() Date { return e.updated }
func (e *AtomEntry) Authors() []Person { return slices.Clone(e.authors) }
func (e *AtomEntry) Contributors() []Person { return slices.Clone(e.contributors) }
func (e *AtomEntry) Links() []Link { return slices.Clone(e.links) }
func (e *AtomEntry) Categories() []Category { return slices.Clone(e.categories) }
func (e *AtomEntry) Published() (Date, bool) { return deref(e.published) }
func (e *AtomEntry) Summary() (Text, bool) { return deref(e.summary) }
func (e *AtomEntry) Content() (Content, bool) { return deref(e.content) }
func (e *AtomEntry) Rights() (Text, bool) { return deref(e.rights) }

// Source is the feed embedded in the entry, or nil.
func (e *AtomEntry) Source() *AtomFeed { return e.source }

// AtomFeed is an immutable Atom feed document or embedded source feed.
type AtomFeed struct {
	attrs        Attributes
	id           string
	title        Text
	subtitle     *Text
	updated      Date
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

func (f *AtomFeed) Attributes() Attributes { return f.attrs }
func (f *AtomFeed) ID() string { return f.id }
func (f *AtomFeed) Title() Text { return f.title }
func (f *AtomFeed) Subtitle() (Text, bool) { return deref(f.subtitle) }
func (f *AtomFeed) Updated() Date { return f.updated }
func (f *AtomFeed) Authors() []Person { return slices.Clone(f.authors) }
func (f *AtomFeed) Contributors() []Person { return slices.Clone(f.contributors) }
func (f *AtomFeed) Links() []Link { return slices.Clone(f.links) }

// Link picks the feed's most specific link the same way entries do.
func (f *AtomFeed) Link() (string, bool) { return bestLink(f.links) }

func (f *AtomFeed) Categories() []Category { return slices.Clone(f.categories) }
func (f *AtomFeed) Generator() (Generator, bool) { return deref(f.generator) }
func (f *AtomFeed) Icon() string { return f.icon }
func (f *AtomFeed) Logo() string { return f.logo }
func (f *AtomFeed) Rights() (Text, bool) { return deref(f.rights) }
func (f *AtomFeed) Entries() []*AtomEntry { return slices.Clone(f.entries) }

// RSSItem is an immutable RSS 2.0 or RSS 1.0 item.
type RSSItem struct {
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

func (i *RSSItem) Comments() string { return i.comments }
func (i *RSSItem) Creator() string { return i.creator }
func (i *RSSItem) Categories() []Category { return slices.Clone(i.categories) }
func (i *RSSItem) RSSEnclosures() []RSSEnclosure { return slices.Clone(i.enclosures) }
func (i *RSSItem) GUID() (RSSGUID, bool) { return deref(i.guid) }
func (i *RSSItem) PubDate() (Date, bool) { return deref(i.pubDate) }
func (i *RSSItem) Source() (RSSSource, bool) { return deref(i.source) }
func (i *RSSItem) Encoded() (ContentEncoded, bool) { return deref(i.encoded) }
func (i *RSSItem) LegacyContent() (RSSContent, bool) { return deref(i.legacy) }

// RSSChannel is an immutable RSS channel with its items.
type RSSChannel struct {
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

func (ch *RSSChannel) Version() string { return ch.version }
func (ch *RSSChannel) Title() string { return ch.title }
func (ch *RSSChannel) Link() string { return ch.link }
func (ch *RSSChannel) Description() string { return ch.description }
func (ch *RSSChannel) Language() string { return ch.language }
func (ch *RSSChannel) PubDate() (Date, bool) { return deref(ch.pubDate) }
func (ch *RSSChannel) LastBuildDate() (Date, bool) { return deref(ch.lastBuildDate) }
func (ch *RSSChannel) Image() (RSSImage, bool) { return deref(ch.image) }
func (ch *RSSChannel) Items() []*RSSItem { return slices.Clone(ch.items) }

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
