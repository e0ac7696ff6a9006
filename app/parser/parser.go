// Package parser is a streaming parsing engine for Atom and RSS documents.
//
// Every composite element is read by a pull loop that routes child
// elements through a fixed table of (namespace, local name) handlers and
// skips anything it does not recognise. Entries are accumulated in builders
// local to one call and frozen into immutable values once their end tag has
// been consumed.
//
// Missing required fields never fail a document: a default is substituted
// and a Defect is recorded. Only broken token streams and unparsable
// identifiers abort a parse.
package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/earl/app/xmlcursor"
)

type Format string

const (
	FormatAtom Format = "atom"
	FormatRSS  Format = "rss"
)

// Document is the result of parsing one feed document. Exactly one of Atom
// and RSS is set, except for a standalone Atom entry where both are nil.
type Document struct {
	Format  Format
	Atom    *AtomFeed
	RSS     *RSSChannel
	Items   []Item
	Defects []Defect
}

// Parser holds options only. It is safe for concurrent use; each call works
// on its own cursor and state.
type Parser struct {
	log        *slog.Logger
	lenientIDs bool
}

type Option func(*Parser)

func WithLogger(log *slog.Logger) Option {
	return func(p *Parser) {
		p.log = log
	}
}

// WithLenientIdentifiers replaces unparsable entry and feed ids with the
// empty string and records a defect instead of failing the document.
func WithLenientIdentifiers() Option {
	return func(p *Parser) {
		p.lenientIDs = true
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) session() *session {
	return &session{log: p.log, lenientIDs: p.lenientIDs, defects: []Defect{}}
}

// Parse reads the document root and everything below it. The cursor may be
// before the root or on its start tag. The cursor is never closed.
func (p *Parser) Parse(c Cursor) (*Document, error) {
	if err := toStartTag(c); err != nil {
		return nil, wrap("document", err)
	}

	s := p.session()
	space, name := c.Space(), c.Name()
	doc := &Document{Items: []Item{}}

	switch {
	case strings.EqualFold(space, AtomNamespace) && name == "feed":
		f, err := parseAtomFeed(s, c, 0)
		if err != nil {
			return nil, err
		}
		doc.Format, doc.Atom = FormatAtom, f
		for _, e := range f.entries {
			doc.Items = append(doc.Items, e)
		}
	case strings.EqualFold(space, AtomNamespace) && name == "entry":
		e, err := parseAtomEntry(s, c, 0)
		if err != nil {
			return nil, err
		}
		doc.Format = FormatAtom
		doc.Items = append(doc.Items, e)
	case space == "" && name == "rss":
		ch, err := parseRSSChannel(s, c, "rss", rssRootTags)
		if err != nil {
			return nil, err
		}
		doc.Format, doc.RSS = FormatRSS, ch
		for _, it := range ch.items {
			doc.Items = append(doc.Items, it)
		}
	case strings.EqualFold(space, RDFNamespace) && name == "RDF":
		ch, err := parseRSSChannel(s, c, "RDF", rdfRootTags)
		if err != nil {
			return nil, err
		}
		doc.Format, doc.RSS = FormatRSS, ch
		for _, it := range ch.items {
			doc.Items = append(doc.Items, it)
		}
	default:
		return nil, fmt.Errorf("%w: <%s> in namespace %q", ErrUnknownRoot, name, space)
	}

	doc.Defects = s.defects
	p.log.Debug("Parsed feed document", "format", doc.Format, "items", len(doc.Items), "defects", len(doc.Defects))
	return doc, nil
}

// ParseAtomFeed reads the Atom feed element the cursor is on.
func (p *Parser) ParseAtomFeed(c Cursor) (*AtomFeed, []Defect, error) {
	if err := expect(c, AtomNamespace, "feed"); err != nil {
		return nil, nil, err
	}
	s := p.session()
	f, err := parseAtomFeed(s, c, 0)
	if err != nil {
		return nil, nil, err
	}
	return f, s.defects, nil
}

// ParseAtomEntry reads the Atom entry element the cursor is on.
func (p *Parser) ParseAtomEntry(c Cursor) (*AtomEntry, []Defect, error) {
	if err := expect(c, AtomNamespace, "entry"); err != nil {
		return nil, nil, err
	}
	s := p.session()
	e, err := parseAtomEntry(s, c, 0)
	if err != nil {
		return nil, nil, err
	}
	return e, s.defects, nil
}

// ParseRSSItem reads the RSS 2.0 or RSS 1.0 item element the cursor is on.
func (p *Parser) ParseRSSItem(c Cursor) (*RSSItem, []Defect, error) {
	if c.Kind() != xmlcursor.StartTag || c.Name() != "item" ||
		c.Space() != "" && !strings.EqualFold(c.Space(), RSS1Namespace) {
		return nil, nil, fmt.Errorf("%w: want <item>, got <%s>", ErrUnexpectedElement, c.Name())
	}
	s := p.session()
	it, err := parseRSSItem(s, c)
	if err != nil {
		return nil, nil, err
	}
	return it, s.defects, nil
}

func toStartTag(c Cursor) error {
	for c.Kind() != xmlcursor.StartTag {
		if _, err := c.NextTag(); err != nil {
			return err
		}
		if c.Kind() == xmlcursor.EndTag {
			return fmt.Errorf("%w: end tag before document root", ErrUnexpectedElement)
		}
	}
	return nil
}

func expect(c Cursor, space, name string) error {
	if c.Kind() != xmlcursor.StartTag || c.Name() != name || !strings.EqualFold(c.Space(), space) {
		return fmt.Errorf("%w: want <%s>, got <%s>", ErrUnexpectedElement, name, c.Name())
	}
	return nil
}
