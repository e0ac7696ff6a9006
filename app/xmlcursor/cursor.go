// Package xmlcursor wraps the goxpp pull parser into the forward-only token
// cursor consumed by the feed parsing engine.
//
// goxpp reports CDATA sections as ordinary character data. The cursor
// recovers the distinction by watching the bytes the XML decoder has
// consumed: a CDATA section is the only character data token that ends
// exactly on "]]>".
package xmlcursor

import (
	"errors"
	"fmt"
	"io"
	"strings"

	xpp "github.com/mmcdole/goxpp"
)

// XMLNamespace is the namespace bound to the reserved xml: prefix.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

// ErrUnexpectedEOF is returned when the document ends inside an element.
var ErrUnexpectedEOF = errors.New("unexpected end of document")

type Kind int

const (
	StartDocument Kind = iota
	EndDocument
	StartTag
	EndTag
	Text
	CDATA
	Other
)

func (k Kind) String() string {
	switch k {
	case StartDocument:
		return "StartDocument"
	case EndDocument:
		return "EndDocument"
	case StartTag:
		return "StartTag"
	case EndTag:
		return "EndTag"
	case Text:
		return "Text"
	case CDATA:
		return "CDATA"
	default:
		return "Other"
	}
}

// Cursor is a forward-only view over one XML document. It never closes the
// reader it was built from.
type Cursor struct {
	pp    *xpp.XMLPullParser
	src   *sourceReader
	kind  Kind
	depth int
}

// New creates a cursor positioned before the first token of r.
func New(r io.Reader) *Cursor {
	src := newSourceReader(r)
	return &Cursor{
		pp:   xpp.NewXMLPullParser(src, false, src.charsetReader),
		src:  src,
		kind: StartDocument,
	}
}

func (c *Cursor) Kind() Kind {
	return c.kind
}

// Name is the local name of the current start or end tag.
func (c *Cursor) Name() string {
	return c.pp.Name
}

// Space is the resolved namespace of the current tag. Undeclared prefixes
// are reported verbatim.
func (c *Cursor) Space() string {
	return c.pp.Space
}

// Depth is 1 on the root start tag and drops back to 0 on its end tag.
func (c *Cursor) Depth() int {
	return c.depth
}

// Text is the character data of the current Text or CDATA token.
func (c *Cursor) Text() string {
	return c.pp.Text
}

// Attr looks up an attribute of the current start tag. An empty space
// matches only unprefixed attributes.
func (c *Cursor) Attr(space, local string) (string, bool) {
	for _, a := range c.pp.Attrs {
		if a.Name.Local != local {
			continue
		}
		if space == "" && a.Name.Space == "" || space != "" && strings.EqualFold(a.Name.Space, space) {
			return a.Value, true
		}
	}
	return "", false
}

// NextToken advances by exactly one token.
func (c *Cursor) NextToken() (Kind, error) {
	event, err := c.pp.NextToken()
	if err != nil {
		return c.kind, fmt.Errorf("xml token stream: %w", err)
	}

	switch event {
	case xpp.StartDocument:
		c.kind = StartDocument
	case xpp.EndDocument:
		c.kind = EndDocument
	case xpp.StartTag:
		c.depth++
		c.kind = StartTag
	case xpp.EndTag:
		c.depth--
		c.kind = EndTag
	case xpp.Text:
		if c.src.endsCDATA() {
			c.kind = CDATA
		} else {
			c.kind = Text
		}
	default:
		c.kind = Other
	}

	return c.kind, nil
}

// NextTag advances to the next start or end tag, passing over character
// data, comments and processing instructions.
func (c *Cursor) NextTag() (Kind, error) {
	for {
		kind, err := c.NextToken()
		if err != nil {
			return kind, err
		}
		switch kind {
		case StartTag, EndTag:
			return kind, nil
		case EndDocument:
			return kind, ErrUnexpectedEOF
		}
	}
}

// ReadText concatenates all character data below the current start tag and
// leaves the cursor on the matching end tag. Markup of nested elements is
// dropped.
func (c *Cursor) ReadText() (string, error) {
	if c.kind != StartTag {
		return "", fmt.Errorf("ReadText called on %s, expected %s", c.kind, StartTag)
	}

	depth := c.depth
	var b strings.Builder
	for {
		kind, err := c.NextToken()
		if err != nil {
			return "", err
		}
		switch kind {
		case Text, CDATA:
			b.WriteString(c.pp.Text)
		case EndTag:
			if c.depth < depth {
				return b.String(), nil
			}
		case EndDocument:
			return "", ErrUnexpectedEOF
		}
	}
}

// ReadInner returns the raw inner XML of the current element and leaves the
// cursor on its end tag.
func (c *Cursor) ReadInner() (string, error) {
	if c.kind != StartTag {
		return "", fmt.Errorf("ReadInner called on %s, expected %s", c.kind, StartTag)
	}

	var inner struct {
		XML string `xml:",innerxml"`
	}
	if err := c.pp.DecodeElement(&inner); err != nil {
		return "", fmt.Errorf("xml token stream: %w", err)
	}

	c.depth--
	c.kind = EndTag
	return inner.XML, nil
}

// Skip consumes the subtree of the current start tag without inspecting it.
func (c *Cursor) Skip() error {
	if c.kind != StartTag {
		return fmt.Errorf("Skip called on %s, expected %s", c.kind, StartTag)
	}

	depth := c.depth
	for {
		kind, err := c.NextToken()
		if err != nil {
			return err
		}
		if kind == EndTag && c.depth < depth {
			return nil
		}
		if kind == EndDocument {
			return ErrUnexpectedEOF
		}
	}
}
