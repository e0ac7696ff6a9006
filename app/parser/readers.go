package parser

import (
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lysyi3m/earl/app/xmlcursor"
)

var epoch = time.Unix(0, 0).UTC()

var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
}

func attr(c Cursor, name string) string {
	v, _ := c.Attr("", name)
	return strings.TrimSpace(v)
}

func readAttributes(c Cursor) Attributes {
	lang, _ := c.Attr(xmlcursor.XMLNamespace, "lang")
	base, _ := c.Attr(xmlcursor.XMLNamespace, "base")
	return Attributes{Lang: lang, Base: base}
}

// readText reads an Atom text construct. xhtml content keeps its inner
// markup, every other type is read as character data.
func readText(c Cursor) (Text, error) {
	t := Text{Type: attr(c, "type"), Attributes: readAttributes(c)}

	var err error
	if t.Type == "xhtml" {
		t.Value, err = c.ReadInner()
	} else {
		t.Value, err = c.ReadText()
	}
	if err != nil {
		return Text{}, err
	}
	return t, nil
}

// readDate reads a date element. ok is false when the text does not parse
// with the given grammar; the cursor still ends on the element's end tag.
func readDate(c Cursor, parse func(string) (time.Time, bool)) (d Date, ok bool, err error) {
	raw, err := c.ReadText()
	if err != nil {
		return Date{}, false, err
	}
	t, ok := parse(raw)
	return Date{Time: t, Raw: raw}, ok, nil
}

func parseAtomDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func parseRSSDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parseURI validates raw as a URI reference and returns it trimmed.
func parseURI(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if _, err := url.Parse(s); err != nil {
		return "", err
	}
	return s, nil
}
