package parser

import (
	"time"
)

// Item is the uniform view over one syndicated entry, whatever dialect it
// was read from. The implementations are *AtomEntry and *RSSItem.
//
// Every method is a pure projection over the immutable entry and is
// recomputed on each call.
type Item interface {
	ID() string
	Title() string
	Description() (string, bool)
	Link() (string, bool)
	ImageLink() (string, bool)
	Author() (string, bool)
	PublicationDate() time.Time
	Enclosures() []Enclosure

	item()
}

var (
	_ Item = (*AtomEntry)(nil)
	_ Item = (*RSSItem)(nil)
)

const jpegType = "image/jpeg"

func (e *AtomEntry) item() {}

func (e *AtomEntry) ID() string {
	return e.id
}

func (e *AtomEntry) Title() string {
	return e.title.Value
}

// Description prefers the summary over the plain text of the content.
func (e *AtomEntry) Description() (string, bool) {
	if e.summary != nil {
		return e.summary.Value, true
	}
	if e.content != nil && e.content.Text != "" {
		return e.content.Text, true
	}
	return "", false
}

// Link picks the most specific link by relation: alternate, via, related,
// unset, then anything but enclosure and self. Without a match the first
// link wins.
func (e *AtomEntry) Link() (string, bool) {
	return bestLink(e.links)
}

func (e *AtomEntry) ImageLink() (string, bool) {
	for _, l := range e.links {
		if l.Type == jpegType {
			return l.Href, true
		}
	}
	return "", false
}

func (e *AtomEntry) Author() (string, bool) {
	if len(e.authors) > 0 {
		return e.authors[0].Name, true
	}
	if len(e.contributors) > 0 {
		return e.contributors[0].Name, true
	}
	return "", false
}

// PublicationDate is the published date, falling back to updated.
func (e *AtomEntry) PublicationDate() time.Time {
	if e.published != nil {
		return e.published.Time
	}
	return e.updated.Time
}

func (e *AtomEntry) Enclosures() []Enclosure {
	out := []Enclosure{}
	for _, l := range e.links {
		if l.IsEnclosure() {
			out = append(out, Enclosure{Href: l.Href, Type: l.Type, Length: l.Length})
		}
	}
	return out
}

var linkPasses = []func(Link) bool{
	func(l Link) bool { return l.Rel == "alternate" },
	func(l Link) bool { return l.Rel == "via" },
	func(l Link) bool { return l.Rel == "related" },
	func(l Link) bool { return l.Rel == "" },
	func(l Link) bool { return l.Rel != "enclosure" && l.Rel != "self" },
}

func bestLink(links []Link) (string, bool) {
	if len(links) == 0 {
		return "", false
	}
	for _, match := range linkPasses {
		for _, l := range links {
			if match(l) {
				return l.Href, true
			}
		}
	}
	return links[0].Href, true
}

func (i *RSSItem) item() {}

// ID is the guid, else the link, else the title.
func (i *RSSItem) ID() string {
	if i.guid != nil && i.guid.Value != "" {
		return i.guid.Value
	}
	if i.link != "" {
		return i.link
	}
	return i.title
}

func (i *RSSItem) Title() string {
	return i.title
}

func (i *RSSItem) Description() (string, bool) {
	if i.description != "" {
		return i.description, true
	}
	if i.encoded != nil && i.encoded.Text != "" {
		return i.encoded.Text, true
	}
	if i.legacy != nil && i.legacy.Description != "" {
		return i.legacy.Description, true
	}
	return "", false
}

func (i *RSSItem) Link() (string, bool) {
	if i.link != "" {
		return i.link, true
	}
	if i.guid != nil && i.guid.IsPermaLink && i.guid.Value != "" {
		return i.guid.Value, true
	}
	return "", false
}

func (i *RSSItem) ImageLink() (string, bool) {
	for _, e := range i.enclosures {
		if e.Type == jpegType {
			return e.URL, true
		}
	}
	if i.encoded != nil && i.encoded.Image != "" {
		return i.encoded.Image, true
	}
	if i.legacy != nil && i.legacy.Image != "" {
		return i.legacy.Image, true
	}
	return "", false
}

func (i *RSSItem) Author() (string, bool) {
	if i.author != "" {
		return i.author, true
	}
	if i.creator != "" {
		return i.creator, true
	}
	return "", false
}

func (i *RSSItem) PublicationDate() time.Time {
	if i.pubDate != nil {
		return i.pubDate.Time
	}
	if i.dcDate != nil {
		return i.dcDate.Time
	}
	return epoch
}

func (i *RSSItem) Enclosures() []Enclosure {
	out := make([]Enclosure, 0, len(i.enclosures))
	for _, e := range i.enclosures {
		out = append(out, Enclosure{Href: e.URL, Type: e.Type, Length: e.Length})
	}
	return out
}
