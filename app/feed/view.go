package feed

import (
	"time"

	"github.com/lysyi3m/earl/app/parser"
)

// ItemView is the item contract of a parsed entry in a shape that encodes
// to JSON and YAML. Absent optional values are omitted.
type ItemView struct {
	ID              string          `json:"id" yaml:"id"`
	Title           string          `json:"title" yaml:"title"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	Link            string          `json:"link,omitempty" yaml:"link,omitempty"`
	ImageLink       string          `json:"image_link,omitempty" yaml:"image_link,omitempty"`
	Author          string          `json:"author,omitempty" yaml:"author,omitempty"`
	PublicationDate time.Time       `json:"publication_date" yaml:"publication_date"`
	Enclosures      []EnclosureView `json:"enclosures,omitempty" yaml:"enclosures,omitempty"`
}

type EnclosureView struct {
	Href   string `json:"href" yaml:"href"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Length string `json:"length,omitempty" yaml:"length,omitempty"`
}

type DefectView struct {
	Element string `json:"element" yaml:"element"`
	Field   string `json:"field" yaml:"field"`
	Reason  string `json:"reason" yaml:"reason"`
}

// DocumentView is a whole parsed document as returned by the parse
// endpoint and the command line tool.
type DocumentView struct {
	Format  string       `json:"format" yaml:"format"`
	Items   []ItemView   `json:"items" yaml:"items"`
	Defects []DefectView `json:"defects" yaml:"defects"`
}

func NewItemView(item parser.Item) ItemView {
	view := ItemView{
		ID:              item.ID(),
		Title:           item.Title(),
		PublicationDate: item.PublicationDate().UTC(),
	}
	view.Description, _ = item.Description()
	view.Link, _ = item.Link()
	view.ImageLink, _ = item.ImageLink()
	view.Author, _ = item.Author()

	for _, e := range item.Enclosures() {
		view.Enclosures = append(view.Enclosures, EnclosureView(e))
	}

	return view
}

func NewDocumentView(doc *parser.Document) DocumentView {
	view := DocumentView{
		Format:  string(doc.Format),
		Items:   make([]ItemView, 0, len(doc.Items)),
		Defects: make([]DefectView, 0, len(doc.Defects)),
	}
	for _, item := range doc.Items {
		view.Items = append(view.Items, NewItemView(item))
	}
	for _, d := range doc.Defects {
		view.Defects = append(view.Defects, DefectView(d))
	}
	return view
}
