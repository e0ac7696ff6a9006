package parser

import (
	"log/slog"
	"strings"

	"github.com/lysyi3m/earl/app/xmlcursor"
)

// Cursor is the token source the engine reads from. *xmlcursor.Cursor
// satisfies it. Handlers must leave the cursor on the end tag of the element
// they were given.
type Cursor interface {
	Kind() xmlcursor.Kind
	Name() string
	Space() string
	Depth() int
	Text() string
	Attr(space, local string) (string, bool)
	NextToken() (xmlcursor.Kind, error)
	NextTag() (xmlcursor.Kind, error)
	ReadText() (string, error)
	ReadInner() (string, error)
	Skip() error
}

var _ Cursor = (*xmlcursor.Cursor)(nil)

// session is the per-invocation state shared by all handlers of one parse.
type session struct {
	log        *slog.Logger
	lenientIDs bool
	defects    []Defect
}

func (s *session) defect(element, field, reason string) {
	s.defects = append(s.defects, Defect{Element: element, Field: field, Reason: reason})
	s.log.Warn("Recoverable defect in feed document", "element", element, "field", field, "reason", reason)
}

type handler[B any] func(s *session, c Cursor, b *B) error

// tagTable maps local names in one namespace to handlers. Tables are built
// once at package initialisation and never change.
type tagTable[B any] struct {
	space string
	tags  map[string]handler[B]
}

// dispatch runs the pull loop for the element the cursor is on: every child
// start tag is routed through tables, unknown children are skipped, and the
// loop returns once the element's own end tag has been consumed.
func dispatch[B any](s *session, c Cursor, b *B, element string, tables []tagTable[B]) error {
	for {
		kind, err := c.NextTag()
		if err != nil {
			return wrap(element, err)
		}
		if kind == xmlcursor.EndTag {
			return nil
		}

		depth := c.Depth()
		if err := dispatchChild(s, c, b, element, tables); err != nil {
			return err
		}
		if err := finish(c, depth); err != nil {
			return wrap(element, err)
		}
	}
}

func dispatchChild[B any](s *session, c Cursor, b *B, element string, tables []tagTable[B]) error {
	space, name := c.Space(), c.Name()
	for _, t := range tables {
		if !strings.EqualFold(t.space, space) {
			continue
		}
		if h, ok := t.tags[name]; ok {
			return wrap(name, h(s, c, b))
		}
		s.log.Warn("Unknown tag skipped", "element", element, "tag", name, "namespace", space)
		return wrap(name, c.Skip())
	}

	s.log.Warn("Unknown namespace skipped", "element", element, "tag", name, "namespace", space)
	return wrap(name, c.Skip())
}

// finish moves the cursor to the end tag of the child that started at depth
// in case its handler stopped short.
func finish(c Cursor, depth int) error {
	for c.Kind() != xmlcursor.EndTag || c.Depth() >= depth {
		kind, err := c.NextToken()
		if err != nil {
			return err
		}
		if kind == xmlcursor.EndDocument {
			return xmlcursor.ErrUnexpectedEOF
		}
	}
	return nil
}

// skip is a handler for recognised elements whose content is ignored.
func skip[B any](s *session, c Cursor, b *B) error {
	return c.Skip()
}

// textField stores the trimmed text of the element into the field picked
// out of the builder. A later element overwrites an earlier one.
func textField[B any](field func(*B) *string) handler[B] {
	return func(s *session, c Cursor, b *B) error {
		v, err := c.ReadText()
		if err != nil {
			return err
		}
		*field(b) = strings.TrimSpace(v)
		return nil
	}
}
