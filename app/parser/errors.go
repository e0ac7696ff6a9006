package parser

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownRoot       = errors.New("unknown feed root element")
	ErrUnexpectedElement = errors.New("cursor is not on the expected element")
	ErrInvalidIdentifier = errors.New("invalid identifier URI")
)

// SyntaxError is a structural failure of the token stream inside Element.
// It aborts the whole document.
type SyntaxError struct {
	Element string
	Err     error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed <%s>: %v", e.Element, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// wrap attributes a cursor failure to element unless it already carries a
// location or is an identifier failure.
func wrap(element string, err error) error {
	if err == nil {
		return nil
	}
	var se *SyntaxError
	if errors.As(err, &se) || errors.Is(err, ErrInvalidIdentifier) {
		return err
	}
	return &SyntaxError{Element: element, Err: err}
}

// Defect is a recoverable anomaly: the field was missing or unusable and a
// documented default took its place.
type Defect struct {
	Element string
	Field   string
	Reason  string
}

func (d Defect) String() string {
	return fmt.Sprintf("%s/%s: %s", d.Element, d.Field, d.Reason)
}
