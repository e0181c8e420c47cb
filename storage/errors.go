package storage

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable is matched by every load failure: missing source,
// unreadable content or schema mismatch.
var ErrDataUnavailable = errors.New("data unavailable")

// UnavailableError describes why a source could not be loaded.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDataUnavailable, e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

func unavailable(source string, err error) error {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Source: source, Err: err}
}

// SchemaError reports content that does not match the listings schema.
type SchemaError struct {
	Line   int
	Column string
	Msg    string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schema: line %d column %q: %s", e.Line, e.Column, e.Msg)
	}
	if e.Column != "" {
		return fmt.Sprintf("schema: column %q: %s", e.Column, e.Msg)
	}
	return "schema: " + e.Msg
}
