package table

import (
	"errors"
	"fmt"
)

// ErrNoHeader is returned when a source has no header row.
var ErrNoHeader = errors.New("no header row")

// LoadError reports a source that could not be read or is not well-formed
// tabular text.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SchemaError reports a missing column or a cell that does not hold the
// expected kind of value. Line is the 1-based line in the source (the header
// is line 1); zero means the error is not tied to a row.
type SchemaError struct {
	Table  string
	Column string
	Line   int
	Msg    string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("table %q: column %q", e.Table, e.Column)
	if e.Line > 0 {
		msg += fmt.Sprintf(": line %d", e.Line)
	}
	return msg + ": " + e.Msg
}

// IsSchemaError reports whether err is or wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsLoadError reports whether err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
