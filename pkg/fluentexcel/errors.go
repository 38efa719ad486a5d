package fluentexcel

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports an unresolved or colliding column index, an
	// invalid sheet name, or a malformed tag/fluent/YAML configuration.
	ErrConfiguration = errors.New("fluentexcel: configuration error")
	// ErrNotFound reports a missing file, sheet name or sheet index.
	ErrNotFound = errors.New("fluentexcel: not found")
	// ErrUnsupportedFormat reports a container that cannot be read or written.
	ErrUnsupportedFormat = errors.New("fluentexcel: unsupported format")
	// ErrValidation reports a cell or row validator rejection.
	ErrValidation = errors.New("fluentexcel: validation failed")
	// ErrTypeConversion reports a cell value that cannot be coerced to its field type.
	ErrTypeConversion = errors.New("fluentexcel: type conversion failed")
)

// CellError localizes an import failure. Row and Column are zero based
// physical positions; Column is -1 for row level failures.
type CellError struct {
	Row    int
	Column int
	Title  string
	Err    error
}

func (e *CellError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	if e.Title != "" {
		return fmt.Sprintf("row %d, column %d (%s): %v", e.Row, e.Column, e.Title, e.Err)
	}
	return fmt.Sprintf("row %d, column %d: %v", e.Row, e.Column, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
