package extract

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when no line of any page matched the shipment grammar.
var ErrNoData = errors.New("no valid data extracted")

// InvariantError reports a matched capture that could not be typed. The
// grammar rules this out, so it always indicates a defect.
type InvariantError struct {
	Page  int // 1-based, 0 when unknown
	Line  int // 1-based within the page, 0 when unknown
	Field string
	Text  string
	Err   error
}

func (e *InvariantError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("internal invariant violated: page %d line %d: cannot parse %s from %q: %v",
			e.Page, e.Line, e.Field, e.Text, e.Err)
	}
	return fmt.Sprintf("internal invariant violated: cannot parse %s from %q: %v", e.Field, e.Text, e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}
