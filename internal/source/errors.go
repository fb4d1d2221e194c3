package source

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaError reports columns that a source does not have.
type SchemaError struct {
	// Missing lists every absent column, in request order.
	Missing []string

	// Source is the descriptive identity of the queried source.
	Source string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	return fmt.Sprintf("%s not in %s", strings.Join(quoted, ", "), e.Source)
}

// IsSchemaError returns true if the error is a schema error.
// Uses errors.As to handle wrapped errors.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
