package analysis

import "fmt"

// ImputationError reports a column that has no non-null value to derive a fill from.
type ImputationError struct {
	Column string
	Kind   string
}

func (e *ImputationError) Error() string {
	return fmt.Sprintf("cannot impute column %q: every %s value is missing", e.Column, e.Kind)
}
