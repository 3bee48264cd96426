package correlation

import (
	"errors"

	"github.com/rudderlabs/rudder-corrmatrix/internal/catalog"
)

// Every failure returned by Compute wraps exactly one of these.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrRelationNotFound    = catalog.ErrRelationNotFound
	ErrEmptyRelation       = errors.New("relation is empty")
	ErrNoNumericTargets    = errors.New("no numeric target columns")
	ErrInsufficientTargets = errors.New("at least two numeric target columns are required")
	ErrTooManyTargets      = errors.New("too many target columns")
	ErrExecution           = errors.New("execution failed")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidArgument, "invalid_argument"},
	{ErrRelationNotFound, "relation_not_found"},
	{ErrEmptyRelation, "empty_relation"},
	{ErrNoNumericTargets, "no_numeric_targets"},
	{ErrInsufficientTargets, "insufficient_targets"},
	{ErrTooManyTargets, "too_many_targets"},
	{ErrExecution, "execution"},
}

// ErrorKind returns a short snake_case label for the sentinel wrapped by err.
func ErrorKind(err error) string {
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return "unknown"
}
