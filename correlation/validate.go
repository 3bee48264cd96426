package correlation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

// validate checks the invocation arguments in a fixed order and returns the
// resolved source relation together with the output relation: the existing
// one when the name already resolves, the parsed name otherwise. It does not
// modify anything.
func (c *Correlator) validate(ctx context.Context, source, output string) (model.Relation, model.Relation, error) {
	if strings.TrimSpace(source) == "" {
		return model.Relation{}, model.Relation{}, fmt.Errorf("%w: source relation name is empty", ErrInvalidArgument)
	}

	sourceRelation, err := c.catalog.ResolveRelation(ctx, source)
	if errors.Is(err, ErrRelationNotFound) {
		return model.Relation{}, model.Relation{}, fmt.Errorf("source relation %q does not exist: %w", source, err)
	}
	if err != nil {
		return model.Relation{}, model.Relation{}, fmt.Errorf("%w: %w", ErrExecution, err)
	}

	hasRows, err := c.catalog.HasRows(ctx, sourceRelation)
	if err != nil {
		return model.Relation{}, model.Relation{}, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	if !hasRows {
		return model.Relation{}, model.Relation{}, fmt.Errorf("%w: source relation %s has no rows", ErrEmptyRelation, sourceRelation)
	}

	if strings.TrimSpace(output) == "" {
		return model.Relation{}, model.Relation{}, fmt.Errorf("%w: output relation name is empty", ErrInvalidArgument)
	}
	outputRelation, err := dialect.ParseRelation(c.dialect, output)
	if err != nil {
		return model.Relation{}, model.Relation{}, fmt.Errorf("%w: output relation %q: %w", ErrInvalidArgument, output, err)
	}

	existing, err := c.catalog.ResolveRelation(ctx, output)
	switch {
	case errors.Is(err, ErrRelationNotFound):
	case err != nil:
		return model.Relation{}, model.Relation{}, fmt.Errorf("%w: %w", ErrExecution, err)
	case existing == sourceRelation:
		return model.Relation{}, model.Relation{}, fmt.Errorf("%w: output relation %q would replace the source relation", ErrInvalidArgument, output)
	default:
		// An unqualified name may resolve to any schema on the search path.
		// Replace the relation the name points at, in its own schema.
		outputRelation = existing
	}

	return sourceRelation, outputRelation, nil
}
