package correlation

import (
	"context"
	"fmt"
	"sort"

	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

func (c *Correlator) classify(ctx context.Context, source model.Relation) (model.ColumnSet, error) {
	columns, err := c.catalog.ListColumns(ctx, source)
	if err != nil {
		return model.ColumnSet{}, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	return classifyColumns(c.dialect, columns), nil
}

// classifyColumns splits columns into numeric and non-numeric names, both in
// ordinal order.
func classifyColumns(d dialect.Dialect, columns []model.Column) model.ColumnSet {
	ordered := make([]model.Column, len(columns))
	copy(ordered, columns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	var set model.ColumnSet
	for _, column := range ordered {
		if d.IsNumeric(column.DataType) {
			set.Numeric = append(set.Numeric, column.Name)
		} else {
			set.NonNumeric = append(set.NonNumeric, column.Name)
		}
	}
	return set
}
