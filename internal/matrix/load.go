// Package matrix reads materialized correlation matrices back and recomputes
// them in memory for verification.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

var ErrMalformed = errors.New("malformed correlation matrix")

const (
	positionColumn = "column_position"
	variableColumn = "variable"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Load reads the matrix stored in relation ordered by column_position. The
// relation must have the column_position and variable columns followed by one
// column per variable, in the same order as the rows.
func Load(ctx context.Context, db querier, d dialect.Dialect, relation model.Relation) (*model.Matrix, error) {
	query := `SELECT * FROM ` + d.QualifiedName(relation) + ` ORDER BY ` + d.QuoteIdentifier(positionColumn) + `;`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying matrix %s: %w", relation, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", relation, err)
	}
	if len(columns) < 2 || columns[0] != positionColumn || columns[1] != variableColumn {
		return nil, fmt.Errorf("%w: %s has columns %v", ErrMalformed, relation, columns)
	}
	variables := columns[2:]

	m := &model.Matrix{Variables: variables}
	for rows.Next() {
		var (
			position int64
			variable string
			values   = make([]sql.NullFloat64, len(variables))
			dest     = []any{&position, &variable}
		)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning matrix %s: %w", relation, err)
		}

		row := len(m.Cells)
		if row >= len(variables) || variables[row] != variable || position != int64(row+1) {
			return nil, fmt.Errorf("%w: %s row %d is %d/%q", ErrMalformed, relation, row+1, position, variable)
		}

		cells := make([]*float64, len(values))
		for i, v := range values {
			if v.Valid {
				cells[i] = &v.Float64
			}
		}
		m.Cells = append(m.Cells, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matrix %s: %w", relation, err)
	}
	if len(m.Cells) != len(variables) {
		return nil, fmt.Errorf("%w: %s has %d rows for %d variables", ErrMalformed, relation, len(m.Cells), len(variables))
	}
	return m, nil
}

// MaxAbsDiff compares two matrices over the same variables and returns the
// largest absolute difference between corresponding cells. Cells must agree
// on being NULL.
func MaxAbsDiff(got, want *model.Matrix) (float64, error) {
	if len(got.Variables) != len(want.Variables) {
		return 0, fmt.Errorf("%w: %d variables, want %d", ErrMalformed, len(got.Variables), len(want.Variables))
	}
	for i := range got.Variables {
		if got.Variables[i] != want.Variables[i] {
			return 0, fmt.Errorf("%w: variable %d is %q, want %q", ErrMalformed, i+1, got.Variables[i], want.Variables[i])
		}
	}

	var maxDiff float64
	for i := range want.Cells {
		for j := range want.Cells[i] {
			g, gok := got.Cell(i, j)
			w, wok := want.Cell(i, j)
			if gok != wok {
				return 0, fmt.Errorf("%w: cell (%s, %s) null mismatch", ErrMalformed, want.Variables[i], want.Variables[j])
			}
			if gok {
				maxDiff = math.Max(maxDiff, math.Abs(g-w))
			}
		}
	}
	return maxDiff, nil
}
