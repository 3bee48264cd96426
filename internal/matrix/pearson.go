package matrix

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

// Accumulator computes the Pearson correlation of a stream of (x, y) pairs.
// It keeps running means and co-moments (Welford) instead of raw sums, so
// values sitting on a large offset do not cancel each other out.
type Accumulator struct {
	n            int
	meanX, meanY float64
	m2X, m2Y     float64
	cXY          float64
}

func (a *Accumulator) Add(x, y float64) {
	a.n++
	n := float64(a.n)
	dx := x - a.meanX
	dy := y - a.meanY
	a.meanX += dx / n
	a.meanY += dy / n
	a.m2X += dx * (x - a.meanX)
	a.m2Y += dy * (y - a.meanY)
	a.cXY += dx * (y - a.meanY)
}

// Corr returns the correlation coefficient, or false when it is undefined
// because fewer than two pairs were added or either side has no variance.
func (a *Accumulator) Corr() (float64, bool) {
	if a.n < 2 || a.m2X <= 0 || a.m2Y <= 0 {
		return 0, false
	}
	r := a.cXY / math.Sqrt(a.m2X*a.m2Y)
	return math.Max(-1, math.Min(1, r)), true
}

// Pearson returns the correlation of xs and ys, skipping pairs where either
// value is missing.
func Pearson(xs, ys []sql.NullFloat64) (float64, bool) {
	var a Accumulator
	for i := range xs {
		if i >= len(ys) {
			break
		}
		if xs[i].Valid && ys[i].Valid {
			a.Add(xs[i].Float64, ys[i].Float64)
		}
	}
	return a.Corr()
}

// Reference recomputes the matrix of targets over source in memory using the
// same layout as the materialized one: 1.0 on the diagonal, the coefficient
// below it and NULL above it.
func Reference(ctx context.Context, db querier, d dialect.Dialect, source model.Relation, targets []string) (*model.Matrix, error) {
	exprs := make([]string, len(targets))
	for i, target := range targets {
		exprs[i] = "CAST(" + d.QuoteIdentifier(target) + " AS " + d.FloatType() + ")"
	}
	query := `SELECT ` + strings.Join(exprs, ", ") + ` FROM ` + d.QualifiedName(source) + `;`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying source %s: %w", source, err)
	}
	defer func() { _ = rows.Close() }()

	n := len(targets)
	pairs := make([][]Accumulator, n)
	for i := range pairs {
		pairs[i] = make([]Accumulator, i)
	}

	values := make([]sql.NullFloat64, n)
	dest := make([]any, n)
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning source %s: %w", source, err)
		}
		for i := 1; i < n; i++ {
			if !values[i].Valid {
				continue
			}
			for j := 0; j < i; j++ {
				if values[j].Valid {
					pairs[i][j].Add(values[i].Float64, values[j].Float64)
				}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source %s: %w", source, err)
	}

	m := &model.Matrix{
		Variables: append([]string(nil), targets...),
		Cells:     make([][]*float64, n),
	}
	for i := range m.Cells {
		m.Cells[i] = make([]*float64, n)
		one := 1.0
		m.Cells[i][i] = &one
		for j := 0; j < i; j++ {
			if r, ok := pairs[i][j].Corr(); ok {
				m.Cells[i][j] = &r
			}
		}
	}
	return m, nil
}
