package correlation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rudderlabs/rudder-go-kit/logger"
	obskit "github.com/rudderlabs/rudder-observability-kit/go/labels"

	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
	sqlmw "github.com/rudderlabs/rudder-corrmatrix/internal/sqlquerywrapper"
)

// matrixQuery renders the statement materializing the correlation matrix of
// targets over source.
//
// A single aggregate subquery over the whole source produces one row holding
// N+2 arrays: column_position, variable and one array per target. The array of
// target i holds, for every target j, NULL when j < i, 1.0 when j == i and
// corr(i, j) otherwise. Unnesting all arrays in lockstep yields one row per
// target in which only the cells at or below the diagonal are set.
type matrixQuery struct {
	dialect dialect.Dialect
	source  model.Relation
	targets []string
}

func (q matrixQuery) arrays() (names, exprs []string) {
	d := q.dialect
	floatType := d.FloatType()

	positions := make([]string, len(q.targets))
	variables := make([]string, len(q.targets))
	for i, target := range q.targets {
		positions[i] = strconv.Itoa(i + 1)
		variables[i] = "CAST(" + d.QuoteLiteral(target) + " AS " + d.TextType() + ")"
	}
	names = append(names, positionColumn, variableColumn)
	exprs = append(exprs, d.Array(positions), d.Array(variables))

	for i, target := range q.targets {
		cells := make([]string, len(q.targets))
		for j, other := range q.targets {
			switch {
			case j < i:
				cells[j] = "CAST(NULL AS " + floatType + ")"
			case j == i:
				cells[j] = "CAST(1.0 AS " + floatType + ")"
			default:
				cells[j] = fmt.Sprintf("corr(CAST(%s AS %s), CAST(%s AS %s))",
					d.QuoteIdentifier(target), floatType,
					d.QuoteIdentifier(other), floatType,
				)
			}
		}
		names = append(names, target)
		exprs = append(exprs, d.Array(cells))
	}
	return names, exprs
}

// selectSQL returns the SELECT statement producing the matrix rows.
func (q matrixQuery) selectSQL() string {
	d := q.dialect
	names, exprs := q.arrays()

	quoted := make([]string, len(names))
	inner := make([]string, len(names))
	for i, name := range names {
		quoted[i] = d.QuoteIdentifier(name)
		inner[i] = "      " + exprs[i] + " AS " + quoted[i]
	}

	var sb strings.Builder
	sb.WriteString("SELECT\n")
	switch d.Unnest() {
	case dialect.UnnestSelectList:
		outer := make([]string, len(quoted))
		for i, name := range quoted {
			outer[i] = "  unnest(m." + name + ") AS " + name
		}
		sb.WriteString(strings.Join(outer, ",\n"))
	default:
		outer := make([]string, len(quoted))
		for i, name := range quoted {
			outer[i] = "  t." + name
		}
		sb.WriteString(strings.Join(outer, ",\n"))
	}
	sb.WriteString("\nFROM\n  (\n    SELECT\n")
	sb.WriteString(strings.Join(inner, ",\n"))
	sb.WriteString("\n    FROM\n      " + d.QualifiedName(q.source) + "\n  ) AS m")
	if d.Unnest() == dialect.UnnestFromClause {
		args := make([]string, len(quoted))
		for i, name := range quoted {
			args[i] = "m." + name
		}
		sb.WriteString("\n  CROSS JOIN LATERAL unnest(" + strings.Join(args, ", ") + ") AS t(" + strings.Join(quoted, ", ") + ")")
	}
	return sb.String()
}

// createSQL returns the CREATE TABLE AS statement materializing the matrix
// into relation.
func (q matrixQuery) createSQL(relation model.Relation) string {
	return "CREATE TABLE " + q.dialect.QualifiedName(relation) + " AS\n" + q.selectSQL() + ";"
}

func dropSQL(d dialect.Dialect, relation model.Relation) string {
	return "DROP TABLE IF EXISTS " + d.QualifiedName(relation) + ";"
}

func renameSQL(d dialect.Dialect, from model.Relation, to string) string {
	return "ALTER TABLE " + d.QualifiedName(from) + " RENAME TO " + d.QuoteIdentifier(to) + ";"
}

// build materializes the matrix of targets over source into output and
// returns the number of variables and the time spent executing.
func (c *Correlator) build(ctx context.Context, source, output model.Relation, targets []string) (int, time.Duration, error) {
	start := c.now()
	query := matrixQuery{dialect: c.dialect, source: source, targets: targets}

	var err error
	if c.config.atomicReplace {
		err = c.replaceAtomically(ctx, query, output)
	} else {
		err = c.replace(ctx, query, output)
	}
	if err != nil {
		return 0, 0, err
	}
	return len(targets), c.now().Sub(start), nil
}

// replace drops output and recreates it. A failure between the two leaves no
// output relation behind.
func (c *Correlator) replace(ctx context.Context, query matrixQuery, output model.Relation) error {
	if _, err := c.db.ExecContext(ctx, dropSQL(c.dialect, output)); err != nil {
		return fmt.Errorf("%w: dropping %s: %w", ErrExecution, output, err)
	}
	if _, err := c.db.ExecContext(ctx, query.createSQL(output)); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrExecution, output, err)
	}
	return nil
}

// replaceAtomically builds the matrix into a staging relation next to output
// and swaps it in within a single transaction, so a failed build leaves any
// previous output untouched.
func (c *Correlator) replaceAtomically(ctx context.Context, query matrixQuery, output model.Relation) error {
	staging := model.Relation{Schema: output.Schema, Name: c.newStagingName()}

	if _, err := c.db.ExecContext(ctx, query.createSQL(staging)); err != nil {
		c.dropStaging(ctx, staging)
		return fmt.Errorf("%w: creating %s: %w", ErrExecution, staging, err)
	}

	err := c.db.WithTx(ctx, func(tx *sqlmw.Tx) error {
		if _, err := tx.ExecContext(ctx, dropSQL(c.dialect, output)); err != nil {
			return fmt.Errorf("dropping %s: %w", output, err)
		}
		if _, err := tx.ExecContext(ctx, renameSQL(c.dialect, staging, output.Name)); err != nil {
			return fmt.Errorf("renaming %s to %s: %w", staging, output, err)
		}
		return nil
	})
	if err != nil {
		c.dropStaging(ctx, staging)
		return fmt.Errorf("%w: replacing %s: %w", ErrExecution, output, err)
	}
	return nil
}

func (c *Correlator) dropStaging(ctx context.Context, staging model.Relation) {
	if _, err := c.db.ExecContext(context.WithoutCancel(ctx), dropSQL(c.dialect, staging)); err != nil {
		c.log.Warnn("Dropping staging relation",
			logger.NewStringField("relation", staging.String()),
			obskit.Error(err),
		)
	}
}

func (c *Correlator) stagingName() string {
	return c.config.stagingPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}
