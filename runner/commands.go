package runner

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alexeyco/simpletable"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/rudderlabs/rudder-corrmatrix/correlation"
	"github.com/rudderlabs/rudder-corrmatrix/internal/catalog"
	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/matrix"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

func (r *Runner) app() *cli.App {
	return &cli.App{
		Name:        serviceName,
		Usage:       "materialize correlation matrices of relational data",
		Version:     r.releaseInfo.Version,
		Writer:      r.stdout,
		HideVersion: true,
		Commands: []*cli.Command{
			{
				Name:   "matrix",
				Usage:  "build the correlation matrix of a relation into an output table",
				Action: r.matrix,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Usage: "[schema.]name of the relation to read", Required: true},
					&cli.StringFlag{Name: "output", Usage: "[schema.]name of the table to replace", Required: true},
					&cli.StringFlag{Name: "columns", Usage: `comma separated target columns, all numeric columns if empty or *; double quote mixed case names on postgres, e.g. "Price"`},
				},
			},
			{
				Name:   "show",
				Usage:  "print a materialized correlation matrix",
				Action: r.show,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "relation", Usage: "[schema.]name of the matrix table", Required: true},
					&cli.IntFlag{Name: "precision", Usage: "decimal places", Value: 4},
				},
			},
			{
				Name:   "columns",
				Usage:  "list the columns of a relation and whether they qualify as targets",
				Action: r.columns,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "relation", Usage: "[schema.]name of the relation", Required: true},
				},
			},
			{
				Name:   "verify",
				Usage:  "recompute a materialized matrix in memory and report the largest difference",
				Action: r.verify,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Usage: "[schema.]name of the relation the matrix was built from", Required: true},
					&cli.StringFlag{Name: "output", Usage: "[schema.]name of the matrix table", Required: true},
					&cli.Float64Flag{Name: "tolerance", Usage: "largest acceptable difference", Value: 1e-9},
				},
			},
			{
				Name:  "version",
				Usage: "print release information",
				Action: func(c *cli.Context) error {
					r.printVersion(c.App.Writer)
					return nil
				},
			},
		},
	}
}

func (r *Runner) matrix(c *cli.Context) error {
	db, err := r.openDatabase(c.Context)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	correlator := correlation.New(r.conf, r.logger, r.statsFactory, db.db, db.dialect)
	res, err := correlator.Compute(c.Context, correlation.Request{
		Source:        c.String("source"),
		Output:        c.String("output"),
		TargetColumns: c.String("columns"),
	})
	if err != nil {
		return err
	}

	w := c.App.Writer
	_, _ = fmt.Fprintf(w, "created %s from %s: %d variables in %s\n", res.Output, res.Source, res.ColumnCount, res.Elapsed)
	_, _ = fmt.Fprintf(w, "targets: %s\n", strings.Join(res.Targets, ", "))
	if len(res.IgnoredNonNumeric) > 0 {
		_, _ = fmt.Fprintf(w, "ignored non-numeric: %s\n", strings.Join(res.IgnoredNonNumeric, ", "))
	}
	if len(res.IgnoredNonexistent) > 0 {
		_, _ = fmt.Fprintf(w, "ignored nonexistent: %s\n", strings.Join(res.IgnoredNonexistent, ", "))
	}
	return nil
}

func (r *Runner) show(c *cli.Context) error {
	db, err := r.openDatabase(c.Context)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	relation, err := r.resolve(c, db, c.String("relation"))
	if err != nil {
		return err
	}
	m, err := matrix.Load(c.Context, db.db, db.dialect, relation)
	if err != nil {
		return err
	}

	renderMatrix(c.App.Writer, m, c.Int("precision"))
	return nil
}

func renderMatrix(w io.Writer, m *model.Matrix, precision int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{""}, m.Variables...))
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for i, variable := range m.Variables {
		row := []string{variable}
		for j := range m.Variables {
			if v, ok := m.Cell(i, j); ok {
				row = append(row, strconv.FormatFloat(v, 'f', precision, 64))
			} else {
				row = append(row, "")
			}
		}
		table.Append(row)
	}
	table.Render()
}

func (r *Runner) columns(c *cli.Context) error {
	db, err := r.openDatabase(c.Context)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	cat := catalog.New(db.db, db.dialect, r.logger)
	relation, err := cat.ResolveRelation(c.Context, c.String("relation"))
	if err != nil {
		return err
	}
	columns, err := cat.ListColumns(c.Context, relation)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.App.Writer, renderColumns(db.dialect, columns))
	return nil
}

func renderColumns(d dialect.Dialect, columns []model.Column) string {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "#"},
			{Align: simpletable.AlignCenter, Text: "Column"},
			{Align: simpletable.AlignCenter, Text: "Type"},
			{Align: simpletable.AlignCenter, Text: "Numeric"},
		},
	}

	for _, column := range columns {
		numeric := "no"
		if d.IsNumeric(column.DataType) {
			numeric = "yes"
		}
		table.Body.Cells = append(table.Body.Cells, []*simpletable.Cell{
			{Align: simpletable.AlignRight, Text: strconv.Itoa(column.Position)},
			{Align: simpletable.AlignLeft, Text: column.Name},
			{Align: simpletable.AlignLeft, Text: column.DataType},
			{Align: simpletable.AlignCenter, Text: numeric},
		})
	}

	table.SetStyle(simpletable.StyleCompactLite)
	return table.String()
}

func (r *Runner) verify(c *cli.Context) error {
	db, err := r.openDatabase(c.Context)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	source, err := r.resolve(c, db, c.String("source"))
	if err != nil {
		return err
	}
	output, err := r.resolve(c, db, c.String("output"))
	if err != nil {
		return err
	}

	got, err := matrix.Load(c.Context, db.db, db.dialect, output)
	if err != nil {
		return err
	}
	want, err := matrix.Reference(c.Context, db.db, db.dialect, source, got.Variables)
	if err != nil {
		return err
	}
	diff, err := matrix.MaxAbsDiff(got, want)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.App.Writer, "%s: %d variables, max abs difference %g\n", output, len(got.Variables), diff)
	if tolerance := c.Float64("tolerance"); diff > tolerance {
		return fmt.Errorf("matrix %s differs from %s by %g, above tolerance %g", output, source, diff, tolerance)
	}
	return nil
}

func (r *Runner) resolve(c *cli.Context, db *database, name string) (model.Relation, error) {
	return catalog.New(db.db, db.dialect, r.logger).ResolveRelation(c.Context, name)
}
