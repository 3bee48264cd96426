package dialect

import (
	"fmt"
	"strings"

	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

var duckdbNumericTypes = map[string]struct{}{
	"SMALLINT": {},
	"INTEGER":  {},
	"BIGINT":   {},
	"FLOAT":    {},
	"REAL":     {},
	"DOUBLE":   {},
}

type duckdb struct {
	version string
}

// NewDuckDB returns the duckdb dialect without contacting the engine.
func NewDuckDB(version string) Dialect {
	return &duckdb{version: version}
}

func (*duckdb) Name() string          { return DuckDB }
func (d *duckdb) Version() string     { return d.version }
func (*duckdb) CaseInsensitive() bool { return true }

func (*duckdb) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (*duckdb) QuoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func (d *duckdb) QualifiedName(r model.Relation) string { return qualifiedName(d, r) }

// NormalizeIdentifier keeps the name as written; duckdb resolves names
// case-insensitively but preserves their spelling.
func (*duckdb) NormalizeIdentifier(id model.Identifier) string { return id.Value }

func (*duckdb) IsNumeric(dataType string) bool {
	dataType = strings.ToUpper(strings.TrimSpace(dataType))
	if strings.HasPrefix(dataType, "DECIMAL") || strings.HasPrefix(dataType, "NUMERIC") {
		return true
	}
	_, ok := duckdbNumericTypes[dataType]
	return ok
}

func (*duckdb) FloatType() string   { return "DOUBLE" }
func (*duckdb) IntegerType() string { return "INTEGER" }
func (*duckdb) TextType() string    { return "VARCHAR" }

func (*duckdb) Array(elements []string) string {
	return "list_value(" + strings.Join(elements, ", ") + ")"
}

func (*duckdb) Unnest() UnnestStyle        { return UnnestSelectList }
func (*duckdb) MaxColumns() int            { return 0 }
func (*duckdb) SupportsAdvisoryLock() bool { return false }

func (d *duckdb) RelationQuery(raw string) (string, []any, error) {
	ids, err := model.ParseIdentifiers(raw)
	if err != nil {
		return "", nil, err
	}
	switch len(ids) {
	case 1:
		return `
			SELECT
			  table_schema,
			  table_name
			FROM
			  information_schema.tables
			WHERE
			  table_catalog = current_database()
			  AND lower(table_schema) = lower(current_schema())
			  AND lower(table_name) = lower($1);
		`, []any{d.NormalizeIdentifier(ids[0])}, nil
	case 2:
		return `
			SELECT
			  table_schema,
			  table_name
			FROM
			  information_schema.tables
			WHERE
			  table_catalog = current_database()
			  AND lower(table_schema) = lower($1)
			  AND lower(table_name) = lower($2);
		`, []any{d.NormalizeIdentifier(ids[0]), d.NormalizeIdentifier(ids[1])}, nil
	default:
		return "", nil, fmt.Errorf("%w: %q has %d segments, want [schema.]name", model.ErrInvalidIdentifier, raw, len(ids))
	}
}

func (*duckdb) ColumnsQuery(r model.Relation) (string, []any) {
	return `
		SELECT
		  column_name,
		  data_type,
		  ordinal_position
		FROM
		  information_schema.columns
		WHERE
		  table_catalog = current_database()
		  AND table_schema = $1
		  AND table_name = $2
		ORDER BY
		  ordinal_position;
	`, []any{r.Schema, r.Name}
}
