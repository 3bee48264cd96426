package dialect

import (
	"strings"

	"github.com/lib/pq"

	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

// minPostgresVersion is the integer form of 9.6, the first release whose
// to_regclass accepts text.
const minPostgresVersion = 90600

// maxPostgresColumns is the hard limit on columns per table.
const maxPostgresColumns = 1600

var postgresNumericTypes = map[string]struct{}{
	"smallint":         {},
	"integer":          {},
	"bigint":           {},
	"real":             {},
	"numeric":          {},
	"double precision": {},
}

type postgres struct {
	version    string
	versionNum int
}

// NewPostgres returns the postgres dialect without contacting a server.
func NewPostgres(version string) Dialect {
	return &postgres{version: version, versionNum: minPostgresVersion}
}

func (*postgres) Name() string          { return Postgres }
func (p *postgres) Version() string     { return p.version }
func (*postgres) CaseInsensitive() bool { return false }

func (*postgres) QuoteIdentifier(name string) string { return pq.QuoteIdentifier(name) }
func (*postgres) QuoteLiteral(value string) string   { return pq.QuoteLiteral(value) }

func (p *postgres) QualifiedName(r model.Relation) string { return qualifiedName(p, r) }

// NormalizeIdentifier folds unquoted names to lower case like the server does.
func (*postgres) NormalizeIdentifier(id model.Identifier) string {
	if id.Quoted {
		return id.Value
	}
	return strings.ToLower(id.Value)
}

func (*postgres) IsNumeric(dataType string) bool {
	_, ok := postgresNumericTypes[strings.ToLower(strings.TrimSpace(dataType))]
	return ok
}

func (*postgres) FloatType() string   { return "double precision" }
func (*postgres) IntegerType() string { return "integer" }
func (*postgres) TextType() string    { return "text" }

func (*postgres) Array(elements []string) string {
	return "ARRAY[" + strings.Join(elements, ", ") + "]"
}

func (*postgres) Unnest() UnnestStyle        { return UnnestFromClause }
func (*postgres) MaxColumns() int            { return maxPostgresColumns }
func (*postgres) SupportsAdvisoryLock() bool { return true }

// RelationQuery parses raw before handing it to to_regclass, which raises
// instead of returning NULL on malformed names before postgres 16.
func (p *postgres) RelationQuery(raw string) (string, []any, error) {
	relation, err := ParseRelation(p, raw)
	if err != nil {
		return "", nil, err
	}
	return `
		SELECT
		  n.nspname,
		  c.relname
		FROM
		  pg_catalog.pg_class c
		  JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE
		  c.oid = to_regclass($1);
	`, []any{p.QualifiedName(relation)}, nil
}

func (*postgres) ColumnsQuery(r model.Relation) (string, []any) {
	return `
		SELECT
		  column_name,
		  data_type,
		  ordinal_position
		FROM
		  information_schema.columns
		WHERE
		  table_schema = $1
		  AND table_name = $2
		ORDER BY
		  ordinal_position;
	`, []any{r.Schema, r.Name}
}
