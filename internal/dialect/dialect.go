// Package dialect holds the engine specific parts of matrix generation:
// identifier and literal quoting, numeric type recognition, array
// construction and the catalog lookups. A Dialect is resolved once per process
// by Resolve and handed explicitly to the components that need it.
package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

const (
	Postgres = "postgres"
	DuckDB   = "duckdb"
)

var (
	ErrUnsupportedDriver  = errors.New("unsupported driver")
	ErrUnsupportedVersion = errors.New("unsupported engine version")
)

// UnnestStyle tells the builder how to expand the per-variable arrays into
// rows while keeping them in lockstep.
type UnnestStyle int

const (
	// UnnestFromClause uses a single multi-argument unnest in the FROM clause.
	UnnestFromClause UnnestStyle = iota
	// UnnestSelectList uses one unnest per select-list expression; the engine
	// zips equally sized lists.
	UnnestSelectList
)

type Dialect interface {
	// Name is the engine family, one of Postgres or DuckDB.
	Name() string
	// Version is the engine version string reported at resolve time.
	Version() string

	QuoteIdentifier(name string) string
	QuoteLiteral(value string) string
	QualifiedName(r model.Relation) string
	// NormalizeIdentifier applies the engine's folding rules to a name as
	// written by a caller.
	NormalizeIdentifier(id model.Identifier) string
	// CaseInsensitive reports whether names compare without regard to case.
	CaseInsensitive() bool

	// IsNumeric reports whether a declared column type, as found in
	// information_schema.columns.data_type, is one of smallint, integer,
	// bigint, real, decimal or double.
	IsNumeric(dataType string) bool

	FloatType() string
	IntegerType() string
	TextType() string
	Array(elements []string) string
	Unnest() UnnestStyle
	// MaxColumns is the widest table the engine can create, 0 if unbounded.
	MaxColumns() int
	SupportsAdvisoryLock() bool

	// RelationQuery returns the query resolving a caller supplied relation
	// name to its (schema, name) pair. The query yields no rows when the
	// relation does not exist.
	RelationQuery(raw string) (string, []any, error)
	// ColumnsQuery returns the query listing (column_name, data_type,
	// ordinal_position) of a relation ordered by ordinal_position.
	ColumnsQuery(r model.Relation) (string, []any)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Resolve inspects the connected engine and returns the matching Dialect.
// driver is the database/sql driver name used to open the connection.
func Resolve(ctx context.Context, db querier, driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		var (
			versionNum int
			version    string
		)
		err := db.QueryRowContext(ctx, `
			SELECT
			  current_setting('server_version_num')::int,
			  current_setting('server_version');
		`).Scan(&versionNum, &version)
		if err != nil {
			return nil, fmt.Errorf("querying postgres version: %w", err)
		}
		if versionNum < minPostgresVersion {
			return nil, fmt.Errorf("%w: postgres %s, need >= 9.6", ErrUnsupportedVersion, version)
		}
		return &postgres{version: version, versionNum: versionNum}, nil
	case DuckDB:
		var version string
		if err := db.QueryRowContext(ctx, `SELECT version();`).Scan(&version); err != nil {
			return nil, fmt.Errorf("querying duckdb version: %w", err)
		}
		return &duckdb{version: version}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// ParseRelation parses a caller supplied [schema.]name using the dialect's
// folding rules.
func ParseRelation(d Dialect, raw string) (model.Relation, error) {
	ids, err := model.ParseIdentifiers(raw)
	if err != nil {
		return model.Relation{}, err
	}
	switch len(ids) {
	case 1:
		return model.Relation{Name: d.NormalizeIdentifier(ids[0])}, nil
	case 2:
		return model.Relation{
			Schema: d.NormalizeIdentifier(ids[0]),
			Name:   d.NormalizeIdentifier(ids[1]),
		}, nil
	default:
		return model.Relation{}, fmt.Errorf("%w: %q has %d segments, want [schema.]name", model.ErrInvalidIdentifier, raw, len(ids))
	}
}

func qualifiedName(d Dialect, r model.Relation) string {
	if r.Schema == "" {
		return d.QuoteIdentifier(r.Name)
	}
	return d.QuoteIdentifier(r.Schema) + "." + d.QuoteIdentifier(r.Name)
}
