// Package catalog answers the schema questions the correlation pipeline asks
// of the engine: does a relation exist, does it hold rows and which columns
// does it have.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rudderlabs/rudder-go-kit/logger"

	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
	sqlmw "github.com/rudderlabs/rudder-corrmatrix/internal/sqlquerywrapper"
)

var ErrRelationNotFound = errors.New("relation not found")

type Catalog struct {
	db      *sqlmw.DB
	dialect dialect.Dialect
	log     logger.Logger
}

func New(db *sqlmw.DB, d dialect.Dialect, log logger.Logger) *Catalog {
	return &Catalog{
		db:      db,
		dialect: d,
		log:     log.Child("catalog"),
	}
}

// ResolveRelation resolves a caller supplied relation name to the schema and
// name stored in the catalog. It returns ErrRelationNotFound when no such
// table or view exists.
func (c *Catalog) ResolveRelation(ctx context.Context, name string) (model.Relation, error) {
	query, args, err := c.dialect.RelationQuery(name)
	if err != nil {
		return model.Relation{}, fmt.Errorf("%w: %s: %v", ErrRelationNotFound, name, err)
	}

	var relation model.Relation
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&relation.Schema, &relation.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Relation{}, fmt.Errorf("%w: %s", ErrRelationNotFound, name)
	}
	if err != nil {
		return model.Relation{}, fmt.Errorf("resolving relation %s: %w", name, err)
	}

	c.log.Debugn("Resolved relation",
		logger.NewStringField("name", name),
		logger.NewStringField("relation", relation.String()),
	)
	return relation, nil
}

// HasRows reports whether the relation holds at least one row.
func (c *Catalog) HasRows(ctx context.Context, relation model.Relation) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ` + c.dialect.QualifiedName(relation) + `);`

	var exists bool
	if err := c.db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking rows of %s: %w", relation, err)
	}
	return exists, nil
}

// ListColumns returns the columns of the relation ordered by their ordinal
// position.
func (c *Catalog) ListColumns(ctx context.Context, relation model.Relation) ([]model.Column, error) {
	query, args := c.dialect.ColumnsQuery(relation)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying columns of %s: %w", relation, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []model.Column
	for rows.Next() {
		var column model.Column
		if err := rows.Scan(&column.Name, &column.DataType, &column.Position); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", relation, err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns of %s: %w", relation, err)
	}
	return columns, nil
}
