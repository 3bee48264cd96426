package sqlquerywrapper

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"
)

type Opt func(*DB)

type queryLogger interface {
	Infon(msg string, fields ...logger.Field)
}

// DB wraps a *sql.DB, timing every statement and logging the slow ones.
type DB struct {
	*sql.DB

	since              func(time.Time) time.Duration
	logger             queryLogger
	statsFactory       stats.Stats
	fields             []logger.Field
	slowQueryThreshold time.Duration
}

type Tx struct {
	*sql.Tx
	db *DB
}

func WithLogger(logger queryLogger) Opt {
	return func(s *DB) {
		s.logger = logger
	}
}

func WithStats(statsFactory stats.Stats) Opt {
	return func(s *DB) {
		s.statsFactory = statsFactory
	}
}

func WithFields(fields ...logger.Field) Opt {
	return func(s *DB) {
		s.fields = fields
	}
}

func WithSlowQueryThreshold(slowQueryThreshold time.Duration) Opt {
	return func(s *DB) {
		s.slowQueryThreshold = slowQueryThreshold
	}
}

func New(db *sql.DB, opts ...Opt) *DB {
	s := &DB{
		DB:                 db,
		since:              time.Since,
		logger:             logger.NOP,
		statsFactory:       stats.NOP,
		slowQueryThreshold: 300 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	startedAt := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	db.observe(query, db.since(startedAt))
	return result, err
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	startedAt := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	db.observe(query, db.since(startedAt))
	return rows, err
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	startedAt := time.Now()
	row := db.DB.QueryRowContext(ctx, query, args...)
	db.observe(query, db.since(startedAt))
	return row
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx, db: db}, nil
}

// WithTx runs f inside a transaction, committing when f returns nil and
// rolling back otherwise.
func (db *DB) WithTx(ctx context.Context, f func(*Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := f(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w; %s", err, rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (db *DB) observe(query string, elapsed time.Duration) {
	queryType, _ := GetQueryType(query)
	db.statsFactory.NewTaggedStat("corr_query_time", stats.TimerType, stats.Tags{
		"queryType": queryType,
	}).SendTiming(elapsed)

	if elapsed < db.slowQueryThreshold {
		return
	}

	fields := []logger.Field{
		logger.NewStringField("query", query),
		logger.NewStringField("queryType", queryType),
		logger.NewDurationField("queryExecutionTime", elapsed),
	}
	fields = append(fields, db.fields...)

	db.logger.Infon("executing query", fields...)
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	startedAt := time.Now()
	result, err := tx.Tx.ExecContext(ctx, query, args...)
	tx.db.observe(query, tx.db.since(startedAt))
	return result, err
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	startedAt := time.Now()
	rows, err := tx.Tx.QueryContext(ctx, query, args...)
	tx.db.observe(query, tx.db.since(startedAt))
	return rows, err
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	startedAt := time.Now()
	row := tx.Tx.QueryRowContext(ctx, query, args...)
	tx.db.observe(query, tx.db.since(startedAt))
	return row
}
