package runner

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/rudderlabs/rudder-go-kit/logger"
	obskit "github.com/rudderlabs/rudder-observability-kit/go/labels"

	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	sqlmw "github.com/rudderlabs/rudder-corrmatrix/internal/sqlquerywrapper"
)

type dbConfig struct {
	driver             string
	dsn                string
	host               string
	port               int
	user               string
	password           string
	name               string
	sslMode            string
	maxOpenConnections int
	connectRetries     int
	slowQueryThreshold time.Duration
}

func (r *Runner) loadDBConfig() dbConfig {
	return dbConfig{
		driver:             r.conf.GetString("DB.driver", "postgres"),
		dsn:                r.conf.GetString("DB.dsn", ""),
		host:               r.conf.GetString("DB.host", "localhost"),
		port:               r.conf.GetInt("DB.port", 5432),
		user:               r.conf.GetString("DB.user", "postgres"),
		password:           r.conf.GetString("DB.password", ""),
		name:               r.conf.GetString("DB.name", "postgres"),
		sslMode:            r.conf.GetString("DB.sslMode", "disable"),
		maxOpenConnections: r.conf.GetInt("DB.maxOpenConnections", 4),
		connectRetries:     r.conf.GetInt("DB.connectRetries", 3),
		slowQueryThreshold: r.conf.GetDuration("Correlation.slowQueryThreshold", 5, time.Second),
	}
}

func (c dbConfig) connectionString() string {
	if c.dsn != "" || c.driver == dialect.DuckDB {
		return c.dsn
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s",
		c.host,
		c.port,
		c.user,
		c.password,
		c.name,
		c.sslMode,
		serviceName,
	)
}

// database is an open connection together with the dialect of the engine
// behind it.
type database struct {
	raw     *sql.DB
	db      *sqlmw.DB
	dialect dialect.Dialect
}

func (d *database) Close() error {
	return d.raw.Close()
}

// openDatabase connects to the configured engine, retrying the initial ping,
// and resolves its dialect.
func (r *Runner) openDatabase(ctx context.Context) (*database, error) {
	conf := r.loadDBConfig()

	raw, err := sql.Open(conf.driver, conf.connectionString())
	if err != nil {
		return nil, fmt.Errorf("could not open: %w", err)
	}
	raw.SetMaxOpenConns(conf.maxOpenConnections)

	operation := func() error {
		return raw.PingContext(ctx)
	}
	backoffWithMaxRetry := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(conf.connectRetries)),
		ctx,
	)
	err = backoff.RetryNotify(operation, backoffWithMaxRetry, func(err error, t time.Duration) {
		r.logger.Warnn("Retrying database ping",
			logger.NewStringField("driver", conf.driver),
			logger.NewDurationField("after", t),
			obskit.Error(err),
		)
	})
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("could not ping: %w", err)
	}

	d, err := dialect.Resolve(ctx, raw, conf.driver)
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("resolving dialect: %w", err)
	}
	r.logger.Infon("Connected",
		logger.NewStringField("dialect", d.Name()),
		logger.NewStringField("version", d.Version()),
	)

	return &database{
		raw: raw,
		db: sqlmw.New(
			raw,
			sqlmw.WithLogger(r.logger.Child("db")),
			sqlmw.WithStats(r.statsFactory),
			sqlmw.WithSlowQueryThreshold(conf.slowQueryThreshold),
			sqlmw.WithFields(logger.NewStringField("dialect", d.Name())),
		),
		dialect: d,
	}, nil
}
