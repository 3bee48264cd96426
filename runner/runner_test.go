package runner

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"

	"github.com/rudderlabs/rudder-corrmatrix/correlation"
	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "corr.duckdb")
	db, err := sql.Open("duckdb", dsn)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE houses (id INTEGER, city VARCHAR, price DOUBLE, area DOUBLE);
		INSERT INTO houses VALUES
		  (1, 'Athens', 120000, 55.5),
		  (2, 'Patras', 250000, 90.0),
		  (3, 'Volos', 180000, 72.0),
		  (4, 'Volos', 320000, 130.25);
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	conf := config.New()
	conf.Set("DB.driver", dialect.DuckDB)
	conf.Set("DB.dsn", dsn)
	conf.Set("DB.connectRetries", 0)
	conf.Set("enableStats", false)

	var out bytes.Buffer
	return &Runner{
		releaseInfo: ReleaseInfo{Version: "v1.2.3", Commit: "4f2c9e1", BuildDate: "2024-03-01", BuiltBy: "ci"},
		conf:        conf,
		logger:      logger.NOP,
		stdout:      &out,
	}, &out
}

func TestRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("matrix show columns verify", func(t *testing.T) {
		r, out := newTestRunner(t)

		require.Equal(t, 0, r.Run(ctx, []string{serviceName, "matrix", "--source", "houses", "--output", "houses_corr", "--columns", "price, area, city, garage"}))
		require.Contains(t, out.String(), "created houses_corr from main.houses: 2 variables")
		require.Contains(t, out.String(), "targets: price, area")
		require.Contains(t, out.String(), "ignored non-numeric: city")
		require.Contains(t, out.String(), "ignored nonexistent: garage")

		out.Reset()
		require.Equal(t, 0, r.Run(ctx, []string{serviceName, "show", "--relation", "houses_corr", "--precision", "2"}))
		require.Contains(t, out.String(), "price")
		require.Contains(t, out.String(), "1.00")

		out.Reset()
		require.Equal(t, 0, r.Run(ctx, []string{serviceName, "columns", "--relation", "houses"}))
		require.Contains(t, out.String(), "city")
		require.Contains(t, out.String(), "VARCHAR")
		require.Contains(t, out.String(), "yes")
		require.Contains(t, out.String(), "no")

		out.Reset()
		require.Equal(t, 0, r.Run(ctx, []string{serviceName, "verify", "--source", "houses", "--output", "houses_corr"}))
		require.Contains(t, out.String(), "main.houses_corr: 2 variables")
	})

	t.Run("version", func(t *testing.T) {
		r, out := newTestRunner(t)

		require.Equal(t, 0, r.Run(ctx, []string{serviceName, "version"}))
		require.Contains(t, out.String(), `"Version": "v1.2.3"`)
		require.Contains(t, out.String(), `"Commit": "4f2c9e1"`)
	})

	t.Run("missing source", func(t *testing.T) {
		r, _ := newTestRunner(t)

		require.Equal(t, 2, r.Run(ctx, []string{serviceName, "matrix", "--source", "flats", "--output", "flats_corr"}))
	})

	t.Run("missing required flag", func(t *testing.T) {
		r, _ := newTestRunner(t)

		require.Equal(t, 1, r.Run(ctx, []string{serviceName, "matrix", "--source", "houses"}))
	})

	t.Run("unsupported driver", func(t *testing.T) {
		r, _ := newTestRunner(t)
		r.conf.Set("DB.driver", "oracle")

		require.Equal(t, 1, r.Run(ctx, []string{serviceName, "columns", "--relation", "houses"}))
	})
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 2, exitCode(fmt.Errorf("%w: houses", correlation.ErrRelationNotFound)))
	require.Equal(t, 2, exitCode(fmt.Errorf("%w: only price", correlation.ErrInsufficientTargets)))
	require.Equal(t, 1, exitCode(fmt.Errorf("%w: boom", correlation.ErrExecution)))
	require.Equal(t, 1, exitCode(errors.New("could not ping")))
}

func TestConnectionString(t *testing.T) {
	conf := dbConfig{
		driver:   "postgres",
		host:     "db.internal",
		port:     5433,
		user:     "rudder",
		password: "secret",
		name:     "analytics",
		sslMode:  "require",
	}
	require.Equal(t,
		"host=db.internal port=5433 user=rudder password=secret dbname=analytics sslmode=require application_name=rudder-corrmatrix",
		conf.connectionString(),
	)

	conf.dsn = "postgres://rudder@db.internal/analytics"
	require.Equal(t, "postgres://rudder@db.internal/analytics", conf.connectionString())

	require.Empty(t, dbConfig{driver: dialect.DuckDB}.connectionString())
}

func TestRenderMatrix(t *testing.T) {
	one, half := 1.0, 0.5
	var out bytes.Buffer
	renderMatrix(&out, &model.Matrix{
		Variables: []string{"price", "area"},
		Cells: [][]*float64{
			{&one, nil},
			{&half, &one},
		},
	}, 3)
	require.Contains(t, out.String(), "price")
	require.Contains(t, out.String(), "0.500")
	require.Contains(t, out.String(), "1.000")
}
