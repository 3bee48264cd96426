// Package correlation computes the pairwise correlation matrix of the numeric
// columns of a relation and materializes it as a table.
//
// A run validates its arguments, classifies the source columns, resolves the
// requested targets and finally builds the matrix with a single generated
// statement. The coefficients themselves are computed by the engine's corr
// aggregate.
package correlation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"

	"github.com/rudderlabs/rudder-corrmatrix/internal/catalog"
	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/lock"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
	sqlmw "github.com/rudderlabs/rudder-corrmatrix/internal/sqlquerywrapper"
)

//go:generate mockgen -destination=../mocks/correlation/mock_catalog.go -package mock_correlation github.com/rudderlabs/rudder-corrmatrix/correlation Catalog

// Catalog answers the schema questions asked while validating and classifying.
type Catalog interface {
	ResolveRelation(ctx context.Context, name string) (model.Relation, error)
	HasRows(ctx context.Context, relation model.Relation) (bool, error)
	ListColumns(ctx context.Context, relation model.Relation) ([]model.Column, error)
}

type outputLocker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Request describes a single matrix build.
type Request struct {
	// Source is the [schema.]name of the relation to read.
	Source string
	// Output is the [schema.]name of the relation to replace with the matrix.
	Output string
	// TargetColumns is a comma separated list of columns. Empty or "*"
	// selects every numeric column.
	TargetColumns string
}

type Result struct {
	Source             model.Relation
	Output             model.Relation
	Targets            []string
	IgnoredNonNumeric  []string
	IgnoredNonexistent []string
	// ColumnCount is the number of variables in the matrix.
	ColumnCount int
	Elapsed     time.Duration
}

type Opt func(*Correlator)

func WithCatalog(c Catalog) Opt {
	return func(co *Correlator) {
		co.catalog = c
	}
}

func WithNow(now func() time.Time) Opt {
	return func(co *Correlator) {
		co.now = now
	}
}

func WithStagingName(newName func() string) Opt {
	return func(co *Correlator) {
		co.newStagingName = newName
	}
}

type Correlator struct {
	db             *sqlmw.DB
	dialect        dialect.Dialect
	catalog        Catalog
	locker         outputLocker
	log            logger.Logger
	statsFactory   stats.Stats
	now            func() time.Time
	newStagingName func() string

	config struct {
		atomicReplace   bool
		serializeOutput bool
		stagingPrefix   string
	}
}

func New(conf *config.Config, log logger.Logger, statsFactory stats.Stats, db *sqlmw.DB, d dialect.Dialect, opts ...Opt) *Correlator {
	c := &Correlator{
		db:           db,
		dialect:      d,
		log:          log.Child("correlation"),
		statsFactory: statsFactory,
		now:          time.Now,
	}
	c.catalog = catalog.New(db, d, log)
	c.locker = lock.New(db.DB, log)
	c.newStagingName = c.stagingName

	c.config.atomicReplace = conf.GetBool("Correlation.atomicReplace", true)
	c.config.serializeOutput = conf.GetBool("Correlation.serializeOutput", false)
	c.config.stagingPrefix = conf.GetString("Correlation.tempTablePrefix", "corr_tmp_")

	for _, opt := range opts {
		opt(c)
	}

	if c.config.serializeOutput && !d.SupportsAdvisoryLock() {
		c.log.Warnn("Output serialization is not supported, builds will not be serialized",
			logger.NewStringField("dialect", d.Name()),
		)
	}
	return c
}

// Compute runs the whole pipeline for req. On success the output relation has
// been replaced by the matrix. Every returned error wraps one of the package's
// sentinel errors.
func (c *Correlator) Compute(ctx context.Context, req Request) (*Result, error) {
	result, err := c.compute(ctx, req)

	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	c.statsFactory.NewTaggedStat("correlation_runs", stats.CountType, stats.Tags{
		"status":    status,
		"errorKind": errorKindTag(err),
		"dialect":   c.dialect.Name(),
	}).Increment()

	if err != nil {
		return nil, err
	}
	return result, nil
}

func errorKindTag(err error) string {
	if err == nil {
		return ""
	}
	return ErrorKind(err)
}

func (c *Correlator) compute(ctx context.Context, req Request) (*Result, error) {
	source, output, err := c.validate(ctx, req.Source, req.Output)
	if err != nil {
		return nil, err
	}

	columns, err := c.classify(ctx, source)
	if err != nil {
		return nil, err
	}

	resolved, err := resolveTargets(c.dialect, ParseTargetSpec(req.TargetColumns), columns)
	c.reportTargets(source, resolved)
	if err != nil {
		return nil, err
	}

	if c.config.serializeOutput && c.dialect.SupportsAdvisoryLock() {
		release, err := c.locker.Acquire(ctx, c.dialect.QualifiedName(output))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecution, err)
		}
		defer release()
	}

	n, elapsed, err := c.build(ctx, source, output, resolved.Targets)
	if err != nil {
		return nil, err
	}

	tags := stats.Tags{"dialect": c.dialect.Name()}
	c.statsFactory.NewTaggedStat("correlation_matrix_build_time", stats.TimerType, tags).SendTiming(elapsed)
	c.statsFactory.NewTaggedStat("correlation_matrix_targets", stats.HistogramType, tags).Observe(float64(n))

	c.log.Infon("Built correlation matrix",
		logger.NewStringField("source", source.String()),
		logger.NewStringField("output", output.String()),
		logger.NewIntField("columns", int64(n)),
		logger.NewDurationField("elapsed", elapsed),
	)

	return &Result{
		Source:             source,
		Output:             output,
		Targets:            resolved.Targets,
		IgnoredNonNumeric:  resolved.IgnoredNonNumeric,
		IgnoredNonexistent: resolved.IgnoredNonexistent,
		ColumnCount:        n,
		Elapsed:            elapsed,
	}, nil
}

func (c *Correlator) reportTargets(source model.Relation, resolved model.ResolvedTargets) {
	tags := func(reason string) stats.Tags {
		return stats.Tags{"dialect": c.dialect.Name(), "reason": reason}
	}
	c.statsFactory.NewTaggedStat("correlation_ignored_columns", stats.CountType, tags("non_numeric")).Count(len(resolved.IgnoredNonNumeric))
	c.statsFactory.NewTaggedStat("correlation_ignored_columns", stats.CountType, tags("nonexistent")).Count(len(resolved.IgnoredNonexistent))

	c.log.Infon("Resolved target columns",
		logger.NewStringField("source", source.String()),
		logger.NewStringField("ignoredNonNumeric", strings.Join(resolved.IgnoredNonNumeric, ",")),
		logger.NewStringField("ignoredNonexistent", strings.Join(resolved.IgnoredNonexistent, ",")),
		logger.NewStringField("targets", strings.Join(resolved.Targets, ",")),
	)
}
