package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/profiler"
	"github.com/rudderlabs/rudder-go-kit/stats"
	svcMetric "github.com/rudderlabs/rudder-go-kit/stats/metric"
	obskit "github.com/rudderlabs/rudder-observability-kit/go/labels"

	"github.com/rudderlabs/rudder-corrmatrix/correlation"
)

const serviceName = "rudder-corrmatrix"

// ReleaseInfo holds the release information
type ReleaseInfo struct {
	Version   string
	Commit    string
	BuildDate string
	BuiltBy   string
}

// Runner is responsible for running the application
type Runner struct {
	releaseInfo  ReleaseInfo
	conf         *config.Config
	logger       logger.Logger
	statsFactory stats.Stats
	stdout       io.Writer
}

// New creates and initializes a new Runner
func New(releaseInfo ReleaseInfo) *Runner {
	return &Runner{
		releaseInfo: releaseInfo,
		conf:        config.Default,
		logger:      logger.NewLogger().Child("runner"),
		stdout:      os.Stdout,
	}
}

// Run runs the command line given by args and returns the exit code
func (r *Runner) Run(ctx context.Context, args []string) int {
	path, err := r.conf.ConfigFileUsed()
	if err != nil {
		r.logger.Debugn("Config: Failed to parse config file, using default values",
			logger.NewStringField("path", path),
			obskit.Error(err),
		)
	} else {
		r.logger.Infon("Config: Using config file", logger.NewStringField("path", path))
	}
	if err := r.conf.DotEnvLoaded(); err != nil {
		r.logger.Debugn("Config: No .env file loaded", obskit.Error(err))
	}

	statsOptions := []stats.Option{
		stats.WithServiceName(serviceName),
		stats.WithServiceVersion(r.releaseInfo.Version),
		stats.WithDefaultHistogramBuckets(defaultHistogramBuckets),
	}
	for histogramName, buckets := range customBuckets {
		statsOptions = append(statsOptions, stats.WithHistogramBuckets(histogramName, buckets))
	}
	r.statsFactory = stats.NewStats(r.conf, logger.Default, svcMetric.Instance, statsOptions...)
	if err := r.statsFactory.Start(ctx, stats.DefaultGoRoutineFactory); err != nil {
		r.logger.Errorn("Failed to start stats", obskit.Error(err))
		return 1
	}
	defer r.statsFactory.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	if r.conf.GetBool("Profiler.Enabled", false) {
		g.Go(func() error {
			return profiler.StartServer(gCtx, r.conf.GetInt("Profiler.Port", 7777))
		})
	}

	var cmdErr error
	g.Go(func() error {
		defer cancel()
		cmdErr = r.app().RunContext(gCtx, args)
		return cmdErr
	})
	if err := g.Wait(); err != nil && cmdErr == nil {
		r.logger.Errorn("Terminal error", obskit.Error(err))
		return 1
	}
	logger.Sync()

	if cmdErr != nil {
		r.logger.Errorn("Command failed", obskit.Error(cmdErr))
		return exitCode(cmdErr)
	}
	return 0
}

// exitCode returns 2 for errors caused by the caller's input and 1 otherwise.
func exitCode(err error) int {
	for _, userErr := range []error{
		correlation.ErrInvalidArgument,
		correlation.ErrRelationNotFound,
		correlation.ErrEmptyRelation,
		correlation.ErrNoNumericTargets,
		correlation.ErrInsufficientTargets,
		correlation.ErrTooManyTargets,
	} {
		if errors.Is(err, userErr) {
			return 2
		}
	}
	return 1
}

func (r *Runner) versionInfo() map[string]interface{} {
	return map[string]interface{}{
		"Version":   r.releaseInfo.Version,
		"Commit":    r.releaseInfo.Commit,
		"BuildDate": r.releaseInfo.BuildDate,
		"BuiltBy":   r.releaseInfo.BuiltBy,
	}
}

func (r *Runner) printVersion(w io.Writer) {
	version := r.versionInfo()
	versionFormatted, _ := json.MarshalIndent(&version, "", " ")
	_, _ = fmt.Fprintf(w, "Version Info %s\n", versionFormatted)
}
