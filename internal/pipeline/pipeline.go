package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/couchcryptid/cholera-map-dashboard/internal/domain"
	"github.com/couchcryptid/cholera-map-dashboard/internal/observability"
)

// Pipeline stages, used as error and metric labels.
const (
	StageLoad      = "load"
	StageReproject = "reproject"
	StageMap       = "map"
)

// DatasetLoader reads a named dataset from path.
type DatasetLoader interface {
	Load(ctx context.Context, name, path string) (domain.Dataset, error)
}

// Sources names the two input files.
type Sources struct {
	DeathsPath string
	PumpsPath  string
}

// StageError records which stage of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline runs load, reproject, summarize, and map construction from scratch
// on every call to Run.
type Pipeline struct {
	loader  DatasetLoader
	sources Sources
	mapOpts []domain.MapOption
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Pipeline reading the given sources.
func New(loader DatasetLoader, sources Sources, logger *slog.Logger, metrics *observability.Metrics, mapOpts ...domain.MapOption) *Pipeline {
	return &Pipeline{
		loader:  loader,
		sources: sources,
		mapOpts: mapOpts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil if the most recent run succeeded,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("dashboard has no successful run")
	}
	return nil
}

// Ready reports whether the most recent run succeeded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run executes one complete dashboard run. Any failure aborts the run; there
// is no partial snapshot.
func (p *Pipeline) Run(ctx context.Context) (domain.Snapshot, error) {
	start := domain.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	p.metrics.RunsTotal.Inc()

	snap, err := p.run(ctx, runID)
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			p.metrics.RunErrors.WithLabelValues(se.Stage).Inc()
		}
		p.metrics.LastRunSuccess.Set(0)
		p.ready.Store(false)
		logger.Error("dashboard run failed", "error", err)
		return domain.Snapshot{}, err
	}

	p.metrics.LastRunSuccess.Set(1)
	p.metrics.RecordsLoaded.WithLabelValues(domain.DatasetDeaths).Set(float64(snap.Deaths.Len()))
	p.metrics.RecordsLoaded.WithLabelValues(domain.DatasetPumps).Set(float64(snap.Pumps.Len()))
	p.metrics.MaxDeathsSameLocation.Set(float64(snap.Summary.MaxDeathsSameLocation))
	p.metrics.RunDuration.Observe(domain.Since(start).Seconds())
	p.ready.Store(true)

	logger.Info("dashboard run complete",
		"deaths", snap.Deaths.Len(),
		"pumps", snap.Pumps.Len(),
		"total_deaths", snap.Summary.TotalDeaths,
		"max_death_same_location", snap.Summary.MaxDeathsSameLocation,
		"duration", domain.Since(start),
	)
	return snap, nil
}

func (p *Pipeline) run(ctx context.Context, runID string) (domain.Snapshot, error) {
	deaths, err := p.loader.Load(ctx, domain.DatasetDeaths, p.sources.DeathsPath)
	if err != nil {
		return domain.Snapshot{}, &StageError{Stage: StageLoad, Err: err}
	}
	pumps, err := p.loader.Load(ctx, domain.DatasetPumps, p.sources.PumpsPath)
	if err != nil {
		return domain.Snapshot{}, &StageError{Stage: StageLoad, Err: err}
	}

	snap, err := Transform(deaths, pumps, p.mapOpts...)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap.RunID = runID
	snap.GeneratedAt = domain.Now()
	return snap, nil
}
