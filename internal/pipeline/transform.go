package pipeline

import (
	"github.com/couchcryptid/cholera-map-dashboard/internal/domain"
)

// Transform reprojects both datasets with a single Reprojector, summarizes the
// deaths, and builds the map. It returns a Snapshot without RunID or
// GeneratedAt; failures are wrapped in a StageError.
func Transform(deaths, pumps domain.Dataset, mapOpts ...domain.MapOption) (domain.Snapshot, error) {
	grid := domain.NewReprojector()

	deaths, err := grid.ReprojectDataset(deaths)
	if err != nil {
		return domain.Snapshot{}, &StageError{Stage: StageReproject, Err: err}
	}
	pumps, err = grid.ReprojectDataset(pumps)
	if err != nil {
		return domain.Snapshot{}, &StageError{Stage: StageReproject, Err: err}
	}

	view, err := domain.BuildMap(deaths, pumps, mapOpts...)
	if err != nil {
		return domain.Snapshot{}, &StageError{Stage: StageMap, Err: err}
	}

	return domain.Snapshot{
		Deaths:  deaths,
		Pumps:   pumps,
		Summary: domain.Summarize(deaths),
		Map:     view,
	}, nil
}
