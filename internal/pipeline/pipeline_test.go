package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/cholera-map-dashboard/internal/domain"
	"github.com/couchcryptid/cholera-map-dashboard/internal/observability"
	"github.com/couchcryptid/cholera-map-dashboard/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	datasets map[string]domain.Dataset
	errs     map[string]error
	calls    []string
}

func (m *mockLoader) Load(_ context.Context, name, path string) (domain.Dataset, error) {
	m.calls = append(m.calls, name+"="+path)
	if err := m.errs[name]; err != nil {
		return domain.Dataset{}, err
	}
	return m.datasets[name], nil
}

func dataset(name string, points ...[2]float64) domain.Dataset {
	ds := domain.Dataset{Name: name, Columns: []string{"X", "Y"}}
	for i, p := range points {
		ds.Records = append(ds.Records, domain.Record{Line: i + 2, X: p[0], Y: p[1]})
	}
	return ds
}

func exampleLoader() *mockLoader {
	return &mockLoader{
		datasets: map[string]domain.Dataset{
			domain.DatasetDeaths: dataset(domain.DatasetDeaths,
				[2]float64{529308, 181031},
				[2]float64{529308, 181031},
				[2]float64{529310, 181040},
			),
			domain.DatasetPumps: dataset(domain.DatasetPumps,
				[2]float64{529396.539, 181025.063},
				[2]float64{529192.538, 181079.391},
			),
		},
	}
}

var testSources = pipeline.Sources{DeathsPath: "Cholera_Deaths.csv", PumpsPath: "Pumps.csv"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freezeClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	fake := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})
	return fake
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	fake := freezeClock(t)
	ldr := exampleLoader()
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ldr, testSources, discardLogger(), metrics)

	snap, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"deaths=Cholera_Deaths.csv", "pumps=Pumps.csv"}, ldr.calls)
	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, fake.Now(), snap.GeneratedAt)
	assert.Equal(t, domain.Summary{TotalDeaths: 3, MaxDeathsSameLocation: 2}, snap.Summary)

	deathsLayer, ok := snap.Map.Layer(domain.DatasetDeaths)
	require.True(t, ok)
	assert.Len(t, deathsLayer.Markers, 3)
	pumpsLayer, ok := snap.Map.Layer(domain.DatasetPumps)
	require.True(t, ok)
	assert.Len(t, pumpsLayer.Markers, 2)

	assert.True(t, p.Ready())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RunsTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LastRunSuccess), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.RecordsLoaded.WithLabelValues("deaths")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RecordsLoaded.WithLabelValues("pumps")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MaxDeathsSameLocation), 0)
}

func TestPipeline_Run_SharedReprojection(t *testing.T) {
	p := pipeline.New(exampleLoader(), testSources, discardLogger(), observability.NewMetricsForTesting())

	snap, err := p.Run(context.Background())
	require.NoError(t, err)

	grid := domain.NewReprojector()
	for _, ds := range []domain.Dataset{snap.Deaths, snap.Pumps} {
		for _, rec := range ds.Records {
			lon, lat, err := grid.ToLonLat(rec.X, rec.Y)
			require.NoError(t, err)
			assert.Equal(t, lon, rec.Lon, "%s line %d", ds.Name, rec.Line)
			assert.Equal(t, lat, rec.Lat, "%s line %d", ds.Name, rec.Line)
		}
	}

	center, err := domain.Center(snap.Deaths)
	require.NoError(t, err)
	assert.Equal(t, center, snap.Map.Center)
}

func TestPipeline_Run_EachRunIsIndependent(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(exampleLoader(), testSources, discardLogger(), metrics)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Map, second.Map, "runs are deterministic")
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RunsTotal), 0)
}

func TestPipeline_Run_LoadError(t *testing.T) {
	ldr := exampleLoader()
	ldr.errs = map[string]error{domain.DatasetPumps: errors.New("open pumps dataset: no such file")}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ldr, testSources, discardLogger(), metrics)

	_, err := p.Run(context.Background())
	require.Error(t, err)

	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageLoad, se.Stage)
	assert.Contains(t, err.Error(), "no such file")
	assert.False(t, p.Ready())
	require.Error(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RunErrors.WithLabelValues(pipeline.StageLoad)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.LastRunSuccess), 0)
}

func TestPipeline_Run_ReprojectErrorIsFatal(t *testing.T) {
	ldr := exampleLoader()
	ldr.datasets[domain.DatasetDeaths] = dataset(domain.DatasetDeaths,
		[2]float64{529308, 181031},
		[2]float64{-5, 181031},
	)
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ldr, testSources, discardLogger(), metrics)

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrOutOfRange)

	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageReproject, se.Stage)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RunErrors.WithLabelValues(pipeline.StageReproject)), 0)
}

func TestPipeline_Run_EmptyDeathsIsFatal(t *testing.T) {
	ldr := exampleLoader()
	ldr.datasets[domain.DatasetDeaths] = dataset(domain.DatasetDeaths)
	p := pipeline.New(ldr, testSources, discardLogger(), observability.NewMetricsForTesting())

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrNoDeaths)

	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageMap, se.Stage)
}

func TestPipeline_Run_EmptyPumpsIsValid(t *testing.T) {
	ldr := exampleLoader()
	ldr.datasets[domain.DatasetPumps] = dataset(domain.DatasetPumps)
	p := pipeline.New(ldr, testSources, discardLogger(), observability.NewMetricsForTesting())

	snap, err := p.Run(context.Background())
	require.NoError(t, err)

	pumps, ok := snap.Map.Layer(domain.DatasetPumps)
	require.True(t, ok)
	assert.Empty(t, pumps.Markers)
	deaths, _ := snap.Map.Layer(domain.DatasetDeaths)
	assert.Len(t, deaths.Markers, 3)
}

func TestPipeline_Run_ReadinessFollowsLatestRun(t *testing.T) {
	ldr := exampleLoader()
	p := pipeline.New(ldr, testSources, discardLogger(), observability.NewMetricsForTesting())

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Ready())

	ldr.errs = map[string]error{domain.DatasetDeaths: errors.New("gone")}
	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.False(t, p.Ready())
}

func TestPipeline_Run_MapOptions(t *testing.T) {
	p := pipeline.New(exampleLoader(), testSources, discardLogger(), observability.NewMetricsForTesting(),
		domain.WithTileURL("https://tiles.example.test/{z}/{x}/{y}.png"))

	snap, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://tiles.example.test/{z}/{x}/{y}.png", snap.Map.Tiles.URL)
}
