// Command validate runs the dashboard pipeline once against the configured
// CSV files and checks the result: both files load, every row reprojects and
// round-trips back to its grid position, the summary agrees with the raw
// rows, and each layer has one marker per row. Reprojected positions are
// also compared with the wgs84 package's OSGB36 transform.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -deaths data/Cholera_Deaths.csv \
//	  -pumps data/Pumps.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/wroge/wgs84"

	"github.com/couchcryptid/cholera-map-dashboard/internal/adapter/csvfile"
	"github.com/couchcryptid/cholera-map-dashboard/internal/config"
	"github.com/couchcryptid/cholera-map-dashboard/internal/domain"
	"github.com/couchcryptid/cholera-map-dashboard/internal/pipeline"
)

// maxResidual is the largest accepted grid → lon/lat → grid error in metres.
const maxResidual = 0.1

// maxDrift is the largest accepted distance in metres from the wgs84 package's
// own OSGB36 transform, which uses a coarser datum shift.
const maxDrift = 5.0

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "FATAL: load .env: %v\n", err)
		os.Exit(1)
	}

	deathsPath, pumpsPath, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	os.Exit(run(os.Stdout, deathsPath, pumpsPath))
}

// parseFlags resolves the two input paths. Only DEATHS_CSV and PUMPS_CSV are
// read from the environment; the rest of the service config does not apply.
func parseFlags(args []string) (deathsPath, pumpsPath string, err error) {
	set := flag.NewFlagSet("validate", flag.ContinueOnError)
	set.StringVar(&deathsPath, "deaths", sharedcfg.EnvOrDefault("DEATHS_CSV", config.DefaultDeathsPath), "path to the cholera deaths CSV")
	set.StringVar(&pumpsPath, "pumps", sharedcfg.EnvOrDefault("PUMPS_CSV", config.DefaultPumpsPath), "path to the water pumps CSV")
	err = set.Parse(args)
	return deathsPath, pumpsPath, err
}

func run(out io.Writer, deathsPath, pumpsPath string) int {
	fmt.Fprintln(out, "=== Cholera Dataset Validation ===")
	fmt.Fprintln(out)

	loader := csvfile.NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	deaths, err := loader.Load(ctx, domain.DatasetDeaths, deathsPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	pumps, err := loader.Load(ctx, domain.DatasetPumps, pumpsPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	snap, err := pipeline.Transform(deaths, pumps)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRoundTrip(snap.Deaths, snap.Pumps),
		validateCrossCheck(snap.Deaths, snap.Pumps),
		validateSummary(snap.Summary, deaths),
		validateLayers(snap.Map, deaths, pumps),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d deaths, %d pumps\n", deaths.Len(), pumps.Len())
	fmt.Fprintf(out, "Total deaths: %d\n", snap.Summary.TotalDeaths)
	fmt.Fprintf(out, "Max deaths at one location: %d\n", snap.Summary.MaxDeathsSameLocation)
	fmt.Fprintf(out, "Map center: %.6f, %.6f (lat, lon)\n", snap.Map.Center.Lat, snap.Map.Center.Lon)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Reprojection ──
// Every reprojected row must map back to its source grid pair.

func validateRoundTrip(datasets ...domain.Dataset) *phase {
	p := &phase{name: "Phase 1: Reprojection round trip"}
	grid := domain.NewReprojector()

	for _, ds := range datasets {
		for _, rec := range ds.Records {
			x, y, err := grid.ToGrid(rec.Lon, rec.Lat)
			if err != nil {
				p.errorf("%s line %d: %v", ds.Name, rec.Line, err)
				continue
			}
			if residual := math.Hypot(x-rec.X, y-rec.Y); residual > maxResidual {
				p.errorf("%s line %d: residual %.3fm exceeds %.1fm", ds.Name, rec.Line, residual, maxResidual)
			}
		}
	}
	return p
}

// ── Phase 2: Cross-check ──
// An independent implementation must agree to within a few metres.

func validateCrossCheck(datasets ...domain.Dataset) *phase {
	p := &phase{name: "Phase 2: Cross-check against wgs84"}
	reference := wgs84.EPSG().SafeTransform(27700, 4326)

	for _, ds := range datasets {
		for _, rec := range ds.Records {
			lon, lat, _, err := reference(rec.X, rec.Y, 0)
			if err != nil {
				p.errorf("%s line %d: %v", ds.Name, rec.Line, err)
				continue
			}
			dy := (rec.Lat - lat) * 111320
			dx := (rec.Lon - lon) * 111320 * math.Cos(rec.Lat*math.Pi/180)
			if d := math.Hypot(dx, dy); d > maxDrift {
				p.errorf("%s line %d: %.2fm from wgs84 result exceeds %.0fm", ds.Name, rec.Line, d, maxDrift)
			}
		}
	}
	return p
}

// ── Phase 3: Summary ──
// Recounts co-location directly from the raw rows.

func validateSummary(s domain.Summary, deaths domain.Dataset) *phase {
	p := &phase{name: "Phase 3: Summary statistics"}

	if s.TotalDeaths != deaths.Len() {
		p.errorf("total deaths %d != %d rows", s.TotalDeaths, deaths.Len())
	}

	counts := map[[2]float64]int{}
	want := 0
	for _, rec := range deaths.Records {
		k := [2]float64{rec.X, rec.Y}
		counts[k]++
		want = max(want, counts[k])
	}
	if s.MaxDeathsSameLocation != want {
		p.errorf("max deaths at one location %d != recount %d", s.MaxDeathsSameLocation, want)
	}
	if deaths.Len() > 0 && s.MaxDeathsSameLocation < 1 {
		p.errorf("max deaths at one location is %d for a non-empty dataset", s.MaxDeathsSameLocation)
	}
	return p
}

// ── Phase 4: Map layers ──

func validateLayers(m domain.MapView, deaths, pumps domain.Dataset) *phase {
	p := &phase{name: "Phase 4: Map layers"}

	for _, want := range []domain.Dataset{deaths, pumps} {
		layer, ok := m.Layer(want.Name)
		if !ok {
			p.errorf("layer %q missing", want.Name)
			continue
		}
		if len(layer.Markers) != want.Len() {
			p.errorf("layer %q has %d markers for %d rows", want.Name, len(layer.Markers), want.Len())
		}
	}
	if !m.LayerControl {
		p.errorf("layer control disabled")
	}
	return p
}
