// Package dashboard renders a dashboard snapshot as a single HTML page with
// the summary metrics above an interactive Leaflet map.
package dashboard

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/cholera-map-dashboard/internal/domain"
)

//go:embed templates/*.html.tmpl
var templates embed.FS

// Map widget size in CSS pixels.
const (
	MapWidth  = 1000
	MapHeight = 600
)

// Metric is one labelled headline value.
type Metric struct {
	Label string
	Value string
}

type page struct {
	Title       string
	Subtitle    string
	Metrics     []Metric
	Overlay     domain.Overlay
	MapJSON     template.JS
	MapWidth    int
	MapHeight   int
	RunID       string
	GeneratedAt string
}

// Presenter turns snapshots into HTML. It is safe for concurrent use.
type Presenter struct {
	tmpl *template.Template
}

// New parses the embedded page template.
func New() (*Presenter, error) {
	tmpl, err := template.ParseFS(templates, "templates/dashboard.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &Presenter{tmpl: tmpl}, nil
}

// Metrics returns the headline values shown above the map.
func Metrics(s domain.Summary) []Metric {
	return []Metric{
		{Label: "Total Cholera Deaths", Value: strconv.Itoa(s.TotalDeaths)},
		{Label: "Maximum Deaths at One Location", Value: strconv.Itoa(s.MaxDeathsSameLocation)},
	}
}

// Render writes the dashboard page for snap to w. The page is rendered into a
// buffer first so a template error never leaves a half-written response.
func (p *Presenter) Render(w io.Writer, snap domain.Snapshot) error {
	mapJSON, err := json.Marshal(snap.Map)
	if err != nil {
		return fmt.Errorf("encode map view: %w", err)
	}

	data := page{
		Title:       "Cholera Death Dashboard",
		Subtitle:    "Interactive Cholera Map",
		Metrics:     Metrics(snap.Summary),
		Overlay:     snap.Map.Overlay,
		MapJSON:     template.JS(mapJSON), //nolint:gosec // json.Marshal escapes <, >, & for script context
		MapWidth:    MapWidth,
		MapHeight:   MapHeight,
		RunID:       snap.RunID,
		GeneratedAt: snap.GeneratedAt.UTC().Format(time.RFC3339),
	}

	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "dashboard.html.tmpl", data); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}
