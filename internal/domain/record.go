package domain

import (
	"errors"
	"time"
)

// Dataset names used for logging, metrics labels, and API routes.
const (
	DatasetDeaths = "deaths"
	DatasetPumps  = "pumps"
)

// Required source columns.
const (
	ColumnX = "X"
	ColumnY = "Y"
)

var (
	// ErrMissingColumn is returned when a dataset lacks the X or Y column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidCoordinate is returned when X or Y cannot be parsed as a finite number.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrOutOfRange is returned when a grid coordinate falls outside the National Grid extent.
	ErrOutOfRange = errors.New("coordinate outside national grid extent")

	// ErrNoDeaths is returned when the map center is requested for an empty deaths dataset.
	ErrNoDeaths = errors.New("deaths dataset is empty")
)

// Point is a WGS-84 longitude/latitude pair in degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Record is one row of a source CSV. X and Y are National Grid metres; Lon and
// Lat are filled in by reprojection.
type Record struct {
	Line   int               `json:"line"`
	X      float64           `json:"x"`
	Y      float64           `json:"y"`
	Lon    float64           `json:"lon"`
	Lat    float64           `json:"lat"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Point returns the record's reprojected position.
func (r Record) Point() Point {
	return Point{Lon: r.Lon, Lat: r.Lat}
}

// Dataset is an ordered collection of records loaded from one file.
type Dataset struct {
	Name    string
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.Records)
}

// Snapshot is the result of a single dashboard run. Nothing in it outlives the
// response it was built for.
type Snapshot struct {
	RunID       string
	GeneratedAt time.Time
	Deaths      Dataset
	Pumps       Dataset
	Summary     Summary
	Map         MapView
}
