package domain

import "fmt"

// Fixed map presentation settings.
const (
	DefaultZoom     = 16
	DefaultTileURL  = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	tileAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`

	DeathsLayerName = "Cholera Deaths"
	PumpsLayerName  = "Water Pumps"
	MapTitle        = "CHOLERA DEATH MAP"

	deathRadius      = 3
	deathColor       = "red"
	deathFillOpacity = 0.8

	pumpColor      = "blue"
	pumpIcon       = "tint"
	pumpIconPrefix = "fa"
	pumpPopup      = "Water Pump"
)

// MarkerKind selects how a marker is drawn.
type MarkerKind string

const (
	MarkerCircle MarkerKind = "circle"
	MarkerPin    MarkerKind = "pin"
)

// Marker is one drawable point. Circle markers use Radius/Fill/FillOpacity;
// pins use Icon/IconPrefix/Popup.
type Marker struct {
	Kind        MarkerKind `json:"kind"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	Color       string     `json:"color"`
	Radius      float64    `json:"radius,omitempty"`
	Fill        bool       `json:"fill,omitempty"`
	FillOpacity float64    `json:"fill_opacity,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	IconPrefix  string     `json:"icon_prefix,omitempty"`
	Popup       string     `json:"popup,omitempty"`
}

// Layer is an independently toggleable group of markers.
type Layer struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Markers []Marker `json:"markers"`
}

// LegendEntry is one line of the map legend.
type LegendEntry struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Label string `json:"label"`
}

// Overlay is drawn in screen space above the map and ignores pan and zoom.
type Overlay struct {
	Title  string        `json:"title"`
	Legend []LegendEntry `json:"legend"`
}

// Tiles describes the base map.
type Tiles struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// MapView is everything the presenter needs to draw the map.
type MapView struct {
	Center       Point   `json:"center"`
	Zoom         int     `json:"zoom"`
	Tiles        Tiles   `json:"tiles"`
	Layers       []Layer `json:"layers"`
	LayerControl bool    `json:"layer_control"`
	Overlay      Overlay `json:"overlay"`
}

// Layer returns the layer with the given key.
func (m MapView) Layer(key string) (Layer, bool) {
	for _, l := range m.Layers {
		if l.Key == key {
			return l, true
		}
	}
	return Layer{}, false
}

// MapOption customises BuildMap.
type MapOption func(*MapView)

// WithTileURL replaces the base map tile template.
func WithTileURL(url string) MapOption {
	return func(m *MapView) {
		if url != "" {
			m.Tiles.URL = url
		}
	}
}

// Center returns the mean reprojected position of the deaths dataset.
func Center(deaths Dataset) (Point, error) {
	if deaths.Len() == 0 {
		return Point{}, ErrNoDeaths
	}
	var sumLat, sumLon float64
	for _, rec := range deaths.Records {
		sumLat += rec.Lat
		sumLon += rec.Lon
	}
	n := float64(deaths.Len())
	return Point{Lon: sumLon / n, Lat: sumLat / n}, nil
}

// DeathsLayer maps every death record to a small filled circle.
func DeathsLayer(deaths Dataset) Layer {
	markers := make([]Marker, len(deaths.Records))
	for i, rec := range deaths.Records {
		markers[i] = Marker{
			Kind:        MarkerCircle,
			Lat:         rec.Lat,
			Lon:         rec.Lon,
			Color:       deathColor,
			Radius:      deathRadius,
			Fill:        true,
			FillOpacity: deathFillOpacity,
		}
	}
	return Layer{Key: DatasetDeaths, Name: DeathsLayerName, Markers: markers}
}

// PumpsLayer maps every pump record to an identical labelled pin.
func PumpsLayer(pumps Dataset) Layer {
	markers := make([]Marker, len(pumps.Records))
	for i, rec := range pumps.Records {
		markers[i] = Marker{
			Kind:       MarkerPin,
			Lat:        rec.Lat,
			Lon:        rec.Lon,
			Color:      pumpColor,
			Icon:       pumpIcon,
			IconPrefix: pumpIconPrefix,
			Popup:      pumpPopup,
		}
	}
	return Layer{Key: DatasetPumps, Name: PumpsLayerName, Markers: markers}
}

// BuildMap assembles the map for one run. The center depends on deaths only;
// an empty pumps dataset produces an empty pumps layer.
func BuildMap(deaths, pumps Dataset, opts ...MapOption) (MapView, error) {
	center, err := Center(deaths)
	if err != nil {
		return MapView{}, fmt.Errorf("map center: %w", err)
	}

	m := MapView{
		Center:       center,
		Zoom:         DefaultZoom,
		Tiles:        Tiles{URL: DefaultTileURL, Attribution: tileAttribution},
		Layers:       []Layer{DeathsLayer(deaths), PumpsLayer(pumps)},
		LayerControl: true,
		Overlay: Overlay{
			Title: MapTitle,
			Legend: []LegendEntry{
				{Icon: "fa-circle", Color: deathColor, Label: DeathsLayerName},
				{Icon: "fa-" + pumpIcon, Color: pumpColor, Label: PumpsLayerName},
			},
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m, nil
}
