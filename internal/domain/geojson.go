package domain

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON Feature with a point geometry.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry is a GeoJSON geometry. Coordinates are [lon, lat].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureCollection exports the layer's markers as GeoJSON points.
func (l Layer) FeatureCollection() FeatureCollection {
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, len(l.Markers)),
	}
	for i, m := range l.Markers {
		props := map[string]any{
			"layer": l.Name,
			"kind":  string(m.Kind),
			"color": m.Color,
		}
		if m.Popup != "" {
			props["popup"] = m.Popup
		}
		fc.Features[i] = Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: []float64{m.Lon, m.Lat}},
			Properties: props,
		}
	}
	return fc
}
