package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wgs84pkg "github.com/wroge/wgs84"
)

// Worked example from the Ordnance Survey guide to coordinate systems (OSGB36 datum).
const (
	osExampleEast  = 651409.903
	osExampleNorth = 313177.270
)

var (
	osExampleLat = 52 + 39.0/60 + 27.2531/3600
	osExampleLon = 1 + 43.0/60 + 4.5177/3600
)

func TestInverseTransverseMercator_OSExample(t *testing.T) {
	phi, lambda := inverseTransverseMercator(airy1830, osExampleEast, osExampleNorth)

	assert.InDelta(t, osExampleLat, degrees(phi), 1e-6)
	assert.InDelta(t, osExampleLon, degrees(lambda), 1e-6)
}

func TestTransverseMercator_OSExample(t *testing.T) {
	east, north := transverseMercator(airy1830, radians(osExampleLat), radians(osExampleLon))

	assert.InDelta(t, osExampleEast, east, 0.01)
	assert.InDelta(t, osExampleNorth, north, 0.01)
}

func TestHelmert_InverseUndoesShift(t *testing.T) {
	x, y, z := toCartesian(airy1830, radians(51.5), radians(-0.13))

	sx, sy, sz := osgb36ToWGS84.apply(x, y, z)
	bx, by, bz := osgb36ToWGS84.inverse().apply(sx, sy, sz)

	assert.InDelta(t, x, bx, 0.05)
	assert.InDelta(t, y, by, 0.05)
	assert.InDelta(t, z, bz, 0.05)
}

func TestCartesianRoundTrip(t *testing.T) {
	phi, lambda := radians(51.513), radians(-0.137)
	x, y, z := toCartesian(wgs84, phi, lambda)
	gotPhi, gotLambda := fromCartesian(wgs84, x, y, z)

	assert.InDelta(t, phi, gotPhi, 1e-11)
	assert.InDelta(t, lambda, gotLambda, 1e-11)
}

func TestReprojector_ToLonLat_BroadStreetPump(t *testing.T) {
	r := NewReprojector()

	lon, lat, err := r.ToLonLat(529396.539, 181025.063)
	require.NoError(t, err)

	// Published WGS84 position of the Broad Street pump; 1e-6 degrees is
	// about 0.1 m of latitude.
	assert.InDelta(t, -0.1366679, lon, 1e-6)
	assert.InDelta(t, 51.5133411, lat, 1e-6)
}

func TestReprojector_AgreesWithWGS84Package(t *testing.T) {
	r := NewReprojector()
	reference := wgs84pkg.EPSG().SafeTransform(27700, 4326)

	points := [][2]float64{
		{529396.539, 181025.063},
		{529308, 181031},
		{529192.538, 181079.391},
	}
	for _, p := range points {
		lon, lat, err := r.ToLonLat(p[0], p[1])
		require.NoError(t, err)
		refLon, refLat, _, err := reference(p[0], p[1], 0)
		require.NoError(t, err)

		// wgs84 uses a coarser datum shift and lands a few metres south.
		assert.Less(t, metresApart(lon, lat, refLon, refLat), 5.0, "point %v", p)
	}
}

// metresApart is an equirectangular distance, accurate at street scale.
func metresApart(lon1, lat1, lon2, lat2 float64) float64 {
	const metresPerDegree = 111320.0
	dy := (lat1 - lat2) * metresPerDegree
	dx := (lon1 - lon2) * metresPerDegree * math.Cos(radians((lat1+lat2)/2))
	return math.Hypot(dx, dy)
}

func TestReprojector_AxisOrder(t *testing.T) {
	r := NewReprojector()

	lon, lat, err := r.ToLonLat(529308, 181031)
	require.NoError(t, err)
	lonEast, latEast, err := r.ToLonLat(529408, 181031)
	require.NoError(t, err)
	lonNorth, latNorth, err := r.ToLonLat(529308, 181131)
	require.NoError(t, err)

	assert.Greater(t, lonEast, lon, "easting drives longitude")
	assert.InDelta(t, lat, latEast, 1e-4)
	assert.Greater(t, latNorth, lat, "northing drives latitude")
	assert.InDelta(t, lon, lonNorth, 1e-4)
}

func TestReprojector_Deterministic(t *testing.T) {
	a, b := NewReprojector(), NewReprojector()

	lon1, lat1, err := a.ToLonLat(529396.539, 181025.063)
	require.NoError(t, err)
	lon2, lat2, err := a.ToLonLat(529396.539, 181025.063)
	require.NoError(t, err)
	lon3, lat3, err := b.ToLonLat(529396.539, 181025.063)
	require.NoError(t, err)

	assert.Equal(t, lon1, lon2)
	assert.Equal(t, lat1, lat2)
	assert.Equal(t, lon1, lon3)
	assert.Equal(t, lat1, lat3)
}

func TestReprojector_RoundTrip(t *testing.T) {
	r := NewReprojector()

	points := [][2]float64{
		{529308, 181031},
		{529396.539, 181025.063},
		{651409.903, 313177.270},
		{326000, 673000},
	}
	for _, p := range points {
		lon, lat, err := r.ToLonLat(p[0], p[1])
		require.NoError(t, err)

		x, y, err := r.ToGrid(lon, lat)
		require.NoError(t, err)
		assert.InDelta(t, p[0], x, 0.1)
		assert.InDelta(t, p[1], y, 0.1)
	}
}

func TestReprojector_Errors(t *testing.T) {
	r := NewReprojector()

	tests := []struct {
		name string
		x, y float64
		want error
	}{
		{name: "negative easting", x: -1, y: 181031, want: ErrOutOfRange},
		{name: "easting beyond grid", x: 700001, y: 181031, want: ErrOutOfRange},
		{name: "northing beyond grid", x: 529308, y: 1300001, want: ErrOutOfRange},
		{name: "NaN", x: math.NaN(), y: 181031, want: ErrInvalidCoordinate},
		{name: "infinite", x: 529308, y: math.Inf(1), want: ErrInvalidCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.ToLonLat(tt.x, tt.y)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestReprojector_ToGridRejectsInvalidDegrees(t *testing.T) {
	r := NewReprojector()

	_, _, err := r.ToGrid(0, 91)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, _, err = r.ToGrid(math.NaN(), 51)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestReprojectDataset(t *testing.T) {
	r := NewReprojector()
	ds := Dataset{
		Name:    DatasetDeaths,
		Columns: []string{"FID", "X", "Y"},
		Records: []Record{
			{Line: 2, X: 529308, Y: 181031, Fields: map[string]string{"FID": "0"}},
			{Line: 3, X: 529310, Y: 181040, Fields: map[string]string{"FID": "1"}},
		},
	}

	out, err := r.ReprojectDataset(ds)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)
	assert.Equal(t, ds.Columns, out.Columns)

	for i, rec := range out.Records {
		lon, lat, err := r.ToLonLat(ds.Records[i].X, ds.Records[i].Y)
		require.NoError(t, err)
		assert.Equal(t, lon, rec.Lon)
		assert.Equal(t, lat, rec.Lat)
		assert.Equal(t, ds.Records[i].Fields, rec.Fields)
		assert.Equal(t, ds.Records[i].Line, rec.Line)
	}

	// The input is left untouched.
	assert.Zero(t, ds.Records[0].Lon)
}

func TestReprojectDataset_FailsWholeDataset(t *testing.T) {
	r := NewReprojector()
	ds := Dataset{
		Name: DatasetPumps,
		Records: []Record{
			{Line: 2, X: 529308, Y: 181031},
			{Line: 3, X: 9e9, Y: 181031},
		},
	}

	out, err := r.ReprojectDataset(ds)
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "pumps line 3")
	assert.Empty(t, out.Records)
}
