package domain

import (
	"fmt"
	"math"
)

// ellipsoid holds the defining axes of a reference ellipsoid in metres.
type ellipsoid struct {
	a, b float64
}

func (e ellipsoid) e2() float64 {
	return 1 - (e.b*e.b)/(e.a*e.a)
}

var (
	airy1830 = ellipsoid{a: 6377563.396, b: 6356256.909}
	wgs84    = ellipsoid{a: 6378137.000, b: 6356752.314245}
)

// helmert is a seven-parameter position-vector datum shift. Translations are
// in metres, rotations in arc-seconds, scale in parts per million.
type helmert struct {
	tx, ty, tz float64
	rx, ry, rz float64
	s          float64
}

// osgb36ToWGS84 matches +towgs84 for EPSG:27700.
var osgb36ToWGS84 = helmert{
	tx: 446.448, ty: -125.157, tz: 542.060,
	rx: 0.1502, ry: 0.2470, rz: 0.8421,
	s: -20.4894,
}

func (h helmert) inverse() helmert {
	return helmert{
		tx: -h.tx, ty: -h.ty, tz: -h.tz,
		rx: -h.rx, ry: -h.ry, rz: -h.rz,
		s: -h.s,
	}
}

func (h helmert) apply(x, y, z float64) (float64, float64, float64) {
	const arcsec = math.Pi / (180 * 3600)
	s1 := 1 + h.s*1e-6
	rx, ry, rz := h.rx*arcsec, h.ry*arcsec, h.rz*arcsec
	return h.tx + s1*x - rz*y + ry*z,
		h.ty + rz*x + s1*y - rx*z,
		h.tz - ry*x + rx*y + s1*z
}

// National Grid projection constants.
const (
	gridF0    = 0.9996012717
	gridLat0  = 49 * math.Pi / 180
	gridLon0  = -2 * math.Pi / 180
	gridE0    = 400000.0
	gridN0    = -100000.0
	gridMaxE  = 700000.0
	gridMaxN  = 1300000.0
	arcTolM   = 1e-5
	geodTolRd = 1e-12
)

// Reprojector converts between British National Grid (EPSG:27700) and WGS-84
// longitude/latitude (EPSG:4326) using x-first axis order in both directions.
// A Reprojector has no mutable state; build one per run and share it across
// every dataset in that run.
type Reprojector struct {
	source ellipsoid
	target ellipsoid
	datum  helmert
}

// NewReprojector returns the National Grid → WGS-84 transform.
func NewReprojector() *Reprojector {
	return &Reprojector{
		source: airy1830,
		target: wgs84,
		datum:  osgb36ToWGS84,
	}
}

// ToLonLat converts a grid easting/northing in metres to WGS-84 degrees.
func (r *Reprojector) ToLonLat(x, y float64) (lon, lat float64, err error) {
	if err := checkGrid(x, y); err != nil {
		return 0, 0, err
	}

	phi, lambda := inverseTransverseMercator(r.source, x, y)
	cx, cy, cz := toCartesian(r.source, phi, lambda)
	cx, cy, cz = r.datum.apply(cx, cy, cz)
	phi, lambda = fromCartesian(r.target, cx, cy, cz)

	return degrees(lambda), degrees(phi), nil
}

// ToGrid converts WGS-84 degrees back to a grid easting/northing in metres.
func (r *Reprojector) ToGrid(lon, lat float64) (x, y float64, err error) {
	if !isFinite(lon) || !isFinite(lat) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, fmt.Errorf("%w: lon=%v lat=%v", ErrOutOfRange, lon, lat)
	}

	cx, cy, cz := toCartesian(r.target, radians(lat), radians(lon))
	cx, cy, cz = r.datum.inverse().apply(cx, cy, cz)
	phi, lambda := fromCartesian(r.source, cx, cy, cz)
	x, y = transverseMercator(r.source, phi, lambda)

	if err := checkGrid(x, y); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// ReprojectDataset returns a copy of ds with Lon/Lat set on every record. The
// first failing row aborts the whole dataset; no rows are skipped.
func (r *Reprojector) ReprojectDataset(ds Dataset) (Dataset, error) {
	out := Dataset{
		Name:    ds.Name,
		Columns: ds.Columns,
		Records: make([]Record, len(ds.Records)),
	}
	for i, rec := range ds.Records {
		lon, lat, err := r.ToLonLat(rec.X, rec.Y)
		if err != nil {
			return Dataset{}, fmt.Errorf("%s line %d: %w", ds.Name, rec.Line, err)
		}
		rec.Lon = lon
		rec.Lat = lat
		out.Records[i] = rec
	}
	return out, nil
}

func checkGrid(x, y float64) error {
	if !isFinite(x) || !isFinite(y) {
		return fmt.Errorf("%w: x=%v y=%v", ErrInvalidCoordinate, x, y)
	}
	if x < 0 || x > gridMaxE || y < 0 || y > gridMaxN {
		return fmt.Errorf("%w: x=%v y=%v", ErrOutOfRange, x, y)
	}
	return nil
}

// meridionalArc returns the distance along the central meridian from the
// true origin to latitude phi, scaled by F0.
func meridionalArc(e ellipsoid, phi float64) float64 {
	n := (e.a - e.b) / (e.a + e.b)
	n2, n3 := n*n, n*n*n
	dp := phi - gridLat0
	sp := phi + gridLat0

	ma := (1 + n + 1.25*n2 + 1.25*n3) * dp
	mb := (3*n + 3*n2 + 21.0/8*n3) * math.Sin(dp) * math.Cos(sp)
	mc := (15.0/8*n2 + 15.0/8*n3) * math.Sin(2*dp) * math.Cos(2*sp)
	md := 35.0 / 24 * n3 * math.Sin(3*dp) * math.Cos(3*sp)
	return e.b * gridF0 * (ma - mb + mc - md)
}

// radii returns the transverse (nu) and meridional (rho) radii of curvature
// at phi, scaled by F0, and eta² = nu/rho - 1.
func radii(e ellipsoid, phi float64) (nu, rho, eta2 float64) {
	e2 := e.e2()
	s2 := math.Sin(phi) * math.Sin(phi)
	nu = e.a * gridF0 / math.Sqrt(1-e2*s2)
	rho = e.a * gridF0 * (1 - e2) / math.Pow(1-e2*s2, 1.5)
	return nu, rho, nu/rho - 1
}

func inverseTransverseMercator(e ellipsoid, east, north float64) (phi, lambda float64) {
	phi = gridLat0
	m := 0.0
	for {
		phi = (north-gridN0-m)/(e.a*gridF0) + phi
		m = meridionalArc(e, phi)
		if math.Abs(north-gridN0-m) < arcTolM {
			break
		}
	}

	nu, rho, eta2 := radii(e, phi)
	t := math.Tan(phi)
	t2, t4, t6 := t*t, t*t*t*t, t*t*t*t*t*t
	sec := 1 / math.Cos(phi)
	nu3, nu5, nu7 := nu*nu*nu, math.Pow(nu, 5), math.Pow(nu, 7)

	vii := t / (2 * rho * nu)
	viii := t / (24 * rho * nu3) * (5 + 3*t2 + eta2 - 9*t2*eta2)
	ix := t / (720 * rho * nu5) * (61 + 90*t2 + 45*t4)
	x := sec / nu
	xi := sec / (6 * nu3) * (nu/rho + 2*t2)
	xii := sec / (120 * nu5) * (5 + 28*t2 + 24*t4)
	xiia := sec / (5040 * nu7) * (61 + 662*t2 + 1320*t4 + 720*t6)

	de := east - gridE0
	de2 := de * de
	de3, de4 := de2*de, de2*de2
	de5, de6, de7 := de4*de, de4*de2, de4*de3

	phi = phi - vii*de2 + viii*de4 - ix*de6
	lambda = gridLon0 + x*de - xi*de3 + xii*de5 - xiia*de7
	return phi, lambda
}

func transverseMercator(e ellipsoid, phi, lambda float64) (east, north float64) {
	nu, rho, eta2 := radii(e, phi)
	m := meridionalArc(e, phi)

	sin, cos := math.Sin(phi), math.Cos(phi)
	cos3, cos5 := cos*cos*cos, math.Pow(cos, 5)
	t2 := math.Tan(phi) * math.Tan(phi)
	t4 := t2 * t2

	i := m + gridN0
	ii := nu / 2 * sin * cos
	iii := nu / 24 * sin * cos3 * (5 - t2 + 9*eta2)
	iiia := nu / 720 * sin * cos5 * (61 - 58*t2 + t4)
	iv := nu * cos
	v := nu / 6 * cos3 * (nu/rho - t2)
	vi := nu / 120 * cos5 * (5 - 18*t2 + t4 + 14*eta2 - 58*t2*eta2)

	dl := lambda - gridLon0
	dl2 := dl * dl
	dl3, dl4 := dl2*dl, dl2*dl2
	dl5, dl6 := dl4*dl, dl4*dl2

	north = i + ii*dl2 + iii*dl4 + iiia*dl6
	east = gridE0 + iv*dl + v*dl3 + vi*dl5
	return east, north
}

// toCartesian converts geodetic coordinates at zero ellipsoidal height to
// earth-centred cartesian metres.
func toCartesian(e ellipsoid, phi, lambda float64) (x, y, z float64) {
	e2 := e.e2()
	sin := math.Sin(phi)
	nu := e.a / math.Sqrt(1-e2*sin*sin)
	return nu * math.Cos(phi) * math.Cos(lambda),
		nu * math.Cos(phi) * math.Sin(lambda),
		(1 - e2) * nu * sin
}

func fromCartesian(e ellipsoid, x, y, z float64) (phi, lambda float64) {
	e2 := e.e2()
	p := math.Hypot(x, y)
	lambda = math.Atan2(y, x)
	phi = math.Atan2(z, p*(1-e2))
	for range 20 {
		sin := math.Sin(phi)
		nu := e.a / math.Sqrt(1-e2*sin*sin)
		next := math.Atan2(z+e2*nu*sin, p)
		if math.Abs(next-phi) < geodTolRd {
			return next, lambda
		}
		phi = next
	}
	return phi, lambda
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
