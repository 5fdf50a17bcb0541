// Package domain models the 1854 Broad Street cholera dataset and the map
// built from it.
//
// # Data Source
//
// The dataset is John Snow's 1854 survey of cholera deaths in Soho, London,
// digitised by Robin Wilson and distributed as two CSV files:
//
//	Cholera_Deaths.csv  one row per death; several rows share an address
//	Pumps.csv           one row per public water pump
//
// Both carry the columns X and Y (British National Grid, metres). Any other
// columns are carried through untouched in [Record.Fields].
//
// # Coordinate Conventions
//
// Source coordinates are OSGB36 / British National Grid (EPSG:27700):
//
//	X  easting,  metres east of the false origin (valid 0–700000)
//	Y  northing, metres north of the false origin (valid 0–1300000)
//
// Target coordinates are WGS-84 geographic degrees (EPSG:4326). Axis order is
// always x-first: easting maps to longitude and northing to latitude, both on
// input and when stored on a record as Lon/Lat. Map libraries that expect
// [lat, lon] pairs get them swapped only at the presentation edge.
//
// The transform is the inverse Transverse Mercator projection on the Airy 1830
// ellipsoid followed by the seven-parameter Helmert shift from OSGB36 to
// WGS-84. Accuracy of the Helmert step is a few metres, which is the same
// operation most GIS tools apply for EPSG:27700 → EPSG:4326 when no OSTN15
// grid is installed. See [Reprojector].
//
// # Co-location
//
// Deaths recorded at the same house share an identical (X, Y) pair in the
// source file. [Summarize] groups on the raw grid pair rather than on the
// reprojected degrees so floating-point noise in the transform can never
// split one address into several groups.
package domain
