package geo

import (
	"fmt"
	"math"
)

// ElevationGrid holds terrain heights (meters) over a sparse rectangular
// lat/lon grid. Values[row][col] pairs with Latitudes[row] and
// Longitudes[col]. The grid is immutable once constructed; consumers that
// need a modified surface (e.g. obstacle stamping) work on a Clone.
type ElevationGrid struct {
	Values       [][]float64 `json:"values"`
	Latitudes    []float64   `json:"latitudes"`
	Longitudes   []float64   `json:"longitudes"`
	LatAscending bool        `json:"latAscending"`
	LonAscending bool        `json:"lonAscending"`
	MinElevation float64     `json:"minElevation"`
	MaxElevation float64     `json:"maxElevation"`
}

// NewElevationGrid validates the value matrix against the axis arrays and
// computes the elevation range.
func NewElevationGrid(values [][]float64, lats, lons []float64) (*ElevationGrid, error) {
	if len(values) != len(lats) {
		return nil, fmt.Errorf("grid has %d rows but %d latitudes", len(values), len(lats))
	}
	for i, row := range values {
		if len(row) != len(lons) {
			return nil, fmt.Errorf("row %d has %d cols but grid has %d longitudes", i, len(row), len(lons))
		}
	}

	g := &ElevationGrid{
		Values:       values,
		Latitudes:    lats,
		Longitudes:   lons,
		LatAscending: len(lats) < 2 || lats[1] > lats[0],
		LonAscending: len(lons) < 2 || lons[1] > lons[0],
		MinElevation: math.Inf(1),
		MaxElevation: math.Inf(-1),
	}
	for _, row := range values {
		for _, v := range row {
			if v < g.MinElevation {
				g.MinElevation = v
			}
			if v > g.MaxElevation {
				g.MaxElevation = v
			}
		}
	}
	if math.IsInf(g.MinElevation, 1) {
		g.MinElevation, g.MaxElevation = 0, 0
	}
	return g, nil
}

// Rows returns the number of grid rows.
func (g *ElevationGrid) Rows() int { return len(g.Latitudes) }

// Cols returns the number of grid columns.
func (g *ElevationGrid) Cols() int { return len(g.Longitudes) }

// GridCoords maps a lat/lon into continuous [0,rows-1] x [0,cols-1] index
// space. The normalized fraction along each axis is clamped to [0,1] first,
// so out-of-bounds queries land on the grid edge instead of extrapolating.
func (g *ElevationGrid) GridCoords(lat, lon float64) (row, col float64) {
	rows, cols := g.Rows(), g.Cols()
	if rows == 0 || cols == 0 {
		return 0, 0
	}

	row = axisCoord(lat, g.Latitudes[0], g.Latitudes[rows-1], rows)
	col = axisCoord(lon, g.Longitudes[0], g.Longitudes[cols-1], cols)
	return row, col
}

func axisCoord(v, first, last float64, n int) float64 {
	if n < 2 || first == last {
		return 0
	}
	// Works for ascending and descending axes alike: the span's sign
	// cancels in the fraction.
	frac := (v - first) / (last - first)
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return frac * float64(n-1)
}

// ElevationAt bilinearly interpolates the surface at the given coordinate.
// Non-finite input or an empty grid yields 0; this sits on the render hot
// path and must never fail.
func (g *ElevationGrid) ElevationAt(lat, lon float64) float64 {
	if g == nil || g.Rows() == 0 || g.Cols() == 0 {
		return 0
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0
	}

	row, col := g.GridCoords(lat, lon)

	r0 := int(math.Floor(row))
	c0 := int(math.Floor(col))
	r1 := r0 + 1
	c1 := c0 + 1
	if r1 > g.Rows()-1 {
		r1 = g.Rows() - 1
	}
	if c1 > g.Cols()-1 {
		c1 = g.Cols() - 1
	}

	fr := row - float64(r0)
	fc := col - float64(c0)

	v00 := g.Values[r0][c0]
	v01 := g.Values[r0][c1]
	v10 := g.Values[r1][c0]
	v11 := g.Values[r1][c1]

	return v00*(1-fr)*(1-fc) +
		v01*(1-fr)*fc +
		v10*fr*(1-fc) +
		v11*fr*fc
}

// CellSizeMeters estimates the physical size of one grid cell at the given
// row, as (north-south, east-west) extents in meters.
func (g *ElevationGrid) CellSizeMeters(row int) (latM, lonM float64) {
	rows, cols := g.Rows(), g.Cols()
	if rows < 2 || cols < 2 {
		return 0, 0
	}
	if row < 0 {
		row = 0
	}
	if row > rows-1 {
		row = rows - 1
	}
	lat := g.Latitudes[row]
	latM = Distance(Point{Lat: g.Latitudes[0], Lon: g.Longitudes[0]}, Point{Lat: g.Latitudes[1], Lon: g.Longitudes[0]})
	lonM = Distance(Point{Lat: lat, Lon: g.Longitudes[0]}, Point{Lat: lat, Lon: g.Longitudes[1]})
	return latM, lonM
}

// Clone returns a deep copy sharing no value storage with the original.
func (g *ElevationGrid) Clone() *ElevationGrid {
	cp := *g
	cp.Values = make([][]float64, len(g.Values))
	for i, row := range g.Values {
		cp.Values[i] = append([]float64(nil), row...)
	}
	cp.Latitudes = append([]float64(nil), g.Latitudes...)
	cp.Longitudes = append([]float64(nil), g.Longitudes...)
	return &cp
}
