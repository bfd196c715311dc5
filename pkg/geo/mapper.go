package geo

import "math"

// GeoReference ties the frame image to a geographic bounding rectangle.
type GeoReference struct {
	WidthPx     int     `json:"width_px"`
	HeightPx    int     `json:"height_px"`
	LatMaxNorth float64 `json:"lat_max_north"`
	LatMinSouth float64 `json:"lat_min_south"`
	LonMinWest  float64 `json:"lon_min_west"`
	LonMaxEast  float64 `json:"lon_max_east"`
}

// Valid reports whether the reference describes a usable frame.
func (r GeoReference) Valid() bool {
	return r.WidthPx > 0 && r.HeightPx > 0 &&
		r.LatMaxNorth > r.LatMinSouth && r.LonMaxEast > r.LonMinWest
}

// Mapper converts between pixel coordinates, lat/lon, and terrain elevation
// for one loaded frame. It is constructed once per frame and replaced
// wholesale when the frame or grid changes; it never mutates.
//
// Per-row latitudes and per-column longitudes are precomputed so the
// integer-pixel path of PixelToLatLon is a plain array lookup. The cache is
// filled with the exact same formula the uncached path uses, so both paths
// agree bit for bit.
type Mapper struct {
	grid *ElevationGrid
	ref  GeoReference

	rowLat []float64
	colLon []float64
}

// NewMapper builds a mapper over the given grid and reference. The grid may
// be nil while terrain is still being fetched; elevation queries return 0
// until it is set.
func NewMapper(grid *ElevationGrid, ref GeoReference) *Mapper {
	m := &Mapper{grid: grid, ref: ref}
	if ref.WidthPx > 0 && ref.HeightPx > 0 {
		m.rowLat = make([]float64, ref.HeightPx)
		for y := 0; y < ref.HeightPx; y++ {
			m.rowLat[y] = ref.LatMaxNorth - ((float64(y)+0.5)/float64(ref.HeightPx))*(ref.LatMaxNorth-ref.LatMinSouth)
		}
		m.colLon = make([]float64, ref.WidthPx)
		for x := 0; x < ref.WidthPx; x++ {
			m.colLon[x] = ref.LonMinWest + ((float64(x)+0.5)/float64(ref.WidthPx))*(ref.LonMaxEast-ref.LonMinWest)
		}
	}
	return m
}

// Reference returns the frame's geo reference.
func (m *Mapper) Reference() GeoReference { return m.ref }

// Grid returns the underlying terrain grid (may be nil).
func (m *Mapper) Grid() *ElevationGrid { return m.grid }

// PixelToLatLon maps a (possibly fractional) pixel coordinate to lat/lon.
// Integer in-bounds coordinates hit the precomputed cache.
func (m *Mapper) PixelToLatLon(x, y float64) Point {
	xi, yi := int(x), int(y)
	if float64(xi) == x && float64(yi) == y &&
		xi >= 0 && xi < len(m.colLon) && yi >= 0 && yi < len(m.rowLat) {
		return Point{Lat: m.rowLat[yi], Lon: m.colLon[xi]}
	}

	lat := m.ref.LatMaxNorth - ((y+0.5)/float64(m.ref.HeightPx))*(m.ref.LatMaxNorth-m.ref.LatMinSouth)
	lon := m.ref.LonMinWest + ((x+0.5)/float64(m.ref.WidthPx))*(m.ref.LonMaxEast-m.ref.LonMinWest)
	return Point{Lat: lat, Lon: lon}
}

// LatLonToPixel is the exact inverse of PixelToLatLon, used to project
// geographic features back onto the canvas.
func (m *Mapper) LatLonToPixel(lat, lon float64) Pixel {
	latRange := m.ref.LatMaxNorth - m.ref.LatMinSouth
	lonRange := m.ref.LonMaxEast - m.ref.LonMinWest
	if latRange == 0 || lonRange == 0 {
		return Pixel{}
	}
	x := ((lon-m.ref.LonMinWest)/lonRange)*float64(m.ref.WidthPx) - 0.5
	y := ((m.ref.LatMaxNorth-lat)/latRange)*float64(m.ref.HeightPx) - 0.5
	return Pixel{X: x, Y: y}
}

// LatLonToGridCoords maps lat/lon into the terrain grid's continuous index
// space, clamped to the grid edges.
func (m *Mapper) LatLonToGridCoords(lat, lon float64) (row, col float64) {
	if m.grid == nil {
		return 0, 0
	}
	return m.grid.GridCoords(lat, lon)
}

// ElevationAt returns the bilinearly interpolated terrain elevation in
// meters. Missing grid or non-finite input degrades to 0.
func (m *Mapper) ElevationAt(lat, lon float64) float64 {
	if m == nil || m.grid == nil {
		return 0
	}
	return m.grid.ElevationAt(lat, lon)
}

// ElevationAtPixel is ElevationAt for a canvas position.
func (m *Mapper) ElevationAtPixel(p Pixel) float64 {
	pt := m.PixelToLatLon(p.X, p.Y)
	return m.ElevationAt(pt.Lat, pt.Lon)
}

// MetersPerPixel estimates the physical width of one pixel at mid-frame.
// Used to convert meter-denominated footprints into canvas units.
func (m *Mapper) MetersPerPixel() float64 {
	if m.ref.WidthPx < 2 {
		return 0
	}
	midY := float64(m.ref.HeightPx) / 2
	a := m.PixelToLatLon(0, midY)
	b := m.PixelToLatLon(float64(m.ref.WidthPx-1), midY)
	d := Distance(a, b)
	if math.IsNaN(d) {
		return 0
	}
	return d / float64(m.ref.WidthPx-1)
}
