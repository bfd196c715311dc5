package scene

import (
	"sightline/pkg/geo"
)

// ViewerSample is one concrete observer position: where a viewer stands,
// its terrain elevation, and the viewing cone inherited from its zone.
// Samples are transient; they are recomputed whenever shapes or the
// sampling resolution change and are never persisted.
type ViewerSample struct {
	Pixel     geo.Pixel
	Loc       geo.Point
	GroundM   float64
	Direction *Direction
	Anchor    geo.Pixel
	Weight    float64
}

// CandidateSample is one location being tested for visibility.
type CandidateSample struct {
	Pixel   geo.Pixel
	Loc     geo.Point
	GroundM float64
}

// SampleViewers walks every viewer zone's bounding box at stepPx spacing
// and keeps the in-shape points, deriving lat/lon and terrain elevation
// through the mapper.
func SampleViewers(m *geo.Mapper, shapes []Shape, stepPx float64) []ViewerSample {
	if stepPx <= 0 {
		stepPx = 1
	}
	var out []ViewerSample
	for i := range shapes {
		sh := &shapes[i]
		if sh.Zone != ZoneViewer {
			continue
		}
		anchor := sh.AnchorPixel()
		weight := sh.ViewerWeight()
		forEachSamplePoint(sh, stepPx, func(p geo.Pixel) {
			loc := m.PixelToLatLon(p.X, p.Y)
			out = append(out, ViewerSample{
				Pixel:     p,
				Loc:       loc,
				GroundM:   m.ElevationAt(loc.Lat, loc.Lon),
				Direction: sh.Direction,
				Anchor:    anchor,
				Weight:    weight,
			})
		})
	}
	return out
}

// SampleCandidates walks every candidate zone at stepPx spacing.
func SampleCandidates(m *geo.Mapper, shapes []Shape, stepPx float64) []CandidateSample {
	if stepPx <= 0 {
		stepPx = 1
	}
	var out []CandidateSample
	for i := range shapes {
		sh := &shapes[i]
		if sh.Zone != ZoneCandidate {
			continue
		}
		forEachSamplePoint(sh, stepPx, func(p geo.Pixel) {
			loc := m.PixelToLatLon(p.X, p.Y)
			out = append(out, CandidateSample{
				Pixel:   p,
				Loc:     loc,
				GroundM: m.ElevationAt(loc.Lat, loc.Lon),
			})
		})
	}
	return out
}

// forEachSamplePoint visits the shape's bounding box on a stepPx lattice
// anchored at the box corner, calling fn for points inside the shape.
// Iteration order is row-major and deterministic.
func forEachSamplePoint(sh *Shape, stepPx float64, fn func(geo.Pixel)) {
	b := sh.Bound()
	for y := b.Min[1] + stepPx/2; y <= b.Max[1]; y += stepPx {
		for x := b.Min[0] + stepPx/2; x <= b.Max[0]; x += stepPx {
			p := geo.Pixel{X: x, Y: y}
			if sh.Contains(p) {
				fn(p)
			}
		}
	}
}

// SpiralIndexOrder returns all rows*cols cell indices ordered center-out in
// concentric rings, each ring traversed clockwise from its top-left corner.
// The progressive elevation fetcher uses this so the middle of the frame
// resolves first. The result is a permutation; the Chebyshev ring distance
// of successive indices never decreases.
func SpiralIndexOrder(rows, cols int) []int {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	total := rows * cols
	order := make([]int, 0, total)

	cr := (rows - 1) / 2
	cc := (cols - 1) / 2

	emit := func(r, c int) {
		if r >= 0 && r < rows && c >= 0 && c < cols {
			order = append(order, r*cols+c)
		}
	}

	emit(cr, cc)
	maxRing := rows + cols // generous upper bound; loop exits once full
	for d := 1; d <= maxRing && len(order) < total; d++ {
		// Top edge, left to right.
		for c := cc - d; c <= cc+d; c++ {
			emit(cr-d, c)
		}
		// Right edge, top to bottom.
		for r := cr - d + 1; r <= cr+d; r++ {
			emit(r, cc+d)
		}
		// Bottom edge, right to left.
		for c := cc + d - 1; c >= cc-d; c-- {
			emit(cr+d, c)
		}
		// Left edge, bottom to top.
		for r := cr + d - 1; r >= cr-d+1; r-- {
			emit(r, cc-d)
		}
	}
	return order
}
