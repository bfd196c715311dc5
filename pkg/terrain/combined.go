package terrain

import (
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"sightline/pkg/geo"
	"sightline/pkg/scene"
)

// BuildInput collects everything that gets stamped onto the terrain.
type BuildInput struct {
	Buildings []scene.Building
	Trees     []scene.Tree
	Signs     []scene.Sign
	Obstacles []scene.Shape

	// Heights for features that don't carry their own.
	DefaultBuildingHeightM float64
	ObstacleHeightM        float64
}

// BuildCombined produces the occlusion surface: a copy of the terrain grid
// where every cell covered by a building, tree crown, sign, or obstacle
// zone holds max(terrain, terrain+featureHeight). The combine operator is
// max, never overwrite, so stamping order does not matter and overlapping
// features cannot cancel each other; the taller one wins. The combined
// value at any cell is >= the terrain value at that cell.
//
// Features projecting to zero grid cells are skipped; features outside the
// grid are clipped silently.
func BuildCombined(m *geo.Mapper, in BuildInput) *geo.ElevationGrid {
	base := m.Grid()
	if base == nil || base.Rows() == 0 || base.Cols() == 0 {
		return nil
	}
	combined := base.Clone()

	for _, b := range in.Buildings {
		h := b.HeightM
		if h <= 0 {
			h = in.DefaultBuildingHeightM
		}
		stampFootprint(combined, base, m, b.Footprint, h)
	}
	for _, tr := range in.Trees {
		stampCrown(combined, base, m, tr)
	}
	for _, sg := range in.Signs {
		stampSign(combined, base, m, sg)
	}
	for i := range in.Obstacles {
		stampShape(combined, base, m, &in.Obstacles[i], in.ObstacleHeightM)
	}
	return combined
}

// stampFootprint rasterizes a pixel-space polygon into grid index space and
// raises every covered cell to terrain+heightM.
func stampFootprint(combined, base *geo.ElevationGrid, m *geo.Mapper, footprint []geo.Pixel, heightM float64) {
	if len(footprint) < 3 || heightM <= 0 {
		return
	}

	// Project the footprint into continuous grid coordinates (x=col, y=row).
	ring := make(orb.Ring, 0, len(footprint)+1)
	for _, p := range footprint {
		loc := m.PixelToLatLon(p.X, p.Y)
		row, col := base.GridCoords(loc.Lat, loc.Lon)
		ring = append(ring, orb.Point{col, row})
	}
	ring = append(ring, ring[0])
	poly := orb.Polygon{ring}

	b := ring.Bound()
	covered := 0
	for r := clampIndex(int(math.Ceil(b.Min[1])), base.Rows()); r <= clampIndex(int(math.Floor(b.Max[1])), base.Rows()); r++ {
		for c := clampIndex(int(math.Ceil(b.Min[0])), base.Cols()); c <= clampIndex(int(math.Floor(b.Max[0])), base.Cols()); c++ {
			if !planar.PolygonContains(poly, orb.Point{float64(c), float64(r)}) {
				continue
			}
			raise(combined, base, r, c, heightM)
			covered++
		}
	}
	if covered == 0 {
		slog.Debug("footprint projects to zero grid cells, skipped", "vertices", len(footprint))
	}
}

// stampCrown stamps a circular tree crown, radius converted from meters to
// grid cells at the tree's latitude.
func stampCrown(combined, base *geo.ElevationGrid, m *geo.Mapper, tr scene.Tree) {
	if tr.CrownRadiusM <= 0 || tr.HeightM <= 0 {
		return
	}
	loc := m.PixelToLatLon(tr.Center.X, tr.Center.Y)
	row, col := base.GridCoords(loc.Lat, loc.Lon)

	latM, lonM := base.CellSizeMeters(int(math.Round(row)))
	if latM <= 0 || lonM <= 0 {
		return
	}
	ry := tr.CrownRadiusM / latM
	rx := tr.CrownRadiusM / lonM

	for r := clampIndex(int(math.Ceil(row-ry)), base.Rows()); r <= clampIndex(int(math.Floor(row+ry)), base.Rows()); r++ {
		for c := clampIndex(int(math.Ceil(col-rx)), base.Cols()); c <= clampIndex(int(math.Floor(col+rx)), base.Cols()); c++ {
			dy := (float64(r) - row) / ry
			dx := (float64(c) - col) / rx
			if dx*dx+dy*dy > 1 {
				continue
			}
			raise(combined, base, r, c, tr.HeightM)
		}
	}
}

// stampSign stamps a thin vertical panel: the cells crossed by the sign's
// horizontal extent, raised to terrain+clearance+height. A sign is
// point-like relative to the grid, so the cell containing each sampled
// point along its width is stamped directly.
func stampSign(combined, base *geo.ElevationGrid, m *geo.Mapper, sg scene.Sign) {
	if sg.HeightM <= 0 {
		return
	}
	mpp := m.MetersPerPixel()
	if mpp <= 0 {
		return
	}
	halfPx := (sg.WidthM / 2) / mpp
	yaw := sg.YawDeg * math.Pi / 180
	dir := geo.Pixel{X: math.Cos(yaw), Y: math.Sin(yaw)}

	steps := 2
	if latM, _ := base.CellSizeMeters(0); latM > 0 {
		if n := int(math.Ceil(sg.WidthM/latM)) + 1; n > steps {
			steps = n
		}
	}

	seen := make(map[[2]int]struct{})
	for i := 0; i <= steps; i++ {
		t := float64(i)/float64(steps)*2 - 1 // [-1, 1] across the width
		px := geo.Pixel{X: sg.Center.X + dir.X*halfPx*t, Y: sg.Center.Y + dir.Y*halfPx*t}
		loc := m.PixelToLatLon(px.X, px.Y)
		row, col := base.GridCoords(loc.Lat, loc.Lon)
		r, c := int(math.Round(row)), int(math.Round(col))
		if r < 0 || r >= base.Rows() || c < 0 || c >= base.Cols() {
			continue
		}
		if _, ok := seen[[2]int{r, c}]; ok {
			continue
		}
		seen[[2]int{r, c}] = struct{}{}
		raise(combined, base, r, c, sg.ClearanceM+sg.HeightM)
	}
}

// stampShape stamps an ad-hoc obstacle zone at a fixed height above
// terrain, rasterized through the pixel-space containment test.
func stampShape(combined, base *geo.ElevationGrid, m *geo.Mapper, sh *scene.Shape, heightM float64) {
	if heightM <= 0 {
		return
	}
	b := sh.Bound()
	// Grid rows covering the shape's pixel bound. Latitude may be stored
	// either direction, so take min/max of the two corner projections.
	locA := m.PixelToLatLon(b.Min[0], b.Min[1])
	locB := m.PixelToLatLon(b.Max[0], b.Max[1])
	rA, cA := base.GridCoords(locA.Lat, locA.Lon)
	rB, cB := base.GridCoords(locB.Lat, locB.Lon)
	r0 := clampIndex(int(math.Floor(math.Min(rA, rB))), base.Rows())
	r1 := clampIndex(int(math.Ceil(math.Max(rA, rB))), base.Rows())
	c0 := clampIndex(int(math.Floor(math.Min(cA, cB))), base.Cols())
	c1 := clampIndex(int(math.Ceil(math.Max(cA, cB))), base.Cols())

	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			px := m.LatLonToPixel(base.Latitudes[r], base.Longitudes[c])
			if !sh.Contains(px) {
				continue
			}
			raise(combined, base, r, c, heightM)
		}
	}
}

func raise(combined, base *geo.ElevationGrid, r, c int, heightM float64) {
	v := base.Values[r][c] + heightM
	if v > combined.Values[r][c] {
		combined.Values[r][c] = v
		if v > combined.MaxElevation {
			combined.MaxElevation = v
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
