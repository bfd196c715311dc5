package visibility

import (
	"math"

	"github.com/paulmach/orb"

	"sightline/pkg/geo"
	"sightline/pkg/scene"
)

// Surface provides interpolated occlusion heights. Satisfied by both the
// raw terrain grid and the combined height grid.
type Surface interface {
	ElevationAt(lat, lon float64) float64
}

// Number of horizontal slices of the target height tested per sight line.
// A finite-height target can be visible at the top and blocked at the
// base; the fraction of unblocked slices is the visibility value.
const heightSlices = 4

// Sampling density for both the obstacle-segment test and the terrain
// profile walk: one step per 5 pixels of separation, with a floor.
const stepDensityPx = 5.0

// ObstacleBounds precomputes the broad-phase bounding box of every
// obstacle shape. Compute once per heatmap call and reuse across all
// viewer x candidate pairs.
func ObstacleBounds(obstacles []scene.Shape) []orb.Bound {
	bounds := make([]orb.Bound, len(obstacles))
	for i := range obstacles {
		bounds[i] = obstacles[i].Bound()
	}
	return bounds
}

// InViewerCone reports whether the candidate pixel falls inside the
// viewer's directional cone. Viewers without a cone see all directions.
// The angular difference is signed and wrapped to [-pi, pi]; the cone
// check dominates any terrain test.
func InViewerCone(v *scene.ViewerSample, target geo.Pixel) bool {
	if v.Direction == nil {
		return true
	}
	angle := geo.AngleTo(v.Anchor, target)
	diff := geo.WrapAngle(angle - v.Direction.AngleRad)
	return math.Abs(diff) <= v.Direction.ConeRad/2
}

// SegmentBlockedByObstacle reports whether any obstacle shape contains any
// sampled point of the pixel-space segment from a to b. All-or-nothing:
// a single hit blocks the segment entirely. Obstacles whose bounding box
// cannot intersect the segment's box are skipped without a containment
// test.
func SegmentBlockedByObstacle(a, b geo.Pixel, obstacles []scene.Shape, bounds []orb.Bound) bool {
	if len(obstacles) == 0 {
		return false
	}
	dist := geo.PixelDistance(a, b)
	steps := int(math.Ceil(dist / stepDensityPx))
	if steps < 10 {
		steps = 10
	}

	segBound := orb.MultiPoint{{a.X, a.Y}, {b.X, b.Y}}.Bound()
	for i := range obstacles {
		if !segBound.Intersects(bounds[i]) {
			continue
		}
		for s := 0; s <= steps; s++ {
			t := float64(s) / float64(steps)
			p := geo.Pixel{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
			if obstacles[i].Contains(p) {
				return true
			}
		}
	}
	return false
}

// LineOfSightFraction computes what portion of a finite-height target at
// the candidate is visible from the viewer: a continuous value in [0,1],
// not a boolean.
//
// Order of tests: directional cone (cheap, dominates everything), obstacle
// segment test (all-or-nothing), then a terrain-profile occlusion walk per
// height slice. The slice walk compares interpolated surface height
// against the straight sight line between viewer eye and candidate+slice;
// the slice is blocked the instant the surface exceeds the line. This is a
// terrain-profile test, deliberately not a tangent/horizon algorithm.
func LineOfSightFraction(v *scene.ViewerSample, c *scene.CandidateSample, targetHeightM, viewerHeightM float64, surface Surface, obstacles []scene.Shape, bounds []orb.Bound) float64 {
	if !InViewerCone(v, c.Pixel) {
		return 0
	}
	if SegmentBlockedByObstacle(v.Pixel, c.Pixel, obstacles, bounds) {
		return 0
	}

	distPx := geo.PixelDistance(v.Pixel, c.Pixel)
	steps := int(math.Ceil(distPx / stepDensityPx))
	if steps < 24 {
		steps = 24
	}

	eyeM := v.GroundM + viewerHeightM
	visible := 0
	for slice := 0; slice < heightSlices; slice++ {
		sliceM := c.GroundM + targetHeightM*float64(slice)/float64(heightSlices-1)
		if sliceVisible(v.Loc, c.Loc, eyeM, sliceM, steps, surface) {
			visible++
		}
	}
	return float64(visible) / float64(heightSlices)
}

// sliceVisible walks the lat/lon segment and tests the terrain profile
// against the sight line. Endpoints are excluded so a sample standing on
// raised ground does not occlude itself.
func sliceVisible(from, to geo.Point, eyeM, targetM float64, steps int, surface Surface) bool {
	for s := 1; s < steps; s++ {
		t := float64(s) / float64(steps)
		lat := from.Lat + (to.Lat-from.Lat)*t
		lon := from.Lon + (to.Lon-from.Lon)*t

		ground := surface.ElevationAt(lat, lon)
		sight := eyeM + (targetM-eyeM)*t
		if ground > sight {
			return false
		}
	}
	return true
}
