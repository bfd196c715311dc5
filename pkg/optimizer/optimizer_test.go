package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightline/pkg/geo"
	"sightline/pkg/scene"
)

// flatMapper builds a flat 21x21 grid at 0m under a 100x100px frame.
func flatMapper(t *testing.T) *geo.Mapper {
	t.Helper()
	const n = 21
	values := make([][]float64, n)
	lats := make([]float64, n)
	lons := make([]float64, n)
	for i := 0; i < n; i++ {
		lats[i] = 50.1 - float64(i)*(0.1/float64(n-1))
		lons[i] = 8.0 + float64(i)*(0.1/float64(n-1))
		values[i] = make([]float64, n)
	}
	grid, err := geo.NewElevationGrid(values, lats, lons)
	require.NoError(t, err)
	return geo.NewMapper(grid, geo.GeoReference{
		WidthPx: 100, HeightPx: 100,
		LatMaxNorth: 50.1, LatMinSouth: 50.0,
		LonMinWest: 8.0, LonMaxEast: 8.1,
	})
}

func viewerAt(m *geo.Mapper, px geo.Pixel) scene.ViewerSample {
	loc := m.PixelToLatLon(px.X, px.Y)
	return scene.ViewerSample{
		Pixel:   px,
		Loc:     loc,
		GroundM: m.ElevationAt(loc.Lat, loc.Lon),
		Anchor:  px,
		Weight:  1,
	}
}

func placementRequest(m *geo.Mapper) Request {
	return Request{
		Footprint:     RectFootprint(10, 6),
		Candidates:    []scene.Shape{scene.NewRect(scene.ZoneCandidate, 55, 35, 30, 30)},
		Viewers:       []scene.ViewerSample{viewerAt(m, geo.Pixel{X: 10, Y: 50})},
		Surface:       m,
		Mapper:        m,
		TargetHeightM: 4,
		ViewerHeightM: 1.7,
		Options: Options{
			RotationStepDeg:  90,
			PlacementSamples: 4,
		},
	}
}

func TestOptimizeFindsAdmissiblePlacement(t *testing.T) {
	m := flatMapper(t)
	req := placementRequest(m)

	p := Optimize(context.Background(), req)
	require.NotNil(t, p)
	assert.GreaterOrEqual(t, p.TotalScore, 0.0)
	assert.LessOrEqual(t, p.TotalScore, 1.0)
	require.Len(t, p.FaceScores, 4)

	cand := &req.Candidates[0]
	assert.Equal(t, cand.ID, p.CandidateID)
	for _, v := range req.Footprint.PlacedAt(p.Center, p.RotationDeg) {
		assert.True(t, cand.Contains(v), "every vertex stays inside the candidate")
	}
}

func TestOptimizeContainmentIsHardConstraint(t *testing.T) {
	m := flatMapper(t)
	req := placementRequest(m)
	// A candidate smaller than the footprint admits no placement at all.
	req.Candidates = []scene.Shape{scene.NewRect(scene.ZoneCandidate, 50, 50, 4, 4)}

	assert.Nil(t, Optimize(context.Background(), req))
}

func TestOptimizeTotalScoreIsMeanOfSelectedFaces(t *testing.T) {
	m := flatMapper(t)

	fp := FacePriority{PrimaryEdgeIndex: 0, ArcDeg: 180}
	req := placementRequest(m)
	req.Options.FacePriority = &fp

	p := Optimize(context.Background(), req)
	require.NotNil(t, p)

	selected := ResolveFacePriorityIndices(4, fp)
	var sum float64
	for _, idx := range selected {
		sum += p.FaceScores[idx]
	}
	assert.InDelta(t, sum/float64(len(selected)), p.TotalScore, 1e-12)
}

func TestOptimizePinnedFace(t *testing.T) {
	m := flatMapper(t)
	pinned := 2
	req := placementRequest(m)
	req.Options.PinnedFace = &pinned

	p := Optimize(context.Background(), req)
	require.NotNil(t, p)
	assert.InDelta(t, p.FaceScores[pinned], p.TotalScore, 1e-12,
		"a pinned face alone decides the score")
}

func TestOptimizeDeterministic(t *testing.T) {
	m := flatMapper(t)

	a := Optimize(context.Background(), placementRequest(m))
	b := Optimize(context.Background(), placementRequest(m))
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, a.Center, b.Center)
	assert.Equal(t, a.RotationDeg, b.RotationDeg)
	assert.Equal(t, a.TotalScore, b.TotalScore)
}

func TestOptimizeCancelledContext(t *testing.T) {
	m := flatMapper(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Nil(t, Optimize(ctx, placementRequest(m)))
}

func TestRectFootprintPlacedAt(t *testing.T) {
	f := RectFootprint(4, 2)
	verts := f.PlacedAt(geo.Pixel{X: 10, Y: 10}, 90)
	require.Len(t, verts, 4)

	// A 90 degree rotation swaps width and depth around the center.
	assert.InDelta(t, 11.0, verts[0].X, 1e-9)
	assert.InDelta(t, 8.0, verts[0].Y, 1e-9)
	assert.InDelta(t, 11.0, verts[1].X, 1e-9)
	assert.InDelta(t, 12.0, verts[1].Y, 1e-9)
}
