package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightline/pkg/geo"
)

func TestSpiralIndexOrder3x3(t *testing.T) {
	got := SpiralIndexOrder(3, 3)
	want := []int{4, 0, 1, 2, 5, 8, 7, 6, 3}
	assert.Equal(t, want, got)
}

func TestSpiralIndexOrderProperties(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {2, 2}, {3, 3}, {4, 5}, {7, 3}, {6, 6}} {
		rows, cols := dims[0], dims[1]
		order := SpiralIndexOrder(rows, cols)
		require.Len(t, order, rows*cols, "dims %v", dims)

		// Permutation: no duplicates, all in range.
		seen := make(map[int]bool, len(order))
		for _, idx := range order {
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, rows*cols)
			require.False(t, seen[idx], "duplicate index %d for dims %v", idx, dims)
			seen[idx] = true
		}

		// Ring distance from center is monotonically non-decreasing.
		cr, cc := (rows-1)/2, (cols-1)/2
		prev := -1
		for _, idx := range order {
			r, c := idx/cols, idx%cols
			d := max(abs(r-cr), abs(c-cc))
			require.GreaterOrEqual(t, d, prev, "ring distance regressed for dims %v", dims)
			prev = d
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func samplingMapper(t *testing.T) *geo.Mapper {
	t.Helper()
	grid, err := geo.NewElevationGrid(
		[][]float64{{100, 100}, {100, 100}},
		[]float64{50.1, 50.0},
		[]float64{8.0, 8.1},
	)
	require.NoError(t, err)
	return geo.NewMapper(grid, geo.GeoReference{
		WidthPx: 100, HeightPx: 100,
		LatMaxNorth: 50.1, LatMinSouth: 50.0,
		LonMinWest: 8.0, LonMaxEast: 8.1,
	})
}

func TestSampleViewersInheritsCone(t *testing.T) {
	m := samplingMapper(t)

	sh := NewRect(ZoneViewer, 10, 10, 20, 20)
	sh.Direction = &Direction{AngleRad: 0.3, ConeRad: 1.0}
	sh.Anchor = &geo.Pixel{X: 20, Y: 20}
	sh.Weight = 3

	samples := SampleViewers(m, []Shape{sh}, 10)
	require.NotEmpty(t, samples)
	for _, s := range samples {
		assert.Equal(t, sh.Direction, s.Direction)
		assert.Equal(t, geo.Pixel{X: 20, Y: 20}, s.Anchor)
		assert.Equal(t, 3.0, s.Weight)
		assert.True(t, sh.Contains(s.Pixel))
		assert.Equal(t, 100.0, s.GroundM)
	}
}

func TestSampleCandidatesSkipsOtherZones(t *testing.T) {
	m := samplingMapper(t)

	shapes := []Shape{
		NewRect(ZoneViewer, 0, 0, 10, 10),
		NewRect(ZoneCandidate, 40, 40, 20, 20),
		NewRect(ZoneObstacle, 80, 80, 10, 10),
	}
	cands := SampleCandidates(m, shapes, 5)
	require.NotEmpty(t, cands)
	for _, c := range cands {
		assert.True(t, shapes[1].Contains(c.Pixel))
	}
}

func TestSampleDensityScalesWithStep(t *testing.T) {
	m := samplingMapper(t)
	sh := NewRect(ZoneCandidate, 0, 0, 40, 40)

	coarse := SampleCandidates(m, []Shape{sh}, 20)
	fine := SampleCandidates(m, []Shape{sh}, 5)
	assert.Greater(t, len(fine), len(coarse))
}
