package optimizer

import (
	"math"
	"sort"

	"sightline/pkg/geo"
)

// FacePriority selects a contiguous arc of footprint faces, centered on a
// primary edge, that alone contribute to the placement score. Used to bias
// the optimizer toward presenting a specific face to viewers.
type FacePriority struct {
	PrimaryEdgeIndex int     `json:"primary_edge_index"`
	ArcDeg           float64 `json:"arc_deg"`
}

// ResolveFacePriorityIndices returns the sorted face indices inside the
// arc. The arc is a contiguous run through the primary edge, near-symmetric
// where integer edge counts allow, covering ArcDeg degrees of perimeter
// turning angle (each face accounts for 360/faceCount degrees). When the
// nominal arc would cover the whole polygon the run is truncated from the
// trailing side: the selection never includes every edge, so a 4-gon's
// 270 degree arc keeps 3 faces and a triangle's keeps 2.
func ResolveFacePriorityIndices(faceCount int, fp FacePriority) []int {
	if faceCount <= 0 {
		return nil
	}
	if faceCount == 1 {
		return []int{0}
	}

	span := 360.0 / float64(faceCount)
	arc := fp.ArcDeg
	if arc <= 0 {
		arc = span
	}

	// Faces fully or partially under the arc: one per full span started.
	n := int(math.Floor(arc/span)) + 1

	// Split the run around the primary edge, extra face going forward.
	back := (n - 1) / 2
	fwd := n - 1 - back

	// Truncate runs that would wrap onto themselves, dropping trailing
	// faces first so the forward side survives.
	if n > faceCount-1 {
		over := n - (faceCount - 1)
		back -= over
		if back < 0 {
			fwd += back
			back = 0
		}
	}

	out := make([]int, 0, back+fwd+1)
	for off := -back; off <= fwd; off++ {
		idx := ((fp.PrimaryEdgeIndex+off)%faceCount + faceCount) % faceCount
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// faceMidNormal returns the midpoint and outward unit normal of edge i of
// the placed footprint polygon. Outward means pointing away from the
// polygon centroid, which holds for the convex and near-convex footprints
// the optimizer places.
func faceMidNormal(verts []geo.Pixel, i int) (mid, normal geo.Pixel) {
	a := verts[i]
	b := verts[(i+1)%len(verts)]
	mid = geo.Pixel{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}

	// Perpendicular of the edge direction, then orient away from the
	// centroid.
	nx, ny := b.Y-a.Y, a.X-b.X
	length := math.Hypot(nx, ny)
	if length == 0 {
		return mid, geo.Pixel{}
	}
	nx /= length
	ny /= length

	var cx, cy float64
	for _, v := range verts {
		cx += v.X
		cy += v.Y
	}
	cx /= float64(len(verts))
	cy /= float64(len(verts))

	if nx*(mid.X-cx)+ny*(mid.Y-cy) < 0 {
		nx, ny = -nx, -ny
	}
	return mid, geo.Pixel{X: nx, Y: ny}
}
