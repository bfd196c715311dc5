package optimizer

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"

	"sightline/pkg/geo"
	"sightline/pkg/scene"
	"sightline/pkg/visibility"
)

// Footprint is a rigid structure outline: vertices relative to the
// placement center, in pixels, in edge order.
type Footprint struct {
	Vertices []geo.Pixel `json:"vertices"`
}

// RectFootprint builds a rectangular footprint of the given pixel
// dimensions centered on the placement point.
func RectFootprint(widthPx, depthPx float64) Footprint {
	hw, hd := widthPx/2, depthPx/2
	return Footprint{Vertices: []geo.Pixel{
		{X: -hw, Y: -hd}, {X: hw, Y: -hd}, {X: hw, Y: hd}, {X: -hw, Y: hd},
	}}
}

// PlacedAt returns the footprint's absolute vertices for a center and
// rotation.
func (f Footprint) PlacedAt(center geo.Pixel, rotationDeg float64) []geo.Pixel {
	rad := rotationDeg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	out := make([]geo.Pixel, len(f.Vertices))
	for i, v := range f.Vertices {
		out[i] = geo.Pixel{
			X: center.X + v.X*cos - v.Y*sin,
			Y: center.Y + v.X*sin + v.Y*cos,
		}
	}
	return out
}

// Options tunes the coarse-to-fine search.
type Options struct {
	RotationStepDeg       float64       // coarse sweep increment, default 15
	RotationRefineStepDeg float64       // refinement increment, default 2
	PlacementSamples      int           // interior grid points per axis, default 8
	FacePriority          *FacePriority // optional arc restricting scored faces
	PinnedFace            *int          // optional single scored face
}

func (o Options) withDefaults() Options {
	if o.RotationStepDeg <= 0 {
		o.RotationStepDeg = 15
	}
	if o.RotationRefineStepDeg <= 0 {
		o.RotationRefineStepDeg = 2
	}
	if o.PlacementSamples <= 0 {
		o.PlacementSamples = 8
	}
	return o
}

// Request is one placement search over an immutable scene snapshot.
type Request struct {
	Footprint     Footprint
	Candidates    []scene.Shape // containment polygons, searched in order
	Viewers       []scene.ViewerSample
	Obstacles     []scene.Shape
	Surface       visibility.Surface
	Mapper        *geo.Mapper
	TargetHeightM float64
	ViewerHeightM float64
	Options       Options
}

// Placement is an admissible solution: every footprint vertex inside the
// winning candidate polygon.
type Placement struct {
	Center      geo.Pixel       `json:"center"`
	RotationDeg float64         `json:"rotation_deg"`
	FaceScores  map[int]float64 `json:"face_scores"`
	TotalScore  float64         `json:"total_score"`
	CandidateID string          `json:"candidate_id"`
}

// Optimize runs the coarse rotation/position sweep followed by a rotation
// refinement pass around the best coarse hit. Containment is a hard
// constraint; a placement with any vertex outside its candidate polygon is
// rejected outright, never penalized. Among equal scores the first found
// in candidate, then rotation, then position order wins, so results are
// reproducible. Returns nil when no admissible placement exists anywhere,
// or when the context is cancelled mid-search.
func Optimize(ctx context.Context, req Request) *Placement {
	if len(req.Footprint.Vertices) < 3 || len(req.Candidates) == 0 {
		return nil
	}
	opts := req.Options.withDefaults()
	started := time.Now()

	bounds := visibility.ObstacleBounds(req.Obstacles)

	var best *Placement
	for ci := range req.Candidates {
		cand := &req.Candidates[ci]
		for rot := 0.0; rot < 360; rot += opts.RotationStepDeg {
			if ctx.Err() != nil {
				return nil
			}
			for _, center := range interiorGrid(cand, opts.PlacementSamples) {
				p := evaluate(req, opts, cand, center, rot, bounds)
				if p != nil && (best == nil || p.TotalScore > best.TotalScore) {
					best = p
				}
			}
		}
	}
	if best == nil {
		slog.Debug("no admissible placement in any candidate polygon")
		return nil
	}

	// Refinement: re-sweep rotation at fine resolution around the coarse
	// best, keeping its center and candidate.
	cand := candidateByID(req.Candidates, best.CandidateID)
	for rot := best.RotationDeg - opts.RotationStepDeg; rot <= best.RotationDeg+opts.RotationStepDeg; rot += opts.RotationRefineStepDeg {
		if ctx.Err() != nil {
			return nil
		}
		p := evaluate(req, opts, cand, best.Center, math.Mod(rot+360, 360), bounds)
		if p != nil && p.TotalScore > best.TotalScore {
			best = p
		}
	}

	slog.Debug("placement search finished",
		"score", best.TotalScore,
		"rotation_deg", best.RotationDeg,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return best
}

// evaluate scores one (candidate, center, rotation) triple, or returns nil
// when containment fails.
func evaluate(req Request, opts Options, cand *scene.Shape, center geo.Pixel, rotationDeg float64, bounds []orb.Bound) *Placement {
	verts := req.Footprint.PlacedAt(center, rotationDeg)
	for _, v := range verts {
		if !cand.Contains(v) {
			return nil
		}
	}

	faceScores := scoreFaces(req, verts, bounds)

	selected := selectedFaces(len(verts), opts)
	scores := make([]float64, 0, len(selected))
	for _, idx := range selected {
		scores = append(scores, faceScores[idx])
	}
	total := 0.0
	if len(scores) > 0 {
		total = floats.Sum(scores) / float64(len(scores))
	}

	return &Placement{
		Center:      center,
		RotationDeg: rotationDeg,
		FaceScores:  faceScores,
		TotalScore:  total,
		CandidateID: cand.ID,
	}
}

// scoreFaces computes the weighted-mean visibility of each footprint face.
// A face contributes 0 for a viewer it points away from: the structure
// occludes its own back faces.
func scoreFaces(req Request, verts []geo.Pixel, bounds []orb.Bound) map[int]float64 {
	faceScores := make(map[int]float64, len(verts))
	for i := range verts {
		mid, normal := faceMidNormal(verts, i)
		loc := req.Mapper.PixelToLatLon(mid.X, mid.Y)
		face := scene.CandidateSample{
			Pixel:   mid,
			Loc:     loc,
			GroundM: req.Mapper.ElevationAt(loc.Lat, loc.Lon),
		}

		var weighted, weightSum float64
		for j := range req.Viewers {
			v := &req.Viewers[j]
			w := v.Weight
			if w <= 0 {
				w = 1
			}
			weightSum += w

			toViewer := geo.Pixel{X: v.Pixel.X - mid.X, Y: v.Pixel.Y - mid.Y}
			if normal.X*toViewer.X+normal.Y*toViewer.Y <= 0 {
				continue // viewer is behind this face
			}
			frac := visibility.LineOfSightFraction(v, &face,
				req.TargetHeightM, req.ViewerHeightM, req.Surface, req.Obstacles, bounds)
			weighted += w * frac
		}
		if weightSum > 0 {
			faceScores[i] = weighted / weightSum
		} else {
			faceScores[i] = 0
		}
	}
	return faceScores
}

func selectedFaces(faceCount int, opts Options) []int {
	if opts.PinnedFace != nil {
		idx := ((*opts.PinnedFace)%faceCount + faceCount) % faceCount
		return []int{idx}
	}
	if opts.FacePriority != nil {
		return ResolveFacePriorityIndices(faceCount, *opts.FacePriority)
	}
	all := make([]int, faceCount)
	for i := range all {
		all[i] = i
	}
	return all
}

// interiorGrid returns an n x n lattice of points over the candidate's
// bounding box that fall inside the shape, in row-major order.
func interiorGrid(cand *scene.Shape, n int) []geo.Pixel {
	b := cand.Bound()
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w <= 0 || h <= 0 {
		return nil
	}
	var out []geo.Pixel
	for iy := 0; iy < n; iy++ {
		y := b.Min[1] + (float64(iy)+0.5)/float64(n)*h
		for ix := 0; ix < n; ix++ {
			x := b.Min[0] + (float64(ix)+0.5)/float64(n)*w
			p := geo.Pixel{X: x, Y: y}
			if cand.Contains(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

func candidateByID(cands []scene.Shape, id string) *scene.Shape {
	for i := range cands {
		if cands[i].ID == id {
			return &cands[i]
		}
	}
	return &cands[0]
}
