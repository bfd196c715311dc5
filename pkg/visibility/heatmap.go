package visibility

import (
	"gonum.org/v1/gonum/floats"

	"sightline/pkg/geo"
	"sightline/pkg/scene"
)

// HeatmapCell is one scored candidate location. Score is normalized to
// [0,1]: the mean fraction of viewers that can see the target there.
type HeatmapCell struct {
	Pixel geo.Pixel `json:"pixel"`
	Score float64   `json:"score"`
}

// Request bundles the immutable inputs of one heatmap computation. The
// surface and samples are snapshots; a scene edit mid-computation triggers
// a new request instead of mutating this one.
type Request struct {
	Viewers       []scene.ViewerSample
	Candidates    []scene.CandidateSample
	Obstacles     []scene.Shape
	Surface       Surface
	TargetHeightM float64
	ViewerHeightM float64
}

// ComputeHeatmap scores every candidate with the mean line-of-sight
// fraction over all viewers. Zero viewers yields score 0 for every
// candidate; that is policy, not an error.
func ComputeHeatmap(req Request) []HeatmapCell {
	cells := make([]HeatmapCell, 0, len(req.Candidates))
	if len(req.Viewers) == 0 {
		for i := range req.Candidates {
			cells = append(cells, HeatmapCell{Pixel: req.Candidates[i].Pixel})
		}
		return cells
	}

	bounds := ObstacleBounds(req.Obstacles)
	fractions := make([]float64, len(req.Viewers))
	for i := range req.Candidates {
		c := &req.Candidates[i]
		for j := range req.Viewers {
			fractions[j] = LineOfSightFraction(&req.Viewers[j], c,
				req.TargetHeightM, req.ViewerHeightM, req.Surface, req.Obstacles, bounds)
		}
		cells = append(cells, HeatmapCell{
			Pixel: c.Pixel,
			Score: floats.Sum(fractions) / float64(len(fractions)),
		})
	}
	return cells
}

// ShadingOverlay is the complementary blindspot view: 1 - score per cell.
// Cells with nothing to shade (score already 0 or negative after
// inversion) are dropped, not rendered as fully covered.
func ShadingOverlay(cells []HeatmapCell) []HeatmapCell {
	out := make([]HeatmapCell, 0, len(cells))
	for _, c := range cells {
		shade := 1 - c.Score
		if shade <= 0 {
			continue
		}
		out = append(out, HeatmapCell{Pixel: c.Pixel, Score: shade})
	}
	return out
}
