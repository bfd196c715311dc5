package visibility

import (
	"context"
	"log/slog"
	"sync/atomic"

	"sightline/pkg/geo"
	"sightline/pkg/scene"
)

// Update is one published refinement pass. Pass counts from 1; Final marks
// the target-resolution pass.
type Update struct {
	Pass       int           `json:"pass"`
	TotalPass  int           `json:"total_passes"`
	StepPx     float64       `json:"step_px"`
	Final      bool          `json:"final"`
	Cells      []HeatmapCell `json:"cells"`
	Generation int64         `json:"generation"`
}

// RunRequest describes a progressive heatmap computation over a scene
// snapshot.
type RunRequest struct {
	Mapper        *geo.Mapper
	Shapes        []scene.Shape
	Surface       Surface
	TargetStepPx  float64
	Passes        int
	TargetHeightM float64
	ViewerHeightM float64
}

// Runner owns the generation token for heatmap computations. Every
// invocation captures the token at start; each yield point (between
// passes) re-checks it. A mismatch means a newer computation superseded
// this one and the stale run abandons silently, publishing nothing more.
// This is the only cancellation mechanism; there are no timeouts.
type Runner struct {
	gen atomic.Int64
}

// NewRunner creates a runner.
func NewRunner() *Runner { return &Runner{} }

// Supersede invalidates any in-flight computation and returns the token
// for the next one. Call whenever shapes, settings, or terrain change.
func (r *Runner) Supersede() int64 {
	return r.gen.Add(1)
}

// Generation returns the live token.
func (r *Runner) Generation() int64 {
	return r.gen.Load()
}

// Run executes the multi-pass coarse-to-fine schedule: each pass is an
// independent full recomputation at half the previous sample spacing,
// published via publish so the caller can render an improving preview.
// The final pass's cells are returned, or nil when the run was superseded
// or the context cancelled.
func (r *Runner) Run(ctx context.Context, token int64, req RunRequest, publish func(Update)) []HeatmapCell {
	passes := req.Passes
	if passes < 1 {
		passes = 1
	}
	stepPx := req.TargetStepPx
	if stepPx <= 0 {
		stepPx = 8
	}

	obstacles := shapesByZone(req.Shapes, scene.ZoneObstacle)

	var final []HeatmapCell
	for pass := 1; pass <= passes; pass++ {
		// Halving schedule: coarsest first, target step on the last pass.
		passStep := stepPx * float64(int(1)<<(passes-pass))

		viewers := scene.SampleViewers(req.Mapper, req.Shapes, passStep)
		candidates := scene.SampleCandidates(req.Mapper, req.Shapes, passStep)

		cells := ComputeHeatmap(Request{
			Viewers:       viewers,
			Candidates:    candidates,
			Obstacles:     obstacles,
			Surface:       req.Surface,
			TargetHeightM: req.TargetHeightM,
			ViewerHeightM: req.ViewerHeightM,
		})

		// Yield point: a newer generation owns the output now.
		if r.gen.Load() != token {
			slog.Debug("heatmap run superseded", "token", token, "pass", pass)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		u := Update{
			Pass:       pass,
			TotalPass:  passes,
			StepPx:     passStep,
			Final:      pass == passes,
			Cells:      cells,
			Generation: token,
		}
		if publish != nil {
			publish(u)
		}
		if u.Final {
			final = cells
		}
	}
	return final
}

func shapesByZone(shapes []scene.Shape, zone scene.Zone) []scene.Shape {
	var out []scene.Shape
	for _, sh := range shapes {
		if sh.Zone == zone {
			out = append(out, sh)
		}
	}
	return out
}
