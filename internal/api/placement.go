package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"sightline/pkg/geo"
	"sightline/pkg/optimizer"
	"sightline/pkg/scene"
)

// PlacementHandler runs the structure placement search.
type PlacementHandler struct {
	app *App
}

// NewPlacementHandler creates a new PlacementHandler.
func NewPlacementHandler(app *App) *PlacementHandler {
	return &PlacementHandler{app: app}
}

// PlacementRequest describes the structure to place. Dimensions are in
// meters and converted to pixels through the frame's georeference.
type PlacementRequest struct {
	WidthM float64 `json:"width_m"`
	DepthM float64 `json:"depth_m"`

	RotationStepDeg  float64 `json:"rotation_step_deg,omitempty"`
	PlacementSamples int     `json:"placement_samples,omitempty"`

	// At most one of these restricts which faces count toward the score.
	FacePriority *optimizer.FacePriority `json:"face_priority,omitempty"`
	PinnedFace   *int                    `json:"pinned_face,omitempty"`
}

// HandleOptimize searches every candidate zone for the best admissible
// placement of the requested footprint and returns it, 404 when no
// placement fits anywhere.
func (h *PlacementHandler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req PlacementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.WidthM <= 0 || req.DepthM <= 0 {
		http.Error(w, "width_m and depth_m must be positive", http.StatusUnprocessableEntity)
		return
	}
	if req.FacePriority != nil && req.PinnedFace != nil {
		http.Error(w, "face_priority and pinned_face are mutually exclusive", http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	m, surface, snap, err := h.app.Surface(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	mpp := m.MetersPerPixel()
	if mpp <= 0 {
		http.Error(w, "frame georeference has no physical scale", http.StatusConflict)
		return
	}

	candidates := snap.ShapesByZone(scene.ZoneCandidate)
	if len(candidates) == 0 {
		http.Error(w, "no candidate zones drawn", http.StatusUnprocessableEntity)
		return
	}

	stepPx := h.app.CfgProv.SampleStepPx(ctx)
	viewers := scene.SampleViewers(m, snap.Shapes, stepPx)
	optCfg := h.app.CfgProv.AppConfig().Optimizer

	placement := optimizer.Optimize(ctx, optimizer.Request{
		Footprint:     optimizer.RectFootprint(req.WidthM/mpp, req.DepthM/mpp),
		Candidates:    candidates,
		Viewers:       viewers,
		Obstacles:     snap.ShapesByZone(scene.ZoneObstacle),
		Surface:       surface,
		Mapper:        m,
		TargetHeightM: geo.FeetToMeters(h.app.CfgProv.TargetHeightFt(ctx)),
		ViewerHeightM: geo.FeetToMeters(h.app.CfgProv.ViewerHeightFt(ctx)),
		Options: optimizer.Options{
			RotationStepDeg:       firstPositive(req.RotationStepDeg, optCfg.RotationStepDeg),
			RotationRefineStepDeg: optCfg.RotationRefineStepDeg,
			PlacementSamples:      firstPositiveInt(req.PlacementSamples, optCfg.PlacementSamples),
			FacePriority:          req.FacePriority,
			PinnedFace:            req.PinnedFace,
		},
	})
	if placement == nil {
		http.Error(w, "no admissible placement found", http.StatusNotFound)
		return
	}

	slog.Info("Placement found",
		"candidate", placement.CandidateID,
		"score", placement.TotalScore,
		"rotation_deg", placement.RotationDeg)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(placement); err != nil {
		slog.Error("Failed to encode placement response", "error", err)
	}
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveInt(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
