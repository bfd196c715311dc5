package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"sightline/pkg/scene"
)

// ShapesHandler manages the drawn zones and the 3D scene context.
type ShapesHandler struct {
	app *App
}

// NewShapesHandler creates a new ShapesHandler.
func NewShapesHandler(app *App) *ShapesHandler {
	return &ShapesHandler{app: app}
}

// HandleList returns the full scene snapshot.
func (h *ShapesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	snap := h.app.Scene.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		slog.Error("Failed to encode scene snapshot", "error", err)
	}
}

// HandleCreate adds a new zone. Missing IDs are assigned server-side so
// clients may post bare geometry.
func (h *ShapesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var sh scene.Shape
	if err := json.NewDecoder(r.Body).Decode(&sh); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validateShape(&sh); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	if sh.Opacity <= 0 {
		sh.Opacity = 1
	}
	if sh.Zone != scene.ZoneViewer {
		// Zone invariant: only viewers carry a cone, anchor, and weight.
		sh.SetZone(sh.Zone)
	}

	h.app.Scene.AddShape(sh)
	h.app.Invalidate()
	slog.Debug("Shape created", "id", sh.ID, "kind", sh.Kind, "zone", sh.Zone)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(sh); err != nil {
		slog.Error("Failed to encode shape", "error", err)
	}
}

// HandleUpdate replaces a zone's geometry and metadata in full.
func (h *ShapesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var sh scene.Shape
	if err := json.NewDecoder(r.Body).Decode(&sh); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	sh.ID = id
	if err := validateShape(&sh); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if sh.Zone != scene.ZoneViewer {
		sh.SetZone(sh.Zone)
	}

	if err := h.app.Scene.UpdateShape(sh); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.app.Invalidate()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sh); err != nil {
		slog.Error("Failed to encode shape", "error", err)
	}
}

// HandleDelete removes a zone. Deleting an unknown ID succeeds; the state
// the client asked for already holds.
func (h *ShapesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.app.Scene.RemoveShape(id)
	h.app.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// ZoneRequest is the body of a zone reclassification.
type ZoneRequest struct {
	Zone scene.Zone `json:"zone"`
}

// HandleSetZone reclassifies a zone, stripping viewer metadata when the
// shape stops being a viewer.
func (h *ShapesHandler) HandleSetZone(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req ZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	switch req.Zone {
	case scene.ZoneViewer, scene.ZoneCandidate, scene.ZoneObstacle:
	default:
		http.Error(w, "Unknown zone", http.StatusUnprocessableEntity)
		return
	}

	if err := h.app.Scene.SetShapeZone(id, req.Zone); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.app.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// ContextRequest replaces the 3D context objects wholesale.
type ContextRequest struct {
	Buildings []scene.Building `json:"buildings"`
	Trees     []scene.Tree     `json:"trees"`
	Signs     []scene.Sign     `json:"signs"`
}

// HandleSetContext swaps the buildings, trees, and signs in one
// transition.
func (h *ShapesHandler) HandleSetContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	h.app.Scene.SetContext(req.Buildings, req.Trees, req.Signs)
	h.app.Invalidate()
	slog.Info("Scene context replaced",
		"buildings", len(req.Buildings), "trees", len(req.Trees), "signs", len(req.Signs))
	w.WriteHeader(http.StatusNoContent)
}

func validateShape(sh *scene.Shape) error {
	switch sh.Kind {
	case scene.KindRect:
		if sh.W <= 0 || sh.H <= 0 {
			return errors.New("rect needs positive w and h")
		}
	case scene.KindEllipse:
		if sh.RX <= 0 || sh.RY <= 0 {
			return errors.New("ellipse needs positive rx and ry")
		}
	case scene.KindPolygon:
		if len(sh.Points) < 3 {
			return errors.New("polygon needs at least 3 points")
		}
	default:
		return errors.New("unknown shape kind")
	}
	switch sh.Zone {
	case scene.ZoneViewer, scene.ZoneCandidate, scene.ZoneObstacle:
		return nil
	default:
		return errors.New("unknown zone")
	}
}
