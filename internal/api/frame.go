package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"sightline/pkg/geo"
)

// FrameHandler georeferences the working frame and exposes the current
// reference.
type FrameHandler struct {
	app *App
}

// NewFrameHandler creates a new FrameHandler.
func NewFrameHandler(app *App) *FrameHandler {
	return &FrameHandler{app: app}
}

// HandleSetFrame accepts a georeference for the frame and fetches its
// terrain. The response is sent after the final elevation pass, so slow
// elevation backends make this a long request; clients watching
// /api/heatmap/live see intermediate terrain before it returns.
func (h *FrameHandler) HandleSetFrame(w http.ResponseWriter, r *http.Request) {
	var ref geo.GeoReference
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if !ref.Valid() {
		http.Error(w, "Invalid georeference: bounds must be ordered and dimensions positive", http.StatusUnprocessableEntity)
		return
	}

	slog.Info("Georeferencing frame",
		"width_px", ref.WidthPx, "height_px", ref.HeightPx,
		"north", ref.LatMaxNorth, "south", ref.LatMinSouth,
		"west", ref.LonMinWest, "east", ref.LonMaxEast)

	if err := h.app.SetFrame(r.Context(), ref); err != nil {
		slog.Error("Frame terrain fetch failed", "error", err)
		http.Error(w, "Terrain fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ref); err != nil {
		slog.Error("Failed to encode frame response", "error", err)
	}
}

// HandleGetFrame returns the current georeference, 404 when no frame has
// been set.
func (h *FrameHandler) HandleGetFrame(w http.ResponseWriter, r *http.Request) {
	ref := h.app.Reference()
	if !ref.Valid() {
		http.Error(w, "No frame georeferenced", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ref); err != nil {
		slog.Error("Failed to encode frame response", "error", err)
	}
}
