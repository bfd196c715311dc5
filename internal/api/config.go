package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"sightline/pkg/config"
	"sightline/pkg/store"
)

// ConfigHandler handles configuration API requests.
type ConfigHandler struct {
	store   store.Store
	cfgProv config.Provider
	app     *App
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(st store.Store, cfg config.Provider, app *App) *ConfigHandler {
	return &ConfigHandler{
		store:   st,
		cfgProv: cfg,
		app:     app,
	}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	ViewerHeightFt   float64 `json:"viewer_height_ft"`
	TargetHeightFt   float64 `json:"target_height_ft"`
	SampleStepPx     float64 `json:"sample_step_px"`
	Passes           int     `json:"passes"`
	ShowShadingLayer bool    `json:"show_shading_layer"`
	ActiveProjectID  string  `json:"active_project_id"`
}

// ConfigRequest represents the config API request for updates. Pointer
// fields distinguish an explicit zero from a missing key.
type ConfigRequest struct {
	ViewerHeightFt   *float64 `json:"viewer_height_ft,omitempty"`
	TargetHeightFt   *float64 `json:"target_height_ft,omitempty"`
	SampleStepPx     *float64 `json:"sample_step_px,omitempty"`
	Passes           *int     `json:"passes,omitempty"`
	ShowShadingLayer *bool    `json:"show_shading_layer,omitempty"`
}

// HandleConfig is a unified handler for all config-related methods, facilitating CORS/OPTIONS.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGetConfig(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetConfig returns the current configuration.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := ConfigResponse{
		ViewerHeightFt:   h.cfgProv.ViewerHeightFt(ctx),
		TargetHeightFt:   h.cfgProv.TargetHeightFt(ctx),
		SampleStepPx:     h.cfgProv.SampleStepPx(ctx),
		Passes:           h.cfgProv.Passes(ctx),
		ShowShadingLayer: h.cfgProv.ShowShadingLayer(ctx),
		ActiveProjectID:  h.cfgProv.ActiveProjectID(ctx),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode config response", "error", err)
	}
}

// HandleSetConfig updates the configuration. Any accepted change
// supersedes in-flight heatmap computations.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req ConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	ctx := context.Background()
	changed := false

	if req.ViewerHeightFt != nil {
		if *req.ViewerHeightFt <= 0 {
			http.Error(w, "viewer_height_ft must be positive", http.StatusBadRequest)
			return
		}
		h.updateFloatState(ctx, config.KeyViewerHeightFt, *req.ViewerHeightFt)
		changed = true
	}
	if req.TargetHeightFt != nil {
		if *req.TargetHeightFt <= 0 {
			http.Error(w, "target_height_ft must be positive", http.StatusBadRequest)
			return
		}
		h.updateFloatState(ctx, config.KeyTargetHeightFt, *req.TargetHeightFt)
		changed = true
	}
	if req.SampleStepPx != nil {
		h.updateFloatState(ctx, config.KeySampleStepPx, *req.SampleStepPx)
		changed = true
	}
	if req.Passes != nil {
		h.updateIntState(ctx, config.KeyPasses, *req.Passes)
		changed = true
	}
	if req.ShowShadingLayer != nil {
		h.updateBoolState(ctx, config.KeyShowShading, *req.ShowShadingLayer)
	}

	if changed && h.app != nil {
		h.app.Invalidate()
	}

	// Return updated config
	h.HandleGetConfig(w, r)
}

func (h *ConfigHandler) updateBoolState(ctx context.Context, key string, val bool) {
	strVal := "false"
	if val {
		strVal = "true"
	}
	if err := h.store.SetState(ctx, key, strVal); err != nil {
		slog.Error("Failed to save state", "key", key, "error", err)
	} else {
		slog.Debug("Config updated", key, strVal)
	}
}

func (h *ConfigHandler) updateFloatState(ctx context.Context, key string, val float64) {
	strVal := fmt.Sprintf("%.2f", val)
	if err := h.store.SetState(ctx, key, strVal); err != nil {
		slog.Error("Failed to save state", "key", key, "error", err)
	} else {
		slog.Debug("Config updated", key, strVal)
	}
}

func (h *ConfigHandler) updateIntState(ctx context.Context, key string, val int) {
	strVal := fmt.Sprintf("%d", val)
	if err := h.store.SetState(ctx, key, strVal); err != nil {
		slog.Error("Failed to save state", "key", key, "error", err)
	} else {
		slog.Debug("Config updated", key, strVal)
	}
}
