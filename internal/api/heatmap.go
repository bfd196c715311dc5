package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sightline/pkg/logging"
	"sightline/pkg/visibility"
)

// HeatmapHandler runs visibility computations and streams progressive
// results.
type HeatmapHandler struct {
	app      *App
	upgrader websocket.Upgrader
}

// NewHeatmapHandler creates a new HeatmapHandler.
func NewHeatmapHandler(app *App) *HeatmapHandler {
	return &HeatmapHandler{
		app: app,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
			// Local tool; the frame editor may be served from another port.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HeatmapResponse is the synchronous heatmap result.
type HeatmapResponse struct {
	Cells      []visibility.HeatmapCell `json:"cells"`
	Superseded bool                     `json:"superseded"`
}

// HandleHeatmap computes a full heatmap synchronously and returns the
// final pass. An edit arriving mid-computation supersedes this run; the
// response then carries superseded=true and no cells, and the client is
// expected to re-request.
func (h *HeatmapHandler) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	cells, err := h.app.ComputeHeatmap(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(HeatmapResponse{
		Cells:      cells,
		Superseded: cells == nil,
	}); err != nil {
		slog.Error("Failed to encode heatmap response", "error", err)
	}
}

// HandleLive upgrades to a websocket and streams one Update message per
// refinement pass. The socket closes after the final pass or when the run
// is superseded; the client reconnects to start a fresh computation.
func (h *HeatmapHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// Concurrent writes to a gorilla conn are not allowed; the publish
	// callback and the closing handshake below share this mutex.
	var writeMu sync.Mutex
	writeErr := false

	cells, err := h.app.ComputeHeatmap(r.Context(), func(u visibility.Update) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if writeErr {
			return
		}
		logging.TraceDefault("heatmap pass streamed",
			"pass", u.Pass, "total", u.TotalPass, "cells", len(u.Cells), "step_px", u.StepPx)
		if err := conn.WriteJSON(u); err != nil {
			slog.Debug("Websocket write failed, client likely gone", "error", err)
			writeErr = true
		}
	})
	if err != nil {
		writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), closeDeadline())
		writeMu.Unlock()
		return
	}

	code := websocket.CloseNormalClosure
	reason := "done"
	if cells == nil {
		reason = "superseded"
	}
	writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), closeDeadline())
	writeMu.Unlock()
}

func closeDeadline() time.Time { return time.Now().Add(time.Second) }

// HandleShading returns the blindspot overlay derived from the most
// recent completed heatmap, computing one first if none exists yet.
func (h *HeatmapHandler) HandleShading(w http.ResponseWriter, r *http.Request) {
	cells := h.app.LastCells()
	if cells == nil {
		var err error
		cells, err = h.app.ComputeHeatmap(r.Context(), nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	}

	overlay := visibility.ShadingOverlay(cells)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"cells": overlay,
	}); err != nil {
		slog.Error("Failed to encode shading response", "error", err)
	}
}
