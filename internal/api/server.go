package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sightline/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, cfg *ConfigHandler, frame *FrameHandler, shapes *ShapesHandler, heat *HeatmapHandler, place *PlacementHandler, projects *ProjectsHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Config Endpoints
	mux.HandleFunc("/api/config", cfg.HandleConfig)

	// 4. Logs Endpoint
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 5. Frame Endpoints
	mux.HandleFunc("POST /api/frame", frame.HandleSetFrame)
	mux.HandleFunc("GET /api/frame", frame.HandleGetFrame)

	// 6. Shape Endpoints
	mux.HandleFunc("GET /api/shapes", shapes.HandleList)
	mux.HandleFunc("POST /api/shapes", shapes.HandleCreate)
	mux.HandleFunc("PUT /api/shapes/{id}", shapes.HandleUpdate)
	mux.HandleFunc("DELETE /api/shapes/{id}", shapes.HandleDelete)
	mux.HandleFunc("POST /api/shapes/{id}/zone", shapes.HandleSetZone)
	mux.HandleFunc("PUT /api/context", shapes.HandleSetContext)

	// 7. Heatmap Endpoints
	mux.HandleFunc("GET /api/heatmap", heat.HandleHeatmap)
	mux.HandleFunc("GET /api/heatmap/live", heat.HandleLive)
	mux.HandleFunc("GET /api/shading", heat.HandleShading)

	// 8. Placement Endpoint
	mux.HandleFunc("POST /api/placement", place.HandleOptimize)

	// 9. Project Endpoints
	mux.HandleFunc("GET /api/projects", projects.HandleList)
	mux.HandleFunc("POST /api/projects", projects.HandleSave)
	mux.HandleFunc("GET /api/projects/{id}", projects.HandleGet)
	mux.HandleFunc("POST /api/projects/{id}/load", projects.HandleLoad)
	mux.HandleFunc("GET /api/projects/{id}/export", projects.HandleExport)
	mux.HandleFunc("DELETE /api/projects/{id}", projects.HandleDelete)

	// 10. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      logRequests(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
