package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"sightline/pkg/config"
	"sightline/pkg/geo"
	"sightline/pkg/scene"
	"sightline/pkg/store"
)

// ProjectsHandler persists and restores whole working sessions.
type ProjectsHandler struct {
	app *App
}

// NewProjectsHandler creates a new ProjectsHandler.
func NewProjectsHandler(app *App) *ProjectsHandler {
	return &ProjectsHandler{app: app}
}

// projectDocument is the serialized session: the frame georeference plus
// the full scene. Stored compressed as the project's data blob.
type projectDocument struct {
	Reference geo.GeoReference `json:"reference"`
	Shapes    []scene.Shape    `json:"shapes"`
	Buildings []scene.Building `json:"buildings"`
	Trees     []scene.Tree     `json:"trees"`
	Signs     []scene.Sign     `json:"signs"`
}

// ProjectMeta is the listing view of a project, without its data blob.
type ProjectMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveProjectRequest names the project to save the current session as.
type SaveProjectRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// HandleList returns all saved projects, newest first.
func (h *ProjectsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.app.Store.ListProjects(r.Context())
	if err != nil {
		slog.Error("Failed to list projects", "error", err)
		http.Error(w, "Failed to list projects", http.StatusInternalServerError)
		return
	}

	metas := make([]ProjectMeta, 0, len(projects))
	for _, p := range projects {
		metas = append(metas, ProjectMeta{
			ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(metas); err != nil {
		slog.Error("Failed to encode project list", "error", err)
	}
}

// HandleSave snapshots the current session under the given name. Posting
// an existing ID overwrites that project.
func (h *ProjectsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusUnprocessableEntity)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	snap := h.app.Scene.Snapshot()
	doc := projectDocument{
		Reference: h.app.Reference(),
		Shapes:    snap.Shapes,
		Buildings: snap.Buildings,
		Trees:     snap.Trees,
		Signs:     snap.Signs,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		slog.Error("Failed to serialize project", "error", err)
		http.Error(w, "Failed to serialize project", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	p := &store.Project{ID: req.ID, Name: req.Name, Data: data}
	if err := h.app.Store.SaveProject(ctx, p); err != nil {
		slog.Error("Failed to save project", "id", req.ID, "error", err)
		http.Error(w, "Failed to save project", http.StatusInternalServerError)
		return
	}
	if err := h.app.Store.SetState(ctx, config.KeyActiveProjectID, req.ID); err != nil {
		slog.Error("Failed to record active project", "error", err)
	}

	slog.Info("Project saved", "id", req.ID, "name", req.Name, "shapes", len(snap.Shapes))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(ProjectMeta{ID: p.ID, Name: p.Name}); err != nil {
		slog.Error("Failed to encode project response", "error", err)
	}
}

// HandleGet returns one project's full document.
func (h *ProjectsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.app.Store.GetProject(r.Context(), id)
	if err != nil {
		slog.Error("Failed to read project", "id", id, "error", err)
		http.Error(w, "Failed to read project", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	var doc projectDocument
	if err := json.Unmarshal(p.Data, &doc); err != nil {
		slog.Error("Project data corrupt", "id", id, "error", err)
		http.Error(w, "Project data corrupt", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"id":         p.ID,
		"name":       p.Name,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
		"document":   doc,
	}); err != nil {
		slog.Error("Failed to encode project", "error", err)
	}
}

// HandleExport returns a saved project's zones as a GeoJSON
// FeatureCollection in geographic coordinates, for use in GIS tools.
// Requires the project to carry a valid georeference.
func (h *ProjectsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.app.Store.GetProject(r.Context(), id)
	if err != nil {
		slog.Error("Failed to read project", "id", id, "error", err)
		http.Error(w, "Failed to read project", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	var doc projectDocument
	if err := json.Unmarshal(p.Data, &doc); err != nil {
		slog.Error("Project data corrupt", "id", id, "error", err)
		http.Error(w, "Project data corrupt", http.StatusInternalServerError)
		return
	}
	if !doc.Reference.Valid() {
		http.Error(w, "Project has no georeference", http.StatusConflict)
		return
	}

	fc := exportFeatureCollection(&doc)
	data, err := fc.MarshalJSON()
	if err != nil {
		slog.Error("Failed to marshal GeoJSON", "id", id, "error", err)
		http.Error(w, "Failed to marshal GeoJSON", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write GeoJSON response", "error", err)
	}
}

// exportFeatureCollection projects every zone outline into lat/lon. Only
// ring-backed shapes export; ellipses are approximated by their bounding
// outline through Ring being nil, so they are skipped.
func exportFeatureCollection(doc *projectDocument) *geojson.FeatureCollection {
	m := geo.NewMapper(nil, doc.Reference)
	fc := geojson.NewFeatureCollection()
	for i := range doc.Shapes {
		sh := &doc.Shapes[i]
		ring := sh.Ring()
		if len(ring) < 4 {
			continue
		}
		geoRing := make(orb.Ring, len(ring))
		for j, pt := range ring {
			loc := m.PixelToLatLon(pt[0], pt[1])
			geoRing[j] = orb.Point{loc.Lon, loc.Lat}
		}
		f := geojson.NewFeature(orb.Polygon{geoRing})
		f.Properties["id"] = sh.ID
		f.Properties["kind"] = string(sh.Kind)
		f.Properties["zone"] = string(sh.Zone)
		fc.Append(f)
	}
	return fc
}

// HandleLoad restores a saved session: the scene is replaced in full and,
// when the project carries a valid georeference, the frame is re-fetched.
func (h *ProjectsHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	p, err := h.app.Store.GetProject(ctx, id)
	if err != nil {
		slog.Error("Failed to read project", "id", id, "error", err)
		http.Error(w, "Failed to read project", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	var doc projectDocument
	if err := json.Unmarshal(p.Data, &doc); err != nil {
		slog.Error("Project data corrupt", "id", id, "error", err)
		http.Error(w, "Project data corrupt", http.StatusInternalServerError)
		return
	}

	h.app.Scene.ReplaceShapes(doc.Shapes)
	h.app.Scene.SetContext(doc.Buildings, doc.Trees, doc.Signs)
	h.app.Invalidate()

	// Re-fetch terrain only when the project frames a different area.
	if doc.Reference.Valid() && doc.Reference != h.app.Reference() {
		if err := h.app.SetFrame(ctx, doc.Reference); err != nil {
			slog.Error("Failed to restore project terrain", "id", id, "error", err)
			http.Error(w, "Terrain fetch failed", http.StatusBadGateway)
			return
		}
	}

	if err := h.app.Store.SetState(ctx, config.KeyActiveProjectID, id); err != nil {
		slog.Error("Failed to record active project", "error", err)
	}

	slog.Info("Project loaded", "id", id, "name", p.Name, "shapes", len(doc.Shapes))
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes a saved project. The live session is untouched.
func (h *ProjectsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	if err := h.app.Store.DeleteProject(ctx, id); err != nil {
		slog.Error("Failed to delete project", "id", id, "error", err)
		http.Error(w, "Failed to delete project", http.StatusInternalServerError)
		return
	}

	if active, ok := h.app.Store.GetState(ctx, config.KeyActiveProjectID); ok && active == id {
		if err := h.app.Store.DeleteState(ctx, config.KeyActiveProjectID); err != nil {
			slog.Error("Failed to clear active project", "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
