package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sightline/pkg/optimizer"
	"sightline/pkg/scene"
)

func TestPlacementFindsSpot(t *testing.T) {
	app, _ := newTestApp(t)
	sceneWithViewerAndCandidate(app)
	h := NewPlacementHandler(app)

	// Footprint small relative to the candidate zone at ~70 m/px scale.
	body := `{"width_m": 100, "depth_m": 60, "rotation_step_deg": 90, "placement_samples": 4}`
	rec := httptest.NewRecorder()
	h.HandleOptimize(rec, httptest.NewRequest(http.MethodPost, "/api/placement", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var p optimizer.Placement
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.TotalScore < 0 || p.TotalScore > 1 {
		t.Errorf("total score %v outside [0,1]", p.TotalScore)
	}
	if len(p.FaceScores) != 4 {
		t.Errorf("face scores = %d, want 4", len(p.FaceScores))
	}
	if p.CandidateID == "" {
		t.Error("placement has no candidate ID")
	}
}

func TestPlacementRejectsBadDimensions(t *testing.T) {
	app, _ := newTestApp(t)
	sceneWithViewerAndCandidate(app)
	h := NewPlacementHandler(app)

	rec := httptest.NewRecorder()
	h.HandleOptimize(rec, httptest.NewRequest(http.MethodPost, "/api/placement", strings.NewReader(`{"width_m": 0, "depth_m": 5}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestPlacementPriorityAndPinExclusive(t *testing.T) {
	app, _ := newTestApp(t)
	sceneWithViewerAndCandidate(app)
	h := NewPlacementHandler(app)

	body := `{"width_m": 10, "depth_m": 6, "pinned_face": 1, "face_priority": {"primary_edge_index": 0, "arc_deg": 180}}`
	rec := httptest.NewRecorder()
	h.HandleOptimize(rec, httptest.NewRequest(http.MethodPost, "/api/placement", strings.NewReader(body)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestPlacementWithoutCandidatesIs422(t *testing.T) {
	app, _ := newTestApp(t)
	app.Scene.AddShape(scene.NewRect(scene.ZoneViewer, 5, 40, 10, 10))
	h := NewPlacementHandler(app)

	rec := httptest.NewRecorder()
	h.HandleOptimize(rec, httptest.NewRequest(http.MethodPost, "/api/placement", strings.NewReader(`{"width_m": 10, "depth_m": 6}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestPlacementNoFitIs404(t *testing.T) {
	app, _ := newTestApp(t)
	app.Scene.AddShape(scene.NewRect(scene.ZoneViewer, 5, 40, 10, 10))
	// 2x2 px candidate cannot contain any realistic footprint.
	app.Scene.AddShape(scene.NewRect(scene.ZoneCandidate, 60, 40, 2, 2))
	h := NewPlacementHandler(app)

	body := `{"width_m": 2000, "depth_m": 2000, "rotation_step_deg": 90, "placement_samples": 2}`
	rec := httptest.NewRecorder()
	h.HandleOptimize(rec, httptest.NewRequest(http.MethodPost, "/api/placement", strings.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
