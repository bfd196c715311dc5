package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sightline/pkg/scene"
)

func TestShapeCreateAssignsID(t *testing.T) {
	app, _ := newTestApp(t)
	h := NewShapesHandler(app)

	body := `{"kind":"rect","zone":"viewer","x":10,"y":10,"w":20,"h":20}`
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, httptest.NewRequest(http.MethodPost, "/api/shapes", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var sh scene.Shape
	if err := json.Unmarshal(rec.Body.Bytes(), &sh); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sh.ID == "" {
		t.Error("shape was not assigned an ID")
	}
	if sh.Opacity != 1 {
		t.Errorf("opacity = %v, want default 1", sh.Opacity)
	}

	snap := app.Scene.Snapshot()
	if len(snap.Shapes) != 1 {
		t.Fatalf("scene has %d shapes, want 1", len(snap.Shapes))
	}
}

func TestShapeCreateRejectsBadGeometry(t *testing.T) {
	app, _ := newTestApp(t)
	h := NewShapesHandler(app)

	cases := []struct {
		name string
		body string
	}{
		{"zero-size rect", `{"kind":"rect","zone":"viewer","x":0,"y":0,"w":0,"h":10}`},
		{"two-point polygon", `{"kind":"polygon","zone":"obstacle","points":[{"x":0,"y":0},{"x":1,"y":1}]}`},
		{"unknown kind", `{"kind":"blob","zone":"viewer"}`},
		{"unknown zone", `{"kind":"rect","zone":"audience","x":0,"y":0,"w":10,"h":10}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleCreate(rec, httptest.NewRequest(http.MethodPost, "/api/shapes", strings.NewReader(tc.body)))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestShapeUpdateUnknownIDIs404(t *testing.T) {
	app, _ := newTestApp(t)
	h := NewShapesHandler(app)

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/shapes/{id}", h.HandleUpdate)

	body := `{"kind":"rect","zone":"viewer","x":0,"y":0,"w":10,"h":10}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/shapes/nope", strings.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSetZoneStripsViewerMetadata(t *testing.T) {
	app, _ := newTestApp(t)
	h := NewShapesHandler(app)

	sh := scene.NewRect(scene.ZoneViewer, 10, 10, 20, 20)
	sh.Direction = &scene.Direction{AngleRad: 1, ConeRad: 0.5}
	sh.Weight = 2
	app.Scene.AddShape(sh)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/shapes/{id}/zone", h.HandleSetZone)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/shapes/"+sh.ID+"/zone", strings.NewReader(`{"zone":"obstacle"}`)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	got := app.Scene.Snapshot().Shapes[0]
	if got.Zone != scene.ZoneObstacle {
		t.Errorf("zone = %v, want obstacle", got.Zone)
	}
	if got.Direction != nil || got.Weight != 0 {
		t.Error("viewer metadata survived reclassification")
	}
}

func TestDeleteMissingShapeSucceeds(t *testing.T) {
	app, _ := newTestApp(t)
	h := NewShapesHandler(app)

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/shapes/{id}", h.HandleDelete)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/shapes/ghost", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestSetContextReplacesObjects(t *testing.T) {
	app, _ := newTestApp(t)
	h := NewShapesHandler(app)

	app.Scene.SetContext([]scene.Building{{ID: "old"}}, nil, nil)

	body := `{"buildings":[{"id":"b1","footprint":[{"x":0,"y":0},{"x":5,"y":0},{"x":5,"y":5}],"height_m":12}],"trees":[{"id":"t1","center":{"x":3,"y":3},"crown_radius_m":2,"height_m":8}]}`
	rec := httptest.NewRecorder()
	h.HandleSetContext(rec, httptest.NewRequest(http.MethodPut, "/api/context", strings.NewReader(body)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	snap := app.Scene.Snapshot()
	if len(snap.Buildings) != 1 || snap.Buildings[0].ID != "b1" {
		t.Errorf("buildings = %+v", snap.Buildings)
	}
	if len(snap.Trees) != 1 || snap.Trees[0].HeightM != 8 {
		t.Errorf("trees = %+v", snap.Trees)
	}
	if len(snap.Signs) != 0 {
		t.Errorf("signs = %+v", snap.Signs)
	}
}
