package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"sightline/pkg/scene"
	"sightline/pkg/visibility"
)

func sceneWithViewerAndCandidate(app *App) {
	app.Scene.AddShape(scene.NewRect(scene.ZoneViewer, 5, 40, 10, 10))
	app.Scene.AddShape(scene.NewRect(scene.ZoneCandidate, 60, 40, 20, 20))
}

func TestHeatmapReturnsScoredCells(t *testing.T) {
	app, _ := newTestApp(t)
	sceneWithViewerAndCandidate(app)
	h := NewHeatmapHandler(app)

	rec := httptest.NewRecorder()
	h.HandleHeatmap(rec, httptest.NewRequest(http.MethodGet, "/api/heatmap", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp HeatmapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Superseded {
		t.Fatal("run was superseded without a competing computation")
	}
	if len(resp.Cells) == 0 {
		t.Fatal("no cells for a populated candidate zone")
	}
	for _, c := range resp.Cells {
		if c.Score < 0 || c.Score > 1 {
			t.Errorf("score %v outside [0,1] at %+v", c.Score, c.Pixel)
		}
	}
}

func TestHeatmapWithoutFrameIs409(t *testing.T) {
	st := newMemStore()
	app := NewApp(nil, st, nil)
	h := NewHeatmapHandler(app)

	rec := httptest.NewRecorder()
	h.HandleHeatmap(rec, httptest.NewRequest(http.MethodGet, "/api/heatmap", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestHeatmapLiveStreamsEveryPass(t *testing.T) {
	app, _ := newTestApp(t)
	sceneWithViewerAndCandidate(app)
	h := NewHeatmapHandler(app)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleLive))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/heatmap/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	wantPasses := app.CfgProv.Passes(t.Context())
	var updates []visibility.Update
	for {
		var u visibility.Update
		if err := conn.ReadJSON(&u); err != nil {
			break // normal closure after the final pass
		}
		updates = append(updates, u)
	}

	if len(updates) != wantPasses {
		t.Fatalf("streamed %d updates, want %d", len(updates), wantPasses)
	}
	for i, u := range updates {
		if u.Pass != i+1 {
			t.Errorf("update %d has pass %d", i, u.Pass)
		}
	}
	last := updates[len(updates)-1]
	if !last.Final {
		t.Error("last update not marked final")
	}
	if len(updates) > 1 && updates[0].StepPx <= last.StepPx {
		t.Errorf("step did not refine: first %v, last %v", updates[0].StepPx, last.StepPx)
	}
}

func TestShadingComplementsHeatmap(t *testing.T) {
	app, _ := newTestApp(t)
	sceneWithViewerAndCandidate(app)
	h := NewHeatmapHandler(app)

	rec := httptest.NewRecorder()
	h.HandleShading(rec, httptest.NewRequest(http.MethodGet, "/api/shading", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Cells []visibility.HeatmapCell `json:"cells"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, c := range resp.Cells {
		if c.Score <= 0 || c.Score > 1 {
			t.Errorf("shade %v outside (0,1] at %+v", c.Score, c.Pixel)
		}
	}
}
