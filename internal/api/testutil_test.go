package api

import (
	"context"
	"sync"
	"testing"

	"sightline/pkg/config"
	"sightline/pkg/geo"
	"sightline/pkg/store"
)

// memStore is an in-memory store.Store for handler tests.
type memStore struct {
	mu       sync.Mutex
	projects map[string]*store.Project
	state    map[string]string
	elev     map[string]float64
}

func newMemStore() *memStore {
	return &memStore{
		projects: make(map[string]*store.Project),
		state:    make(map[string]string),
		elev:     make(map[string]float64),
	}
}

func (m *memStore) GetProject(ctx context.Context, id string) (*store.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListProjects(ctx context.Context) ([]*store.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.Project, 0, len(m.projects))
	for _, p := range m.projects {
		cp := *p
		cp.Data = nil
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) SaveProject(ctx context.Context, p *store.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *memStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	return nil
}

func (m *memStore) GetElevation(ctx context.Context, key string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.elev[key]
	return v, ok
}

func (m *memStore) SetElevation(ctx context.Context, key string, elevationM float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elev[key] = elevationM
	return nil
}

func (m *memStore) GetState(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state[key]
	return v, ok
}

func (m *memStore) SetState(ctx context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = val
	return nil
}

func (m *memStore) DeleteState(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

func (m *memStore) Close() error { return nil }

// newTestApp builds an App over flat terrain with a georeferenced
// 100x100 px frame and an in-memory store.
func newTestApp(t *testing.T) (*App, *memStore) {
	t.Helper()

	rows, cols := 11, 11
	values := make([][]float64, rows)
	lats := make([]float64, rows)
	lons := make([]float64, cols)
	for r := 0; r < rows; r++ {
		values[r] = make([]float64, cols)
		lats[r] = 50.1 - 0.01*float64(r)
	}
	for c := 0; c < cols; c++ {
		lons[c] = 8.0 + 0.01*float64(c)
	}
	grid, err := geo.NewElevationGrid(values, lats, lons)
	if err != nil {
		t.Fatalf("NewElevationGrid: %v", err)
	}

	ref := geo.GeoReference{
		WidthPx: 100, HeightPx: 100,
		LatMaxNorth: 50.1, LatMinSouth: 50.0,
		LonMinWest: 8.0, LonMaxEast: 8.1,
	}

	st := newMemStore()
	cfg := config.DefaultConfig()
	app := NewApp(config.NewProvider(cfg, st), st, nil)
	app.SetTerrain(grid, ref)
	return app, st
}
