package api

import (
	"context"
	"fmt"
	"sync"

	"sightline/pkg/config"
	"sightline/pkg/geo"
	"sightline/pkg/scene"
	"sightline/pkg/store"
	"sightline/pkg/terrain"
	"sightline/pkg/visibility"
)

// App aggregates the live session every handler operates on: the scene,
// the georeferenced frame with its terrain, and the heatmap runner. One
// App per process; handlers share it.
type App struct {
	CfgProv config.Provider
	Store   store.Store
	Scene   *scene.State
	Runner  *visibility.Runner
	Fetcher *terrain.Fetcher
	Heights []terrain.HeightProvider

	mu          sync.RWMutex
	ref         geo.GeoReference
	mapper      *geo.Mapper
	combined    *geo.ElevationGrid
	combinedRev int64
	lastCells   []visibility.HeatmapCell
}

// NewApp creates the shared application state.
func NewApp(cfgProv config.Provider, st store.Store, fetcher *terrain.Fetcher, heights ...terrain.HeightProvider) *App {
	return &App{
		CfgProv: cfgProv,
		Store:   st,
		Scene:   scene.NewState(),
		Runner:  visibility.NewRunner(),
		Fetcher: fetcher,
		Heights: heights,
	}
}

// SetFrame georeferences a new frame and fetches its terrain grid. Each
// progressive pass swaps in an improved mapper so intermediate heatmaps
// can already use partial terrain. Blocks until the final grid is in.
func (a *App) SetFrame(ctx context.Context, ref geo.GeoReference) error {
	if !ref.Valid() {
		return fmt.Errorf("invalid frame georeference: %+v", ref)
	}
	if a.Fetcher == nil {
		return fmt.Errorf("no elevation fetcher configured")
	}

	cfg := a.CfgProv.AppConfig().Elevation
	_, err := a.Fetcher.FetchGrid(ctx, ref, cfg.GridRows, cfg.GridCols, cfg.Passes, func(grid *geo.ElevationGrid) {
		a.SetTerrain(grid, ref)
	})
	return err
}

// SetTerrain installs a terrain grid for the frame directly, invalidating
// the combined surface and any in-flight heatmap.
func (a *App) SetTerrain(grid *geo.ElevationGrid, ref geo.GeoReference) {
	a.mu.Lock()
	a.ref = ref
	a.mapper = geo.NewMapper(grid, ref)
	a.combined = nil
	a.combinedRev = -1
	a.lastCells = nil
	a.mu.Unlock()
	a.Runner.Supersede()
}

// Reference returns the current frame georeference, zero when no frame is
// set.
func (a *App) Reference() geo.GeoReference {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ref
}

// Mapper returns the current frame mapper, nil when no frame is set.
func (a *App) Mapper() *geo.Mapper {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mapper
}

// Invalidate supersedes any in-flight heatmap computation. Handlers call
// it on every scene or settings mutation.
func (a *App) Invalidate() {
	a.Runner.Supersede()
}

// Surface returns the mapper, occlusion surface, and the scene snapshot
// the surface was built from. The combined grid is cached by scene
// revision and rebuilt lazily after edits.
func (a *App) Surface(ctx context.Context) (*geo.Mapper, visibility.Surface, scene.Snapshot, error) {
	a.mu.RLock()
	m := a.mapper
	a.mu.RUnlock()
	if m == nil {
		return nil, nil, scene.Snapshot{}, fmt.Errorf("no frame georeferenced yet")
	}

	snap := a.Scene.Snapshot()

	a.mu.RLock()
	cached := a.combined
	cachedRev := a.combinedRev
	a.mu.RUnlock()
	if cached != nil && cachedRev == snap.Revision {
		return m, cached, snap, nil
	}

	heights := a.CfgProv.AppConfig().Heights
	buildings := terrain.ResolveHeights(ctx, snap.Buildings, float64(heights.DefaultBuilding), a.Heights...)
	combined := terrain.BuildCombined(m, terrain.BuildInput{
		Buildings:              buildings,
		Trees:                  snap.Trees,
		Signs:                  snap.Signs,
		Obstacles:              snap.ShapesByZone(scene.ZoneObstacle),
		DefaultBuildingHeightM: float64(heights.DefaultBuilding),
		ObstacleHeightM:        float64(heights.Obstacle),
	})
	if combined == nil {
		return nil, nil, snap, fmt.Errorf("terrain grid is empty")
	}

	a.mu.Lock()
	a.combined = combined
	a.combinedRev = snap.Revision
	a.mu.Unlock()
	return m, combined, snap, nil
}

// ComputeHeatmap runs a fresh progressive heatmap over the current scene,
// publishing every pass. It returns the final cells, or nil when the run
// was superseded by a newer computation.
func (a *App) ComputeHeatmap(ctx context.Context, publish func(visibility.Update)) ([]visibility.HeatmapCell, error) {
	m, surface, snap, err := a.Surface(ctx)
	if err != nil {
		return nil, err
	}

	token := a.Runner.Supersede()
	cells := a.Runner.Run(ctx, token, visibility.RunRequest{
		Mapper:        m,
		Shapes:        snap.Shapes,
		Surface:       surface,
		TargetStepPx:  a.CfgProv.SampleStepPx(ctx),
		Passes:        a.CfgProv.Passes(ctx),
		TargetHeightM: geo.FeetToMeters(a.CfgProv.TargetHeightFt(ctx)),
		ViewerHeightM: geo.FeetToMeters(a.CfgProv.ViewerHeightFt(ctx)),
	}, publish)

	if cells != nil {
		a.mu.Lock()
		a.lastCells = cells
		a.mu.Unlock()
	}
	return cells, nil
}

// LastCells returns the most recent completed heatmap, nil when none has
// finished yet.
func (a *App) LastCells() []visibility.HeatmapCell {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastCells
}
