package terrain

import (
	"context"
	"log/slog"

	"sightline/pkg/scene"
)

// HeightProvider resolves effective heights for building IDs. Providers are
// queried in priority order; a provider may resolve any subset of the IDs
// it is asked about.
type HeightProvider interface {
	Name() string
	Heights(ctx context.Context, ids []string) (map[string]float64, error)
}

// StaticHeights is a fixed-table provider, used for user overrides and in
// tests.
type StaticHeights struct {
	Label string
	Table map[string]float64
}

func (s StaticHeights) Name() string { return s.Label }

func (s StaticHeights) Heights(_ context.Context, ids []string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, id := range ids {
		if h, ok := s.Table[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

// ResolveHeights fills in missing building heights from the provider chain.
// The first provider's value wins per building ID; a later provider only
// fills IDs the earlier providers left unresolved. IDs no provider resolves
// fall back to defaultM. A failing provider is logged and skipped, it never
// aborts resolution.
func ResolveHeights(ctx context.Context, buildings []scene.Building, defaultM float64, providers ...HeightProvider) []scene.Building {
	out := append([]scene.Building(nil), buildings...)

	var unresolved []string
	for _, b := range out {
		if b.HeightM <= 0 {
			unresolved = append(unresolved, b.ID)
		}
	}

	resolved := make(map[string]float64)
	for _, p := range providers {
		if len(unresolved) == 0 {
			break
		}
		heights, err := p.Heights(ctx, unresolved)
		if err != nil {
			slog.Warn("height provider failed", "provider", p.Name(), "error", err)
			continue
		}
		var remaining []string
		for _, id := range unresolved {
			if h, ok := heights[id]; ok && h > 0 {
				resolved[id] = h
			} else {
				remaining = append(remaining, id)
			}
		}
		unresolved = remaining
	}

	for i := range out {
		if out[i].HeightM > 0 {
			continue
		}
		if h, ok := resolved[out[i].ID]; ok {
			out[i].HeightM = h
		} else {
			out[i].HeightM = defaultM
		}
	}
	return out
}
