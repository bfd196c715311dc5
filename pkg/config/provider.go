package config

import (
	"context"
	"strconv"

	"sightline/pkg/store"
)

// Provider defines the interface for accessing unified configuration:
// static file config overridden by values the user tuned at runtime.
type Provider interface {
	ViewerHeightFt(ctx context.Context) float64
	TargetHeightFt(ctx context.Context) float64
	SampleStepPx(ctx context.Context) float64
	Passes(ctx context.Context) int
	ShowShadingLayer(ctx context.Context) bool
	ActiveProjectID(ctx context.Context) string

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

// --- Implementations ---

func (p *UnifiedProvider) ViewerHeightFt(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyViewerHeightFt, p.base.Visibility.ViewerHeightFt)
}

func (p *UnifiedProvider) TargetHeightFt(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyTargetHeightFt, p.base.Visibility.TargetHeightFt)
}

func (p *UnifiedProvider) SampleStepPx(ctx context.Context) float64 {
	step := p.getFloat64(ctx, KeySampleStepPx, p.base.Visibility.SampleStepPx)
	if step < 1 {
		step = 1
	}
	return step
}

func (p *UnifiedProvider) Passes(ctx context.Context) int {
	passes := p.getInt(ctx, KeyPasses, p.base.Visibility.Passes)
	if passes < 1 {
		passes = 1
	}
	return passes
}

func (p *UnifiedProvider) ShowShadingLayer(ctx context.Context) bool {
	return p.getBool(ctx, KeyShowShading, false)
}

func (p *UnifiedProvider) ActiveProjectID(ctx context.Context) string {
	return p.getString(ctx, KeyActiveProjectID, "")
}

// --- Helpers ---

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getInt(ctx context.Context, key string, fallback int) int {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				return i
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}
