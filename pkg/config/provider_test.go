package config

import (
	"context"
	"testing"
)

// MockStateStore implements store.StateStore for testing.
type MockStateStore struct {
	data map[string]string
}

func NewMockStateStore() *MockStateStore {
	return &MockStateStore{data: make(map[string]string)}
}

func (m *MockStateStore) GetState(ctx context.Context, key string) (string, bool) {
	val, ok := m.data[key]
	return val, ok
}

func (m *MockStateStore) SetState(ctx context.Context, key, val string) error {
	m.data[key] = val
	return nil
}

func (m *MockStateStore) DeleteState(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestUnifiedProvider(t *testing.T) {
	ctx := context.Background()
	baseCfg := DefaultConfig()
	baseCfg.Visibility.ViewerHeightFt = 6.0
	baseCfg.Visibility.SampleStepPx = 8
	baseCfg.Visibility.Passes = 2

	st := NewMockStateStore()
	p := NewProvider(baseCfg, st)

	t.Run("Defaults_And_Fallbacks", func(t *testing.T) {
		if got := p.ViewerHeightFt(ctx); got != 6.0 {
			t.Errorf("ViewerHeightFt = %v, want base 6.0", got)
		}
		if got := p.SampleStepPx(ctx); got != 8 {
			t.Errorf("SampleStepPx = %v, want base 8", got)
		}
		if p.ShowShadingLayer(ctx) {
			t.Error("ShowShadingLayer default should be false")
		}
		if p.ActiveProjectID(ctx) != "" {
			t.Error("ActiveProjectID default should be empty")
		}
	})

	t.Run("Store_Overrides", func(t *testing.T) {
		_ = st.SetState(ctx, KeyViewerHeightFt, "5.5")
		_ = st.SetState(ctx, KeyPasses, "4")
		_ = st.SetState(ctx, KeyShowShading, "true")
		_ = st.SetState(ctx, KeyActiveProjectID, "p1")

		if got := p.ViewerHeightFt(ctx); got != 5.5 {
			t.Errorf("ViewerHeightFt = %v, want override 5.5", got)
		}
		if got := p.Passes(ctx); got != 4 {
			t.Errorf("Passes = %d, want override 4", got)
		}
		if !p.ShowShadingLayer(ctx) {
			t.Error("expected ShowShadingLayer override true")
		}
		if got := p.ActiveProjectID(ctx); got != "p1" {
			t.Errorf("ActiveProjectID = %q, want p1", got)
		}
	})

	t.Run("Invalid_Values_Fall_Back", func(t *testing.T) {
		_ = st.SetState(ctx, KeyViewerHeightFt, "tall")
		if got := p.ViewerHeightFt(ctx); got != 6.0 {
			t.Errorf("ViewerHeightFt = %v, want base 6.0 on parse failure", got)
		}

		// Clamped floor: a nonsense step never goes below one pixel.
		_ = st.SetState(ctx, KeySampleStepPx, "0.25")
		if got := p.SampleStepPx(ctx); got != 1 {
			t.Errorf("SampleStepPx = %v, want clamp to 1", got)
		}
	})

	t.Run("Nil_Store", func(t *testing.T) {
		p := NewProvider(baseCfg, nil)
		if got := p.Passes(ctx); got != 2 {
			t.Errorf("Passes = %d, want base 2 with nil store", got)
		}
	})
}
