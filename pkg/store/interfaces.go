package store

import (
	"context"
	"time"
)

// Project is a persisted scene: frame georeference, shapes and structures
// serialized as one JSON document.
type Project struct {
	ID        string
	Name      string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectStore handles project persistence.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	SaveProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error
}

// ElevationCacheStore persists fetched elevation samples keyed by H3 cell,
// so a reopened frame does not re-query the lookup service.
type ElevationCacheStore interface {
	GetElevation(ctx context.Context, key string) (float64, bool)
	SetElevation(ctx context.Context, key string, elevationM float64) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
