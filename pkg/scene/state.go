package scene

import (
	"fmt"
	"sync"
)

// State is the single mutable aggregate owning the live scene: drawn zones
// plus 3D context objects. All mutation goes through named transition
// methods; readers take a Snapshot and never see a half-applied edit.
//
// Every transition bumps the revision. Long-running computations capture
// the revision they started from and treat a mismatch as supersession.
type State struct {
	mu        sync.RWMutex
	rev       int64
	shapes    []Shape
	buildings []Building
	trees     []Tree
	signs     []Sign
}

// NewState creates an empty scene.
func NewState() *State {
	return &State{}
}

// Snapshot is an immutable copy of the scene at one revision.
type Snapshot struct {
	Revision  int64      `json:"revision"`
	Shapes    []Shape    `json:"shapes"`
	Buildings []Building `json:"buildings"`
	Trees     []Tree     `json:"trees"`
	Signs     []Sign     `json:"signs"`
}

// Snapshot returns a deep-enough copy of the scene for read-only use.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Revision:  s.rev,
		Shapes:    append([]Shape(nil), s.shapes...),
		Buildings: append([]Building(nil), s.buildings...),
		Trees:     append([]Tree(nil), s.trees...),
		Signs:     append([]Sign(nil), s.signs...),
	}
}

// Revision returns the current revision.
func (s *State) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// AddShape appends a new zone.
func (s *State) AddShape(sh Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shapes = append(s.shapes, sh)
	s.rev++
}

// UpdateShape replaces the shape with the same ID.
func (s *State) UpdateShape(sh Shape) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shapes {
		if s.shapes[i].ID == sh.ID {
			s.shapes[i] = sh
			s.rev++
			return nil
		}
	}
	return fmt.Errorf("shape %q not found", sh.ID)
}

// SetShapeZone reclassifies a shape, enforcing the viewer-metadata
// stripping invariant.
func (s *State) SetShapeZone(id string, zone Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shapes {
		if s.shapes[i].ID == id {
			s.shapes[i].SetZone(zone)
			s.rev++
			return nil
		}
	}
	return fmt.Errorf("shape %q not found", id)
}

// RemoveShape deletes a shape by ID. Removing a missing shape is a no-op.
func (s *State) RemoveShape(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shapes {
		if s.shapes[i].ID == id {
			s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
			s.rev++
			return
		}
	}
}

// ReplaceShapes swaps the whole zone list, e.g. on project load.
func (s *State) ReplaceShapes(shapes []Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shapes = append([]Shape(nil), shapes...)
	s.rev++
}

// SetContext replaces the 3D context objects in one transition.
func (s *State) SetContext(buildings []Building, trees []Tree, signs []Sign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildings = append([]Building(nil), buildings...)
	s.trees = append([]Tree(nil), trees...)
	s.signs = append([]Sign(nil), signs...)
	s.rev++
}

// ShapesByZone filters a snapshot's shapes.
func (snap Snapshot) ShapesByZone(zone Zone) []Shape {
	var out []Shape
	for _, sh := range snap.Shapes {
		if sh.Zone == zone {
			out = append(out, sh)
		}
	}
	return out
}
