package scene

import (
	"testing"

	"sightline/pkg/geo"
)

func TestContains(t *testing.T) {
	rect := NewRect(ZoneObstacle, 10, 10, 20, 10)
	ellipse := NewEllipse(ZoneObstacle, 50, 50, 10, 5)
	poly := NewPolygon(ZoneObstacle, []geo.Pixel{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 10}})

	tests := []struct {
		name  string
		shape Shape
		p     geo.Pixel
		want  bool
	}{
		{"rect inside", rect, geo.Pixel{X: 15, Y: 12}, true},
		{"rect edge", rect, geo.Pixel{X: 10, Y: 10}, true},
		{"rect outside", rect, geo.Pixel{X: 31, Y: 12}, false},
		{"ellipse center", ellipse, geo.Pixel{X: 50, Y: 50}, true},
		{"ellipse on major axis", ellipse, geo.Pixel{X: 59, Y: 50}, true},
		{"ellipse outside minor axis", ellipse, geo.Pixel{X: 50, Y: 56}, false},
		{"triangle inside", poly, geo.Pixel{X: 5, Y: 3}, true},
		{"triangle outside", poly, geo.Pixel{X: 0, Y: 9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestDegenerateShapesContainNothing(t *testing.T) {
	twoPoints := NewPolygon(ZoneObstacle, []geo.Pixel{{X: 0, Y: 0}, {X: 10, Y: 0}})
	if twoPoints.Contains(geo.Pixel{X: 5, Y: 0}) {
		t.Error("2-point polygon should contain nothing")
	}
	flatEllipse := NewEllipse(ZoneObstacle, 0, 0, 0, 5)
	if flatEllipse.Contains(geo.Pixel{X: 0, Y: 0}) {
		t.Error("zero-radius ellipse should contain nothing")
	}
}

func TestSetZoneStripsViewerMetadata(t *testing.T) {
	sh := NewRect(ZoneViewer, 0, 0, 10, 10)
	sh.Direction = &Direction{AngleRad: 1, ConeRad: 0.5}
	sh.Anchor = &geo.Pixel{X: 5, Y: 5}
	sh.Weight = 2

	sh.SetZone(ZoneObstacle)
	if sh.Direction != nil || sh.Anchor != nil || sh.Weight != 0 {
		t.Error("non-viewer shape must not carry direction, anchor, or weight")
	}

	// Becoming a viewer again does not resurrect them.
	sh.SetZone(ZoneViewer)
	if sh.Direction != nil || sh.Anchor != nil {
		t.Error("metadata must not survive a zone round trip")
	}
}

func TestAnchorPixel(t *testing.T) {
	sh := NewRect(ZoneViewer, 0, 0, 10, 20)
	if got := sh.AnchorPixel(); got != (geo.Pixel{X: 5, Y: 10}) {
		t.Errorf("default anchor = %v, want centroid", got)
	}
	sh.Anchor = &geo.Pixel{X: 1, Y: 2}
	if got := sh.AnchorPixel(); got != (geo.Pixel{X: 1, Y: 2}) {
		t.Errorf("explicit anchor = %v, want (1,2)", got)
	}
}

func TestBound(t *testing.T) {
	ellipse := NewEllipse(ZoneViewer, 50, 50, 10, 5)
	b := ellipse.Bound()
	if b.Min[0] != 40 || b.Min[1] != 45 || b.Max[0] != 60 || b.Max[1] != 55 {
		t.Errorf("ellipse bound = %v", b)
	}
}
