package scene

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"sightline/pkg/geo"
)

// Kind discriminates the shape geometry variants.
type Kind string

const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindPolygon Kind = "polygon"
)

// Zone classifies what a shape means to the visibility engine.
type Zone string

const (
	ZoneViewer    Zone = "viewer"
	ZoneCandidate Zone = "candidate"
	ZoneObstacle  Zone = "obstacle"
)

// Direction is a viewer's viewing cone: a center angle and the full cone
// width, both in radians. Angles follow the canvas convention (0 along +X,
// Y down).
type Direction struct {
	AngleRad float64 `json:"angle_rad"`
	ConeRad  float64 `json:"cone_rad"`
}

// Shape is a user-drawn zone: a tagged union over rect, ellipse, and
// polygon geometry. Only the fields of the active Kind are meaningful.
// Direction and Anchor are carried by viewer zones only; SetZone strips
// them when the zone stops being a viewer.
type Shape struct {
	ID      string  `json:"id"`
	Kind    Kind    `json:"kind"`
	Zone    Zone    `json:"zone"`
	Opacity float64 `json:"opacity"`

	// Rect geometry.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	W float64 `json:"w,omitempty"`
	H float64 `json:"h,omitempty"`

	// Ellipse geometry.
	CX float64 `json:"cx,omitempty"`
	CY float64 `json:"cy,omitempty"`
	RX float64 `json:"rx,omitempty"`
	RY float64 `json:"ry,omitempty"`

	// Polygon geometry.
	Points []geo.Pixel `json:"points,omitempty"`

	// Viewer-only metadata.
	Direction *Direction `json:"direction,omitempty"`
	Anchor    *geo.Pixel `json:"viewer_anchor,omitempty"`
	Weight    float64    `json:"weight,omitempty"`
}

// NewRect creates a rectangular zone.
func NewRect(zone Zone, x, y, w, h float64) Shape {
	return Shape{ID: uuid.NewString(), Kind: KindRect, Zone: zone, Opacity: 1, X: x, Y: y, W: w, H: h}
}

// NewEllipse creates an elliptical zone.
func NewEllipse(zone Zone, cx, cy, rx, ry float64) Shape {
	return Shape{ID: uuid.NewString(), Kind: KindEllipse, Zone: zone, Opacity: 1, CX: cx, CY: cy, RX: rx, RY: ry}
}

// NewPolygon creates a polygonal zone from its vertices.
func NewPolygon(zone Zone, points []geo.Pixel) Shape {
	return Shape{ID: uuid.NewString(), Kind: KindPolygon, Zone: zone, Opacity: 1, Points: points}
}

// SetZone changes the shape's zone. Moving away from viewer strips the
// directional metadata; only viewers carry a cone and anchor.
func (s *Shape) SetZone(z Zone) {
	s.Zone = z
	if z != ZoneViewer {
		s.Direction = nil
		s.Anchor = nil
		s.Weight = 0
	}
}

// ViewerWeight returns the shape's sampling weight, defaulting to 1.
func (s *Shape) ViewerWeight() float64 {
	if s.Weight <= 0 {
		return 1
	}
	return s.Weight
}

// Contains reports whether the pixel lies inside the shape. Exhaustive over
// kinds; unknown kinds contain nothing.
func (s *Shape) Contains(p geo.Pixel) bool {
	switch s.Kind {
	case KindRect:
		return p.X >= s.X && p.X <= s.X+s.W && p.Y >= s.Y && p.Y <= s.Y+s.H
	case KindEllipse:
		if s.RX <= 0 || s.RY <= 0 {
			return false
		}
		dx := (p.X - s.CX) / s.RX
		dy := (p.Y - s.CY) / s.RY
		return dx*dx+dy*dy <= 1
	case KindPolygon:
		if len(s.Points) < 3 {
			return false
		}
		return planar.PolygonContains(orb.Polygon{s.Ring()}, orb.Point{p.X, p.Y})
	default:
		return false
	}
}

// Ring returns the shape's outline as a closed orb ring. Rects and ellipses
// are converted (ellipses as their bounding outline segments are not needed
// by callers; they use Contains/Bound directly), polygons verbatim.
func (s *Shape) Ring() orb.Ring {
	switch s.Kind {
	case KindRect:
		return orb.Ring{
			{s.X, s.Y}, {s.X + s.W, s.Y}, {s.X + s.W, s.Y + s.H}, {s.X, s.Y + s.H}, {s.X, s.Y},
		}
	case KindPolygon:
		ring := make(orb.Ring, 0, len(s.Points)+1)
		for _, p := range s.Points {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		return ring
	default:
		return nil
	}
}

// Bound returns the shape's axis-aligned bounding box. Used as the broad
// phase for segment-obstacle tests.
func (s *Shape) Bound() orb.Bound {
	switch s.Kind {
	case KindRect:
		return orb.Bound{Min: orb.Point{s.X, s.Y}, Max: orb.Point{s.X + s.W, s.Y + s.H}}
	case KindEllipse:
		return orb.Bound{Min: orb.Point{s.CX - s.RX, s.CY - s.RY}, Max: orb.Point{s.CX + s.RX, s.CY + s.RY}}
	case KindPolygon:
		return s.Ring().Bound()
	default:
		return orb.Bound{}
	}
}

// AnchorPixel returns the cone apex: the explicit viewer anchor when set,
// otherwise the shape centroid.
func (s *Shape) AnchorPixel() geo.Pixel {
	if s.Anchor != nil {
		return *s.Anchor
	}
	return s.Centroid()
}

// Centroid returns the center of the shape's bounding box.
func (s *Shape) Centroid() geo.Pixel {
	b := s.Bound()
	return geo.Pixel{X: (b.Min[0] + b.Max[0]) / 2, Y: (b.Min[1] + b.Max[1]) / 2}
}
