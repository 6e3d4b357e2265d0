// Package geom provides the planar geometry used to classify trajectory
// endpoints against access-zone polygons.
//
// Points and rectangles are the r2 types from github.com/golang/geo so that
// bounding-box pruning elsewhere can use r2.Rect directly.
package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// ErrInvalidPolygon is returned by Validate for degenerate polygons.
var ErrInvalidPolygon = errors.New("invalid polygon")

const epsilon = 1e-12

// Polygon is a simple polygon given as an ordered ring of vertices. The ring
// is implicitly closed: the last vertex connects back to the first.
type Polygon []r2.Point

// Validate checks that the polygon has at least three vertices, non-zero
// area and no intersecting non-adjacent edges.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return fmt.Errorf("%w: need at least 3 points, got %d", ErrInvalidPolygon, len(p))
	}
	for i, v := range p {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return fmt.Errorf("%w: point %d is not finite", ErrInvalidPolygon, i)
		}
	}
	if p.SelfIntersects() {
		return fmt.Errorf("%w: self-intersecting", ErrInvalidPolygon)
	}
	if p.Area() < epsilon {
		return fmt.Errorf("%w: zero area", ErrInvalidPolygon)
	}
	return nil
}

// Contains reports whether pt lies inside the polygon using the even-odd
// ray casting rule. Points exactly on an edge may fall either way.
func (p Polygon) Contains(pt r2.Point) bool {
	inside := false
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			xCross := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X
			if pt.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// signedArea uses the shoelace formula; positive for counter-clockwise rings.
func (p Polygon) signedArea() float64 {
	var sum float64
	n := len(p)
	for i := 0; i < n; i++ {
		sum += p[i].Cross(p[(i+1)%n])
	}
	return sum / 2
}

// Area returns the absolute polygon area.
func (p Polygon) Area() float64 {
	return math.Abs(p.signedArea())
}

// Centroid returns the area centroid, falling back to the vertex mean for
// degenerate rings.
func (p Polygon) Centroid() r2.Point {
	n := len(p)
	if n == 0 {
		return r2.Point{}
	}
	a := p.signedArea()
	if math.Abs(a) < epsilon {
		var c r2.Point
		for _, v := range p {
			c = c.Add(v)
		}
		return c.Mul(1 / float64(n))
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		v, w := p[i], p[(i+1)%n]
		f := v.Cross(w)
		cx += (v.X + w.X) * f
		cy += (v.Y + w.Y) * f
	}
	return r2.Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

// Bound returns the axis-aligned bounding rectangle.
func (p Polygon) Bound() r2.Rect {
	return r2.RectFromPoints(p...)
}

// SelfIntersects reports whether any two non-adjacent edges touch or cross.
func (p Polygon) SelfIntersects() bool {
	n := len(p)
	for i := 0; i < n; i++ {
		a1, a2 := p[i], p[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// adjacent edges share a vertex by construction
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := p[j], p[(j+1)%n]
			if SegmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// SegmentsIntersect reports whether segment a1-a2 touches or crosses b1-b2.
func SegmentsIntersect(a1, a2, b1, b2 r2.Point) bool {
	d1 := orient(b1, b2, a1)
	d2 := orient(b1, b2, a2)
	d3 := orient(a1, a2, b1)
	d4 := orient(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(b1, b2, a1):
		return true
	case d2 == 0 && onSegment(b1, b2, a2):
		return true
	case d3 == 0 && onSegment(a1, a2, b1):
		return true
	case d4 == 0 && onSegment(a1, a2, b2):
		return true
	}
	return false
}

func orient(a, b, c r2.Point) float64 {
	return b.Sub(a).Cross(c.Sub(a))
}

// onSegment assumes c is collinear with a-b.
func onSegment(a, b, c r2.Point) bool {
	return math.Min(a.X, b.X) <= c.X && c.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= c.Y && c.Y <= math.Max(a.Y, b.Y)
}
