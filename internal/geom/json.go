package geom

import (
	"fmt"

	"github.com/golang/geo/r2"
	geojson "github.com/paulmach/go.geojson"
)

// Geometry returns p as a GeoJSON Polygon with a single closed outer ring.
func (p Polygon) Geometry() *geojson.Geometry {
	ring := make([][]float64, 0, len(p)+1)
	for _, pt := range p {
		ring = append(ring, []float64{pt.X, pt.Y})
	}
	if len(p) > 0 && p[0] != p[len(p)-1] {
		ring = append(ring, []float64{p[0].X, p[0].Y})
	}
	return geojson.NewPolygonGeometry([][][]float64{ring})
}

// FromGeometry converts a GeoJSON Polygon's outer ring. Holes are not
// supported and the closing vertex is dropped.
func FromGeometry(g *geojson.Geometry) (Polygon, error) {
	if g == nil || !g.IsPolygon() {
		return nil, fmt.Errorf("%w: geometry must be a GeoJSON Polygon", ErrInvalidPolygon)
	}
	if len(g.Polygon) != 1 {
		return nil, fmt.Errorf("%w: want exactly one ring, got %d", ErrInvalidPolygon, len(g.Polygon))
	}
	ring := g.Polygon[0]
	out := make(Polygon, 0, len(ring))
	for i, xy := range ring {
		if len(xy) != 2 {
			return nil, fmt.Errorf("%w: vertex %d has %d coordinates, want 2", ErrInvalidPolygon, i, len(xy))
		}
		out = append(out, r2.Point{X: xy[0], Y: xy[1]})
	}
	if n := len(out); n > 1 && out[0] == out[n-1] {
		out = out[:n-1]
	}
	return out, nil
}

// MarshalJSON encodes the polygon as a GeoJSON geometry.
func (p Polygon) MarshalJSON() ([]byte, error) {
	return p.Geometry().MarshalJSON()
}

// UnmarshalJSON accepts a GeoJSON Polygon geometry.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("polygon must be a GeoJSON geometry: %w", err)
	}
	out, err := FromGeometry(g)
	if err != nil {
		return err
	}
	*p = out
	return nil
}
