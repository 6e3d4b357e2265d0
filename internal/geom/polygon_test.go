package geom

import (
	"errors"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, size float64) Polygon {
	return Polygon{
		{X: x0, Y: y0},
		{X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size},
		{X: x0, Y: y0 + size},
	}
}

func TestPolygonContains(t *testing.T) {
	t.Parallel()
	sq := square(0, 0, 10)

	tests := []struct {
		name string
		pt   r2.Point
		want bool
	}{
		{"centre", r2.Point{X: 5, Y: 5}, true},
		{"near corner inside", r2.Point{X: 0.1, Y: 9.9}, true},
		{"left of polygon", r2.Point{X: -1, Y: 5}, false},
		{"above polygon", r2.Point{X: 5, Y: 11}, false},
		{"far away", r2.Point{X: 100, Y: -100}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sq.Contains(tt.pt), tt.name)
	}
}

func TestPolygonContains_Concave(t *testing.T) {
	t.Parallel()
	// U shape open at the top
	u := Polygon{
		{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 9, Y: 9}, {X: 6, Y: 9},
		{X: 6, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 9}, {X: 0, Y: 9},
	}
	require.NoError(t, u.Validate())
	assert.True(t, u.Contains(r2.Point{X: 1, Y: 8}))
	assert.True(t, u.Contains(r2.Point{X: 8, Y: 8}))
	assert.False(t, u.Contains(r2.Point{X: 4.5, Y: 6}), "notch is outside")
	assert.True(t, u.Contains(r2.Point{X: 4.5, Y: 1}))
}

func TestPolygonAreaAndCentroid(t *testing.T) {
	t.Parallel()
	sq := square(2, 4, 4)
	assert.InDelta(t, 16.0, sq.Area(), 1e-9)

	c := sq.Centroid()
	assert.InDelta(t, 4.0, c.X, 1e-9)
	assert.InDelta(t, 6.0, c.Y, 1e-9)

	// Clockwise ring has the same absolute area.
	cw := Polygon{sq[3], sq[2], sq[1], sq[0]}
	assert.InDelta(t, 16.0, cw.Area(), 1e-9)
	assert.InDelta(t, 4.0, cw.Centroid().X, 1e-9)
}

func TestPolygonValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, square(0, 0, 1).Validate())

	err := Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidPolygon))

	bowtie := Polygon{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 2}}
	err = bowtie.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "self-intersecting")

	collinear := Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	err = collinear.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero area")
}

func TestPolygonBound(t *testing.T) {
	t.Parallel()
	b := square(-1, -2, 3).Bound()
	assert.Equal(t, -1.0, b.X.Lo)
	assert.Equal(t, 2.0, b.X.Hi)
	assert.Equal(t, -2.0, b.Y.Lo)
	assert.Equal(t, 1.0, b.Y.Hi)
}

func TestSegmentsIntersect(t *testing.T) {
	t.Parallel()
	p := func(x, y float64) r2.Point { return r2.Point{X: x, Y: y} }

	assert.True(t, SegmentsIntersect(p(0, 0), p(2, 2), p(0, 2), p(2, 0)))
	assert.False(t, SegmentsIntersect(p(0, 0), p(1, 0), p(0, 1), p(1, 1)))
	assert.True(t, SegmentsIntersect(p(0, 0), p(2, 0), p(1, 0), p(3, 0)), "collinear overlap")
	assert.True(t, SegmentsIntersect(p(0, 0), p(2, 0), p(2, 0), p(2, 5)), "shared endpoint")
}
