// Package testutil provides shared test utilities and fixtures.
//
// Fixtures describe a small four-arm intersection: one square access zone
// per cardinal direction, 50 m from the centre.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/movement.report/internal/geom"
	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// StartTime is the timestamp of frame 0 in generated trajectories.
var StartTime = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

// FPS is the frame rate of generated trajectories.
const FPS = 10

// Rect returns an axis-aligned rectangle polygon.
func Rect(minX, minY, maxX, maxY float64) geom.Polygon {
	return geom.Polygon{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
}

// QuadrantZones returns one access zone per cardinal: N above, S below,
// E to the right and O to the left of the origin.
func QuadrantZones() []traffic.AccessZone {
	return []traffic.AccessZone{
		{ID: "north", Cardinal: rilsa.North, Polygon: Rect(-20, 50, 20, 100)},
		{ID: "south", Cardinal: rilsa.South, Polygon: Rect(-20, -100, 20, -50)},
		{ID: "east", Cardinal: rilsa.East, Polygon: Rect(50, -20, 100, 20)},
		{ID: "west", Cardinal: rilsa.West, Polygon: Rect(-100, -20, -50, 20)},
	}
}

// ZoneCentre returns the centre of the quadrant zone for c.
func ZoneCentre(c rilsa.Cardinal) r2.Point {
	switch c {
	case rilsa.North:
		return r2.Point{X: 0, Y: 75}
	case rilsa.South:
		return r2.Point{X: 0, Y: -75}
	case rilsa.East:
		return r2.Point{X: 75, Y: 0}
	case rilsa.West:
		return r2.Point{X: -75, Y: 0}
	}
	return r2.Point{}
}

// Overlay returns an overlay with the default rule table and settings.
func Overlay(zones []traffic.AccessZone) traffic.Overlay {
	return traffic.Overlay{
		Zones:    zones,
		Rules:    rilsa.MustDefaultTable(),
		Settings: traffic.DefaultSettings(),
	}
}

// LinearTrajectory moves from one point to another in equal steps at FPS,
// starting at startFrame. steps must be at least 1.
func LinearTrajectory(id, class string, from, to r2.Point, steps, startFrame int) traffic.Trajectory {
	t := traffic.Trajectory{
		TrackID:    id,
		Class:      class,
		FrameEntry: startFrame,
		FrameExit:  startFrame + steps,
		Confidence: 0.9,
		Positions:  make([]traffic.Position, 0, steps+1),
	}
	delta := to.Sub(from).Mul(1 / float64(steps))
	frameDur := time.Second / FPS
	for i := 0; i <= steps; i++ {
		p := from.Add(delta.Mul(float64(i)))
		if i == steps {
			p = to
		}
		frame := startFrame + i
		t.Positions = append(t.Positions, traffic.Position{
			Frame:     frame,
			X:         p.X,
			Y:         p.Y,
			Timestamp: StartTime.Add(time.Duration(frame) * frameDur),
		})
	}
	return t
}

// Movement is a straight trajectory between the centres of two quadrant
// zones.
func Movement(id, class string, origin, dest rilsa.Cardinal, startFrame int) traffic.Trajectory {
	return LinearTrajectory(id, class, ZoneCentre(origin), ZoneCentre(dest), 20, startFrame)
}

// MustSnapshot builds a snapshot or fails the test.
func MustSnapshot(t testing.TB, trajectories []traffic.Trajectory, ov traffic.Overlay) *traffic.Snapshot {
	t.Helper()
	s, err := traffic.NewSnapshot(trajectories, ov)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return s
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request with an optional body.
func NewTestRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return httptest.NewRequest(method, path, r)
}
