package traffic_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.report/internal/testutil"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// headOn builds two road users closing at 20 m/s on the x axis. With a 2 m
// conflict radius their minimum TTC is 0.8 s at frame 9.
func headOn() []traffic.Trajectory {
	return []traffic.Trajectory{
		testutil.LinearTrajectory("a", "car", r2.Point{X: 0}, r2.Point{X: 9}, 9, 0),
		testutil.LinearTrajectory("b", "pedestrian", r2.Point{X: 36}, r2.Point{X: 27}, 9, 0),
	}
}

func conflictOverlay(threshold float64) traffic.Overlay {
	ov := testutil.Overlay([]traffic.AccessZone{{ID: "site", Polygon: testutil.Rect(-50, -50, 50, 50)}})
	ov.Settings.TTCThresholdS = threshold
	ov.Settings.ConflictRadiusM = 2
	return ov
}

func TestTimeToCollision(t *testing.T) {
	t.Parallel()

	ttc, ok := traffic.TimeToCollision(r2.Point{X: 0}, r2.Point{X: 10}, r2.Point{X: 18}, r2.Point{X: -10}, 2)
	require.True(t, ok)
	assert.InDelta(t, 0.8, ttc, 1e-12)

	// already touching
	ttc, ok = traffic.TimeToCollision(r2.Point{}, r2.Point{}, r2.Point{X: 1}, r2.Point{}, 2)
	require.True(t, ok)
	assert.Zero(t, ttc)

	// separating
	_, ok = traffic.TimeToCollision(r2.Point{X: 0}, r2.Point{X: -10}, r2.Point{X: 18}, r2.Point{X: 10}, 2)
	assert.False(t, ok)

	// same velocity never closes the gap
	_, ok = traffic.TimeToCollision(r2.Point{X: 0}, r2.Point{X: 5}, r2.Point{X: 18}, r2.Point{X: 5}, 2)
	assert.False(t, ok)

	// passes wide
	_, ok = traffic.TimeToCollision(r2.Point{X: 0, Y: 0}, r2.Point{X: 10}, r2.Point{X: 18, Y: 5}, r2.Point{X: -10}, 2)
	assert.False(t, ok)
}

func TestTimeToCollisionSymmetric(t *testing.T) {
	t.Parallel()

	pts := []r2.Point{{X: 0, Y: 0}, {X: 12.5, Y: -3.25}, {X: -7, Y: 9.1}, {X: 3.3, Y: 4.4}}
	vels := []r2.Point{{X: 1.5, Y: 0}, {X: -4, Y: 1.2}, {X: 2.2, Y: -3}, {X: 0, Y: -1}}
	for i := range pts {
		for j := range pts {
			if i == j {
				continue
			}
			ab, okAB := traffic.TimeToCollision(pts[i], vels[i], pts[j], vels[j], 1.5)
			ba, okBA := traffic.TimeToCollision(pts[j], vels[j], pts[i], vels[i], 1.5)
			assert.Equal(t, okAB, okBA)
			assert.Equal(t, ab, ba)
		}
	}
}

func TestPairTTCSymmetric(t *testing.T) {
	t.Parallel()

	// both reach the origin at frame 15
	a := testutil.LinearTrajectory("a", "car", r2.Point{X: -30}, r2.Point{X: 30}, 30, 0)
	b := testutil.LinearTrajectory("b", "bicycle", r2.Point{Y: -10}, r2.Point{Y: 20}, 30, 5)
	s := testutil.MustSnapshot(t, []traffic.Trajectory{a, b}, conflictOverlay(1.5))
	events := s.EffectiveEvents()

	ab, okAB := traffic.PairTTC(events[0], events[1], 2, nil)
	ba, okBA := traffic.PairTTC(events[1], events[0], 2, nil)
	require.True(t, okAB)
	assert.Equal(t, okAB, okBA)
	assert.Equal(t, ab, ba)
	assert.False(t, math.IsInf(ab, 0))
}

// alternating builds a track moving along the x axis at vx m/s that is only
// observed on the given frames.
func alternating(id, class string, x0, vx float64, frames ...int) traffic.Trajectory {
	tr := traffic.Trajectory{
		TrackID:    id,
		Class:      class,
		FrameEntry: frames[0],
		FrameExit:  frames[len(frames)-1],
		Confidence: 0.9,
	}
	for _, f := range frames {
		tr.Positions = append(tr.Positions, traffic.Position{
			Frame:     f,
			X:         x0 + vx*float64(f)/testutil.FPS,
			Timestamp: testutil.StartTime.Add(time.Duration(f) * time.Second / testutil.FPS),
		})
	}
	return tr
}

func TestComputeConflictsInterleavedFrames(t *testing.T) {
	t.Parallel()

	// a is seen on even frames, b on odd ones; no frame is shared
	a := alternating("a", "car", 0, 10, 0, 2, 4, 6, 8, 10)
	b := alternating("b", "car", 36, -10, 1, 3, 5, 7, 9, 11)
	s := testutil.MustSnapshot(t, []traffic.Trajectory{a, b}, conflictOverlay(1.5))

	rep, err := traffic.ComputeConflicts(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.CandidatePairs)
	require.Len(t, rep.Events, 1)

	// at frame 10 a is at x=10 and b, between samples, at x=26
	ev := rep.Events[0]
	assert.InDelta(t, 0.7, ev.TTCMin, 1e-9)
	assert.Equal(t, 10, ev.Frame)
	assert.Equal(t, traffic.Point{X: 10, Y: 0}, ev.Location)
	assert.Equal(t, traffic.SeverityMedium, ev.Severity)

	events := s.EffectiveEvents()
	ab, okAB := traffic.PairTTC(events[0], events[1], 2, nil)
	ba, okBA := traffic.PairTTC(events[1], events[0], 2, nil)
	require.True(t, okAB)
	require.True(t, okBA)
	assert.Equal(t, ab, ba)
	assert.InDelta(t, 0.7, ab, 1e-9)
}

func TestComputeConflictsScenario(t *testing.T) {
	t.Parallel()

	s := testutil.MustSnapshot(t, headOn(), conflictOverlay(1.5))
	rep, err := traffic.ComputeConflicts(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, rep.Events, 1)

	ev := rep.Events[0]
	assert.Equal(t, "a", ev.TrackA)
	assert.Equal(t, "b", ev.TrackB)
	assert.InDelta(t, 0.8, ev.TTCMin, 1e-9)
	assert.Equal(t, 9, ev.Frame)
	assert.Equal(t, traffic.Point{X: 9, Y: 0}, ev.Location)
	assert.Equal(t, "vehicle-pedestrian", ev.PairType)
	assert.Equal(t, traffic.SeverityMedium, ev.Severity)
	assert.False(t, rep.Truncated)
	assert.Equal(t, 1, rep.PairsTotal)
	assert.Equal(t, 1, rep.PairsScanned)
	assert.Equal(t, 1, rep.CandidatePairs)

	s = testutil.MustSnapshot(t, headOn(), conflictOverlay(0.5))
	rep, err = traffic.ComputeConflicts(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, rep.Events)
	assert.NotNil(t, rep.Events)
}

func TestConflictsIgnoreDisjointFrameWindows(t *testing.T) {
	t.Parallel()

	trajectories := headOn()
	trajectories[1] = testutil.LinearTrajectory("b", "pedestrian", r2.Point{X: 36}, r2.Point{X: 27}, 9, 100)
	s := testutil.MustSnapshot(t, trajectories, conflictOverlay(1.5))

	rep, err := traffic.ComputeConflicts(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, rep.Events)
	assert.Zero(t, rep.CandidatePairs)
	assert.Equal(t, 1, rep.PairsScanned)
}

func TestConflictsSkipDiscardedTracks(t *testing.T) {
	t.Parallel()

	ov := conflictOverlay(1.5)
	ov.Corrections = []traffic.Correction{{TrackID: "b", Discard: true}}
	s := testutil.MustSnapshot(t, headOn(), ov)

	rep, err := traffic.ComputeConflicts(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, rep.Events)
	assert.Zero(t, rep.PairsTotal)
}

func TestConflictsCancelled(t *testing.T) {
	t.Parallel()

	s := testutil.MustSnapshot(t, headOn(), conflictOverlay(1.5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := traffic.ComputeConflicts(ctx, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, traffic.ErrComputationTimeout))
	assert.True(t, rep.Truncated)
	assert.Empty(t, rep.Events)
	assert.Equal(t, 1, rep.PairsTotal)
	assert.Zero(t, rep.PairsScanned)
}

func TestPairType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vehicle-pedestrian", traffic.PairType("pedestrian", "car"))
	assert.Equal(t, "vehicle-pedestrian", traffic.PairType("truck", "person"))
	assert.Equal(t, "cyclist-pedestrian", traffic.PairType("pedestrian", "bicycle"))
	assert.Equal(t, "vehicle-vehicle", traffic.PairType("bus", "motorcycle"))
	assert.Equal(t, "vehicle-cyclist", traffic.PairType("bicycle", "car"))
}
