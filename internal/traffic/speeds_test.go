package traffic_test

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/testutil"
	"github.com/banshee-data/movement.report/internal/traffic"
	"github.com/banshee-data/movement.report/internal/units"
)

func TestPercentile(t *testing.T) {
	t.Parallel()

	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.5, 5.5},
		{0.85, 8.65},
		{1, 10},
		{1.5, 10},
		{-1, 1},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, traffic.Percentile(vals, tc.p), 1e-9, "p=%v", tc.p)
	}
	assert.Zero(t, traffic.Percentile(nil, 0.5))
	assert.Equal(t, 42.0, traffic.Percentile([]float64{42}, 0.85))
	assert.Equal(t, 3.0, traffic.Percentile([]float64{1, 3, 5}, 0.5))
}

func TestRepresentativeSpeed(t *testing.T) {
	t.Parallel()

	// 1 m then 3 m then 2 m per 100 ms step
	ps := positions(r2.Point{X: 0}, r2.Point{X: 1}, r2.Point{X: 4}, r2.Point{X: 6})
	v, ok := traffic.RepresentativeSpeed(ps, nil)
	require.True(t, ok)
	assert.InDelta(t, 20.0, v, 1e-9)

	v, ok = traffic.RepresentativeSpeed(ps, units.ScaleCalibration(0.5))
	require.True(t, ok)
	assert.InDelta(t, 10.0, v, 1e-9)

	_, ok = traffic.RepresentativeSpeed(ps[:1], nil)
	assert.False(t, ok)

	frozen := positions(r2.Point{X: 0}, r2.Point{X: 1})
	frozen[1].Timestamp = frozen[0].Timestamp
	_, ok = traffic.RepresentativeSpeed(frozen, nil)
	assert.False(t, ok)
}

func TestComputeSpeeds(t *testing.T) {
	t.Parallel()

	// north to south at 55, 75 and 95 m/s
	var trajectories []traffic.Trajectory
	for i, y := range []float64{55, 75, 95} {
		trajectories = append(trajectories,
			testutil.LinearTrajectory(string(rune('a'+i)), "car", r2.Point{Y: y}, r2.Point{Y: -y}, 20, 0))
	}
	trajectories = append(trajectories, testutil.Movement("p", "pedestrian", rilsa.West, rilsa.East, 0))

	s := testutil.MustSnapshot(t, trajectories, testutil.Overlay(testutil.QuadrantZones()))
	stats := traffic.ComputeSpeeds(s)
	require.Len(t, stats, 2)

	car := stats[0]
	assert.Equal(t, "1", car.Movement)
	assert.Equal(t, rilsa.Code(1), car.MovementCode)
	assert.Equal(t, "car", car.Class)
	assert.Equal(t, 3, car.Samples)
	assert.InDelta(t, 75.0, car.Mean, 1e-6)
	assert.InDelta(t, 75.0, car.Median, 1e-6)
	assert.InDelta(t, 89.0, car.P85, 1e-6)
	assert.InDelta(t, 95.0, car.Max, 1e-6)

	assert.Equal(t, "3", stats[1].Movement)
	assert.Equal(t, "pedestrian", stats[1].Class)
	assert.InDelta(t, 75.0, stats[1].Median, 1e-6)
}

func TestConvertSpeedStats(t *testing.T) {
	t.Parallel()

	in := []traffic.SpeedStat{{Movement: "1", Class: "car", Mean: 10, Median: 10, P85: 20, Max: 25, Samples: 3}}
	out := traffic.ConvertSpeedStats(in, units.KMPH)

	require.Len(t, out, 1)
	assert.InDelta(t, 36.0, out[0].Mean, 1e-9)
	assert.InDelta(t, 36.0, out[0].Median, 1e-9)
	assert.InDelta(t, 72.0, out[0].P85, 1e-9)
	assert.InDelta(t, 90.0, out[0].Max, 1e-9)
	assert.Equal(t, 3, out[0].Samples)

	// the input keeps its m/s values
	assert.Equal(t, 10.0, in[0].Mean)
	assert.Equal(t, 25.0, in[0].Max)

	assert.Equal(t, in, traffic.ConvertSpeedStats(in, units.MPS))
	assert.Empty(t, traffic.ConvertSpeedStats(nil, units.MPH))
}
