package traffic

import (
	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/movement.report/internal/units"
)

// minStepM ignores jitter-sized steps when counting direction reversals.
const minStepM = 1e-6

// PathMetrics captures the shape measures the quality filters act on.
type PathMetrics struct {
	LengthM          float64 `json:"length_m"`
	NetDisplacementM float64 `json:"net_displacement_m"`
	DirectionChanges int     `json:"direction_changes"`
}

// NetOverPath returns net displacement divided by path length, or 0 for a
// track that never moved.
func (m PathMetrics) NetOverPath() float64 {
	if m.LengthM <= 0 {
		return 0
	}
	return m.NetDisplacementM / m.LengthM
}

// ComputePathMetrics measures a track in metric space. A direction change
// is a step whose heading differs from the previous non-trivial step by
// more than 90 degrees.
func ComputePathMetrics(positions []Position, cal units.Calibration) PathMetrics {
	if len(positions) < 2 {
		return PathMetrics{}
	}
	cal = cal.OrIdentity()

	steps := make([]float64, 0, len(positions)-1)
	var prevStep r2.Point
	havePrev := false
	changes := 0

	prev := cal(positions[0].Point())
	first := prev
	for _, p := range positions[1:] {
		cur := cal(p.Point())
		step := cur.Sub(prev)
		n := step.Norm()
		steps = append(steps, n)
		if n > minStepM {
			if havePrev && prevStep.Dot(step) < 0 {
				changes++
			}
			prevStep, havePrev = step, true
		}
		prev = cur
	}

	return PathMetrics{
		LengthM:          floats.Sum(steps),
		NetDisplacementM: prev.Sub(first).Norm(),
		DirectionChanges: changes,
	}
}

// filterReason explains why a track failed the quality filters; empty means
// it passed.
func (s Settings) filterReason(m PathMetrics) string {
	switch {
	case m.LengthM < s.MinLengthM:
		return "too_short"
	case m.DirectionChanges > s.MaxDirectionChanges:
		return "direction_changes"
	case m.NetOverPath() < s.MinNetOverPathRatio:
		return "net_over_path"
	}
	return ""
}

// PassesQualityFilters applies the three hard cutoffs.
func (s Settings) PassesQualityFilters(m PathMetrics) bool {
	return s.filterReason(m) == ""
}
