package traffic

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/units"
)

// ComputeSpeeds groups the representative speed of every surviving track by
// movement and class.
func ComputeSpeeds(s *Snapshot) []SpeedStat {
	return s.analyse().speeds()
}

// RepresentativeSpeed returns the median per-step speed in m/s. ok is false
// for tracks with fewer than two positions or no step with positive
// elapsed time.
func RepresentativeSpeed(positions []Position, cal units.Calibration) (float64, bool) {
	steps := StepSpeeds(positions, cal)
	if len(steps) == 0 {
		return 0, false
	}
	sort.Float64s(steps)
	return Percentile(steps, 0.5), true
}

// StepSpeeds derives one speed per consecutive position pair. Pairs with
// zero or negative elapsed time are skipped.
func StepSpeeds(positions []Position, cal units.Calibration) []float64 {
	if len(positions) < 2 {
		return nil
	}
	cal = cal.OrIdentity()
	out := make([]float64, 0, len(positions)-1)
	for i := 1; i < len(positions); i++ {
		dt := positions[i].Timestamp.Sub(positions[i-1].Timestamp).Seconds()
		if dt <= 0 {
			continue
		}
		d := cal(positions[i].Point()).Sub(cal(positions[i-1].Point())).Norm()
		out = append(out, d/dt)
	}
	return out
}

// Percentile returns the p-quantile (0..1) of sorted values using linear
// interpolation between closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

type speedKey struct {
	movement string
	class    string
}

type speedGroup struct {
	code   rilsa.Code
	speeds []float64
}

func (a *analysis) speeds() []SpeedStat {
	groups := make(map[speedKey]*speedGroup)
	for _, i := range a.survivors() {
		ev := a.events[i]
		v, ok := RepresentativeSpeed(ev.Positions, a.cal)
		if !ok {
			continue
		}
		k := speedKey{movement: ev.Movement, class: ev.Class}
		g, ok := groups[k]
		if !ok {
			g = &speedGroup{code: ev.MovementCode}
			groups[k] = g
		}
		g.speeds = append(g.speeds, v)
	}

	out := make([]SpeedStat, 0, len(groups))
	for k, g := range groups {
		sort.Float64s(g.speeds)
		out = append(out, SpeedStat{
			Movement:     k.movement,
			MovementCode: g.code,
			Class:        k.class,
			Mean:         stat.Mean(g.speeds, nil),
			Median:       Percentile(g.speeds, 0.5),
			P85:          Percentile(g.speeds, 0.85),
			Max:          floats.Max(g.speeds),
			Samples:      len(g.speeds),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Movement != out[j].Movement {
			return movementLess(out[i].MovementCode, out[i].Movement, out[j].MovementCode, out[j].Movement)
		}
		return out[i].Class < out[j].Class
	})
	return out
}

// ConvertSpeedStats returns a copy of stats with every speed converted from
// m/s to unit. The input is left untouched.
func ConvertSpeedStats(stats []SpeedStat, unit string) []SpeedStat {
	out := make([]SpeedStat, len(stats))
	for i, st := range stats {
		st.Mean = units.ConvertSpeed(st.Mean, unit)
		st.Median = units.ConvertSpeed(st.Median, unit)
		st.P85 = units.ConvertSpeed(st.P85, unit)
		st.Max = units.ConvertSpeed(st.Max, unit)
		out[i] = st
	}
	return out
}
