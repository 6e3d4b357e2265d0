package traffic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"

	"github.com/banshee-data/movement.report/internal/units"
)

// Severity bands relative to the TTC threshold.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// ComputeConflicts scans every pair of surviving tracks for near misses.
// The scan honours ctx: when it is cancelled or its deadline passes the
// events found so far are returned with Truncated set, together with an
// error wrapping ErrComputationTimeout.
func ComputeConflicts(ctx context.Context, s *Snapshot) (ConflictReport, error) {
	return s.analyse().conflicts(ctx)
}

// TimeToCollision returns the time until two constant-velocity discs of the
// given radius first touch. Inputs are metric positions and velocities in
// m/s. ok is false when the pair never meets. Swapping a and b yields the
// same value.
func TimeToCollision(pa, va, pb, vb r2.Point, radius float64) (float64, bool) {
	dp := pb.Sub(pa)
	dv := vb.Sub(va)

	c := dp.Dot(dp) - radius*radius
	if c <= 0 {
		return 0, true
	}
	a := dv.Dot(dv)
	if a == 0 {
		return 0, false
	}
	b := 2 * dp.Dot(dv)
	if b >= 0 {
		// separating or keeping distance
		return 0, false
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	return (-b - math.Sqrt(disc)) / (2 * a), true
}

// kinematicTrack is a surviving track prepared for the pair scan.
type kinematicTrack struct {
	ev       *EffectiveEvent
	pos      []r2.Point // metric
	vel      []r2.Point // m/s
	ns       []int64    // sample times, unix nanoseconds
	window   r1.Interval
	bound    r2.Rect
	maxSpeed float64
}

func newKinematicTrack(ev *EffectiveEvent, cal units.Calibration) (*kinematicTrack, bool) {
	n := len(ev.Positions)
	if n < 2 {
		return nil, false
	}
	kt := &kinematicTrack{
		ev:     ev,
		pos:    make([]r2.Point, n),
		vel:    make([]r2.Point, n),
		ns:     make([]int64, n),
		window: r1.Interval{Lo: float64(ev.FrameEntry), Hi: float64(ev.FrameExit)},
	}
	for i, p := range ev.Positions {
		kt.pos[i] = cal(p.Point())
		kt.ns[i] = p.Timestamp.UnixNano()
	}
	kt.bound = r2.RectFromPoints(kt.pos...)

	valid := false
	for i := range kt.pos {
		// backward difference, forward at the first sample
		j, k := i-1, i
		if i == 0 {
			j, k = 0, 1
		}
		dt := float64(kt.ns[k]-kt.ns[j]) / 1e9
		if dt <= 0 {
			continue
		}
		v := kt.pos[k].Sub(kt.pos[j]).Mul(1 / dt)
		kt.vel[i] = v
		kt.maxSpeed = math.Max(kt.maxSpeed, v.Norm())
		valid = true
	}
	return kt, valid
}

// reach is the area the track could touch within the TTC horizon.
func (kt *kinematicTrack) reach(horizonS, radius float64) r2.Rect {
	return kt.bound.ExpandedByMargin(kt.maxSpeed*horizonS + radius)
}

// kinematicState is a track's motion at one instant. raw is the position in
// tracker coordinates.
type kinematicState struct {
	pos, vel, raw r2.Point
}

func (kt *kinematicTrack) sample(i int) kinematicState {
	return kinematicState{pos: kt.pos[i], vel: kt.vel[i], raw: kt.ev.Positions[i].Point()}
}

// stateAt interpolates the track at time t between the samples around it,
// using the velocity of that segment. ok is false outside the sampled span.
func (kt *kinematicTrack) stateAt(t int64) (kinematicState, bool) {
	n := len(kt.ns)
	if t < kt.ns[0] || t > kt.ns[n-1] {
		return kinematicState{}, false
	}
	k := sort.Search(n, func(i int) bool { return kt.ns[i] >= t })
	if k < n && kt.ns[k] == t {
		return kt.sample(k), true
	}
	if k == 0 || k == n || kt.ns[k] <= kt.ns[k-1] {
		return kinematicState{}, false
	}
	f := float64(t-kt.ns[k-1]) / float64(kt.ns[k]-kt.ns[k-1])
	lo, hi := kt.ev.Positions[k-1].Point(), kt.ev.Positions[k].Point()
	return kinematicState{
		pos: kt.pos[k-1].Add(kt.pos[k].Sub(kt.pos[k-1]).Mul(f)),
		vel: kt.vel[k],
		raw: lo.Add(hi.Sub(lo).Mul(f)),
	}, true
}

// ttcInstant locates a minimum TTC: the frame and time of the sample it was
// evaluated at and the first track's raw position then.
type ttcInstant struct {
	frame int
	ts    time.Time
	loc   r2.Point
}

// minTTC evaluates TTC at every sample of either track that falls inside
// the other's sampled span, interpolating the other track there. Both
// directions are scanned so the minimum does not depend on argument order.
func minTTC(a, b *kinematicTrack, radius float64) (ttc float64, at ttcInstant, ok bool) {
	ttc = math.Inf(1)
	for i, p := range a.ev.Positions {
		sb, inside := b.stateAt(a.ns[i])
		if !inside {
			continue
		}
		sa := a.sample(i)
		if t, hit := TimeToCollision(sa.pos, sa.vel, sb.pos, sb.vel, radius); hit && t < ttc {
			ttc, ok = t, true
			at = ttcInstant{frame: p.Frame, ts: p.Timestamp, loc: sa.raw}
		}
	}
	for j, p := range b.ev.Positions {
		sa, inside := a.stateAt(b.ns[j])
		if !inside {
			continue
		}
		sb := b.sample(j)
		if t, hit := TimeToCollision(sa.pos, sa.vel, sb.pos, sb.vel, radius); hit && t < ttc {
			ttc, ok = t, true
			at = ttcInstant{frame: p.Frame, ts: p.Timestamp, loc: sa.raw}
		}
	}
	return ttc, at, ok
}

// PairTTC is the minimum TTC between two effective events over their
// overlapping sampled instants. It is symmetric in its arguments.
func PairTTC(a, b EffectiveEvent, radius float64, cal units.Calibration) (float64, bool) {
	cal = cal.OrIdentity()
	ka, okA := newKinematicTrack(&a, cal)
	kb, okB := newKinematicTrack(&b, cal)
	if !okA || !okB {
		return 0, false
	}
	ttc, _, ok := minTTC(ka, kb, radius)
	return ttc, ok
}

func (a *analysis) conflicts(ctx context.Context) (ConflictReport, error) {
	threshold := a.settings.TTCThresholdS
	radius := a.settings.ConflictRadiusM

	var tracks []*kinematicTrack
	for _, i := range a.survivors() {
		if kt, ok := newKinematicTrack(&a.events[i], a.cal); ok {
			tracks = append(tracks, kt)
		}
	}

	n := len(tracks)
	rep := ConflictReport{
		Events:     []ConflictEvent{},
		PairsTotal: n * (n - 1) / 2,
	}
	reach := make([]r2.Rect, n)
	for i, kt := range tracks {
		reach[i] = kt.reach(threshold, radius)
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			rep.Truncated = true
			logf("conflict scan truncated after %d of %d pairs: %v", rep.PairsScanned, rep.PairsTotal, err)
			return rep, fmt.Errorf("%w: scanned %d of %d pairs: %v",
				ErrComputationTimeout, rep.PairsScanned, rep.PairsTotal, err)
		}
		ta := tracks[i]
		for j := i + 1; j < n; j++ {
			rep.PairsScanned++
			tb := tracks[j]
			if !ta.window.Intersects(tb.window) || !reach[i].Intersects(reach[j]) {
				continue
			}
			rep.CandidatePairs++

			ttc, at, ok := minTTC(ta, tb, radius)
			if !ok || ttc >= threshold {
				continue
			}
			rep.Events = append(rep.Events, ConflictEvent{
				TrackA:    ta.ev.TrackID,
				TrackB:    tb.ev.TrackID,
				ClassA:    ta.ev.Class,
				ClassB:    tb.ev.Class,
				PairType:  PairType(ta.ev.Class, tb.ev.Class),
				TTCMin:    ttc,
				Frame:     at.frame,
				Timestamp: at.ts,
				Location:  Point{X: at.loc.X, Y: at.loc.Y},
				Severity:  severity(ttc, threshold),
			})
		}
	}
	return rep, nil
}

func severity(ttc, threshold float64) string {
	switch r := ttc / threshold; {
	case r < 1.0/3:
		return SeverityHigh
	case r < 2.0/3:
		return SeverityMedium
	}
	return SeverityLow
}

// road user categories in pair-type order
var userRank = map[string]int{"vehicle": 0, "cyclist": 1, "pedestrian": 2}

// RoadUser maps a detector class to a coarse road-user category.
func RoadUser(class string) string {
	switch class {
	case "pedestrian", "person", "peaton":
		return "pedestrian"
	case "bicycle", "bike", "cyclist", "bicicleta":
		return "cyclist"
	}
	return "vehicle"
}

// PairType names a conflict by the two road-user categories, e.g.
// "vehicle-pedestrian". The order of the arguments does not matter.
func PairType(classA, classB string) string {
	a, b := RoadUser(classA), RoadUser(classB)
	if userRank[b] < userRank[a] {
		a, b = b, a
	}
	return a + "-" + b
}
