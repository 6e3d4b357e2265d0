package traffic

import (
	"github.com/golang/geo/r2"

	"github.com/banshee-data/movement.report/internal/rilsa"
)

// ZoneRef identifies the zone an endpoint fell into.
type ZoneRef struct {
	ID       string         `json:"id"`
	Cardinal rilsa.Cardinal `json:"cardinal,omitempty"`
}

type indexedZone struct {
	zone  AccessZone
	area  float64
	bound r2.Rect
}

// ZoneClassifier assigns points to access zones. It precomputes polygon
// areas and bounds and is safe for concurrent use.
type ZoneClassifier struct {
	zones []indexedZone
}

// NewZoneClassifier indexes zones in configuration order. Zones are assumed
// to be validated already.
func NewZoneClassifier(zones []AccessZone) *ZoneClassifier {
	zc := &ZoneClassifier{zones: make([]indexedZone, len(zones))}
	for i, z := range zones {
		zc.zones[i] = indexedZone{
			zone:  z,
			area:  z.Polygon.Area(),
			bound: z.Polygon.Bound(),
		}
	}
	return zc
}

// ClassifyEndpoint returns the zone containing pt. When zones overlap the
// smallest polygon wins; equal areas go to the zone configured first.
func (zc *ZoneClassifier) ClassifyEndpoint(pt r2.Point) (ZoneRef, bool) {
	best := -1
	for i, iz := range zc.zones {
		if !iz.bound.ContainsPoint(pt) || !iz.zone.Polygon.Contains(pt) {
			continue
		}
		if best < 0 || iz.area < zc.zones[best].area {
			best = i
		}
	}
	if best < 0 {
		return ZoneRef{}, false
	}
	z := zc.zones[best].zone
	return ZoneRef{ID: z.ID, Cardinal: z.Cardinal}, true
}

// ClassifyTrajectory classifies the first and last positions. ok is false
// when either endpoint is outside every zone.
func (zc *ZoneClassifier) ClassifyTrajectory(t Trajectory) (origin, dest ZoneRef, ok bool) {
	if len(t.Positions) == 0 {
		return ZoneRef{}, ZoneRef{}, false
	}
	origin, okOrigin := zc.ClassifyEndpoint(t.Positions[0].Point())
	dest, okDest := zc.ClassifyEndpoint(t.Positions[len(t.Positions)-1].Point())
	return origin, dest, okOrigin && okDest
}
