package traffic

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/timeutil"
	"github.com/banshee-data/movement.report/internal/units"
)

// Overlay is the mutable configuration layered over a trajectory set. It is
// copied into a Snapshot, so later edits to the Overlay do not leak into
// reports already in flight.
type Overlay struct {
	Zones       []AccessZone
	Rules       *rilsa.Table
	Corrections []Correction
	Settings    Settings
	Forbidden   ForbiddenMovements
	// Calibration maps tracker coordinates to metres. Nil means positions
	// are already metric.
	Calibration units.Calibration
	// Clock times report runs. Nil means the wall clock.
	Clock timeutil.Clock
}

// Snapshot is one validated, immutable view of a dataset.
type Snapshot struct {
	trajectories []Trajectory
	zones        []AccessZone
	rules        *rilsa.Table
	corrections  map[string]Correction
	settings     Settings
	forbidden    ForbiddenMovements
	calibration  units.Calibration
	location     *time.Location
	classifier   *ZoneClassifier
	clock        timeutil.Clock
}

// NewSnapshot validates the overlay against the trajectories. Configuration
// problems return a *ConfigurationError, corrections for unknown tracks a
// *CorrectionConflictError. When several corrections name the same track
// the last one wins.
func NewSnapshot(trajectories []Trajectory, ov Overlay) (*Snapshot, error) {
	if err := validateZones(ov.Zones); err != nil {
		return nil, err
	}
	if ov.Rules == nil {
		return nil, configErr("movement_rules", "table missing")
	}
	if err := ov.Settings.Validate(); err != nil {
		return nil, err
	}
	loc, err := units.LoadLocation(ov.Settings.Timezone)
	if err != nil {
		return nil, &ConfigurationError{Field: "timezone", Reason: "unknown timezone", Err: err}
	}
	for code := range ov.Forbidden {
		if _, ok := ov.Rules.Lookup(code); !ok {
			return nil, configErr("forbidden_movements", "unknown movement code %d", code)
		}
	}

	known, err := validateTrajectories(trajectories)
	if err != nil {
		return nil, err
	}

	corrections := make(map[string]Correction, len(ov.Corrections))
	for _, c := range ov.Corrections {
		if _, ok := known[c.TrackID]; !ok {
			return nil, &CorrectionConflictError{TrackID: c.TrackID}
		}
		if err := validateCorrection(c); err != nil {
			return nil, err
		}
		corrections[c.TrackID] = c
	}

	forbidden := make(ForbiddenMovements, len(ov.Forbidden))
	for k, v := range ov.Forbidden {
		forbidden[k] = v
	}

	s := &Snapshot{
		trajectories: append([]Trajectory(nil), trajectories...),
		zones:        append([]AccessZone(nil), ov.Zones...),
		rules:        ov.Rules,
		corrections:  corrections,
		settings:     ov.Settings,
		forbidden:    forbidden,
		calibration:  ov.Calibration.OrIdentity(),
		location:     loc,
		clock:        ov.Clock,
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	s.classifier = NewZoneClassifier(s.zones)
	return s, nil
}

// validateTrajectories checks the per-track invariants and returns the set
// of track ids.
func validateTrajectories(trajectories []Trajectory) (map[string]struct{}, error) {
	known := make(map[string]struct{}, len(trajectories))
	for i, t := range trajectories {
		if t.TrackID == "" {
			return nil, fmt.Errorf("%w: trajectory %d has no track_id", ErrInvalidTrajectory, i)
		}
		if _, dup := known[t.TrackID]; dup {
			return nil, fmt.Errorf("%w: duplicate track_id %q", ErrInvalidTrajectory, t.TrackID)
		}
		if len(t.Positions) == 0 {
			return nil, fmt.Errorf("%w: track %q has no positions", ErrInvalidTrajectory, t.TrackID)
		}
		if t.FrameExit < t.FrameEntry {
			return nil, fmt.Errorf("%w: track %q exits (frame %d) before it enters (frame %d)",
				ErrInvalidTrajectory, t.TrackID, t.FrameExit, t.FrameEntry)
		}
		known[t.TrackID] = struct{}{}
	}
	return known, nil
}

// ValidateTrajectories checks trajectories the same way NewSnapshot does,
// so the store never persists a track that could not be loaded again.
func ValidateTrajectories(trajectories []Trajectory) error {
	_, err := validateTrajectories(trajectories)
	return err
}

func validateZones(zones []AccessZone) error {
	if len(zones) == 0 {
		return configErr("zones", "at least one access zone is required")
	}
	seen := make(map[string]struct{}, len(zones))
	for i, z := range zones {
		if z.ID == "" {
			return configErr("zones", "zone %d has no id", i)
		}
		if _, dup := seen[z.ID]; dup {
			return configErr("zones", "duplicate zone id %q", z.ID)
		}
		seen[z.ID] = struct{}{}
		if z.Cardinal != "" && !z.Cardinal.Valid() {
			return configErr("zones", "zone %q has unknown cardinal %q", z.ID, z.Cardinal)
		}
		if err := z.Polygon.Validate(); err != nil {
			return &ConfigurationError{Field: "zones", Reason: fmt.Sprintf("zone %q", z.ID), Err: err}
		}
	}
	return nil
}

// ValidateZones checks a zone set the same way NewSnapshot does, so the
// store can reject a bad set before persisting it.
func ValidateZones(zones []AccessZone) error { return validateZones(zones) }

func validateCorrection(c Correction) error {
	if c.NewOrigin != nil && !c.NewOrigin.Valid() {
		return configErr("corrections", "track %q: unknown origin %q", c.TrackID, *c.NewOrigin)
	}
	if c.NewDest != nil && !c.NewDest.Valid() {
		return configErr("corrections", "track %q: unknown destination %q", c.TrackID, *c.NewDest)
	}
	if c.NewClass != nil && *c.NewClass == "" {
		return configErr("corrections", "track %q: empty class override", c.TrackID)
	}
	return nil
}

// ValidateCorrection checks the override fields of a single correction.
func ValidateCorrection(c Correction) error { return validateCorrection(c) }

// Settings returns the snapshot's analysis settings.
func (s *Snapshot) Settings() Settings { return s.settings }

// TrackCount returns the number of ingested trajectories.
func (s *Snapshot) TrackCount() int { return len(s.trajectories) }

// EffectiveEvents classifies every trajectory and applies corrections.
// Events are returned sorted by track id.
func (s *Snapshot) EffectiveEvents() []EffectiveEvent {
	out := make([]EffectiveEvent, len(s.trajectories))
	for i, t := range s.trajectories {
		ev := computeEvent(t, s.classifier, s.rules)
		if c, ok := s.corrections[t.TrackID]; ok {
			ev = ApplyCorrection(ev, &c, s.rules)
		}
		out[i] = ev
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out
}

// trackStatus says whether a track is counted and, if not, why.
type trackStatus int

const (
	statusCounted trackStatus = iota
	statusDiscarded
	statusUnclassified
	statusFiltered
)

// analysis is the shared, read-only input of the report functions.
type analysis struct {
	events   []EffectiveEvent
	status   []trackStatus
	metrics  []PathMetrics
	settings Settings
	rules    *rilsa.Table
	forbid   ForbiddenMovements
	cal      units.Calibration
	loc      *time.Location
}

func (s *Snapshot) analyse() *analysis {
	events := s.EffectiveEvents()
	a := &analysis{
		events:   events,
		status:   make([]trackStatus, len(events)),
		metrics:  make([]PathMetrics, len(events)),
		settings: s.settings,
		rules:    s.rules,
		forbid:   s.forbidden,
		cal:      s.calibration,
		loc:      s.location,
	}
	for i, ev := range events {
		a.metrics[i] = ComputePathMetrics(ev.Positions, s.calibration)
		switch {
		case ev.Discarded:
			a.status[i] = statusDiscarded
		case !ev.Classified, ev.Class == ClassIgnore:
			a.status[i] = statusUnclassified
		case !s.settings.PassesQualityFilters(a.metrics[i]):
			a.status[i] = statusFiltered
		default:
			a.status[i] = statusCounted
		}
	}
	return a
}

// survivors returns the indices of counted events in track id order.
func (a *analysis) survivors() []int {
	out := make([]int, 0, len(a.events))
	for i, st := range a.status {
		if st == statusCounted {
			out = append(out, i)
		}
	}
	return out
}
