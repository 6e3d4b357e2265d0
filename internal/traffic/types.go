package traffic

import (
	"time"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/movement.report/internal/geom"
	"github.com/banshee-data/movement.report/internal/rilsa"
)

// ClassIgnore is the QC bucket for tracks that are not counted.
const ClassIgnore = "ignore"

// Position is one tracker observation. X and Y are in tracker coordinates;
// the snapshot's Calibration maps them to metres where distances matter.
type Position struct {
	Frame     int       `json:"frame"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the position as an r2.Point.
func (p Position) Point() r2.Point { return r2.Point{X: p.X, Y: p.Y} }

// Trajectory is an immutable ingested track.
type Trajectory struct {
	TrackID    string     `json:"track_id"`
	Class      string     `json:"class"`
	Positions  []Position `json:"positions"`
	FrameEntry int        `json:"frame_entry"`
	FrameExit  int        `json:"frame_exit"`
	Confidence float64    `json:"confidence"`
}

// AccessZone is an entry/exit area of the intersection. ID is the stable
// identifier; Cardinal is optional and only feeds movement-code resolution.
type AccessZone struct {
	ID       string         `json:"id"`
	Cardinal rilsa.Cardinal `json:"cardinal,omitempty"`
	Polygon  geom.Polygon   `json:"polygon"`
}

// Centroid returns the polygon centroid.
func (z AccessZone) Centroid() r2.Point { return z.Polygon.Centroid() }

// Correction is a manual override for one track. A newer correction for the
// same track replaces the older one entirely.
type Correction struct {
	TrackID   string          `json:"track_id"`
	NewOrigin *rilsa.Cardinal `json:"new_origin,omitempty"`
	NewDest   *rilsa.Cardinal `json:"new_dest,omitempty"`
	NewClass  *string         `json:"new_class,omitempty"`
	Discard   bool            `json:"discard"`
	HideInPDF bool            `json:"hide_in_pdf"`
}

// ForbiddenMovements maps a movement code to its description.
type ForbiddenMovements map[rilsa.Code]string

// Point is a plain JSON-friendly coordinate used in report rows.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IntervalVolumeRow counts surviving tracks for one interval and movement.
type IntervalVolumeRow struct {
	IntervalStart time.Time      `json:"interval_start"`
	IntervalEnd   time.Time      `json:"interval_end"`
	Movement      string         `json:"movement"`
	MovementCode  rilsa.Code     `json:"movement_code,omitempty"`
	CountsByClass map[string]int `json:"counts_by_class"`
	Total         int            `json:"total"`
}

// SpeedStat summarises representative track speeds in m/s for one
// movement and class.
type SpeedStat struct {
	Movement     string     `json:"movement"`
	MovementCode rilsa.Code `json:"movement_code,omitempty"`
	Class        string     `json:"class"`
	Mean         float64    `json:"mean"`
	Median       float64    `json:"median"`
	P85          float64    `json:"p85"`
	Max          float64    `json:"max"`
	Samples      int        `json:"samples"`
}

// ConflictEvent is a near miss between two tracks.
type ConflictEvent struct {
	TrackA    string    `json:"track_a"`
	TrackB    string    `json:"track_b"`
	ClassA    string    `json:"class_a"`
	ClassB    string    `json:"class_b"`
	PairType  string    `json:"pair_type"`
	TTCMin    float64   `json:"ttc_min"`
	Frame     int       `json:"frame"`
	Timestamp time.Time `json:"timestamp"`
	Location  Point     `json:"location"`
	Severity  string    `json:"severity"`
}

// ConflictReport wraps the conflict rows with scan bookkeeping. Truncated
// is set when the scan stopped early; Events then covers only the pairs
// scanned so far.
type ConflictReport struct {
	Events         []ConflictEvent `json:"events"`
	Truncated      bool            `json:"truncated"`
	PairsTotal     int             `json:"pairs_total"`
	PairsScanned   int             `json:"pairs_scanned"`
	CandidatePairs int             `json:"candidate_pairs"`
}

// ViolationRecord counts observations of one forbidden movement.
type ViolationRecord struct {
	Code        rilsa.Code `json:"code"`
	Description string     `json:"description"`
	Count       int        `json:"count"`
}

// QCSummary reconciles ingested tracks against counted tracks.
// CountedTracks always equals TotalTracksRaw - CountsByClass[ClassIgnore].
type QCSummary struct {
	TotalTracksRaw   int            `json:"total_tracks_raw"`
	CountedTracks    int            `json:"counted_tracks"`
	CountsByClass    map[string]int `json:"counts_by_class"`
	CountsByMovement map[string]int `json:"counts_by_movement"`

	IgnoredUnclassified int `json:"ignored_unclassified"`
	IgnoredDiscarded    int `json:"ignored_discarded"`
	IgnoredFiltered     int `json:"ignored_filtered"`
	HiddenTracks        int `json:"hidden_tracks"`
}

// Report bundles all five reports computed from one snapshot.
type Report struct {
	Volumes    []IntervalVolumeRow `json:"volumes"`
	Speeds     []SpeedStat         `json:"speeds"`
	Conflicts  ConflictReport      `json:"conflicts"`
	Violations []ViolationRecord   `json:"violations"`
	QC         QCSummary           `json:"qc"`
}
