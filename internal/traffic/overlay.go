package traffic

import (
	"github.com/banshee-data/movement.report/internal/rilsa"
)

// EffectiveEvent is a trajectory's classification after corrections. It is
// derived on every computation and never persisted.
type EffectiveEvent struct {
	TrackID        string         `json:"track_id"`
	Class          string         `json:"class"`
	OriginZone     string         `json:"origin_zone,omitempty"`
	DestZone       string         `json:"dest_zone,omitempty"`
	OriginCardinal rilsa.Cardinal `json:"origin_cardinal,omitempty"`
	DestCardinal   rilsa.Cardinal `json:"dest_cardinal,omitempty"`

	// Classified is false when an endpoint matched no zone and no
	// correction supplied the missing cardinal.
	Classified   bool               `json:"classified"`
	Movement     string             `json:"movement,omitempty"`
	MovementCode rilsa.Code         `json:"movement_code,omitempty"`
	MovementType rilsa.MovementType `json:"movement_type,omitempty"`

	Discarded bool `json:"discarded"`
	Hidden    bool `json:"hidden"`
	Corrected bool `json:"corrected"`

	Positions  []Position `json:"-"`
	FrameEntry int        `json:"frame_entry"`
	FrameExit  int        `json:"frame_exit"`
}

// computeEvent classifies a raw trajectory without corrections.
func computeEvent(t Trajectory, zc *ZoneClassifier, table *rilsa.Table) EffectiveEvent {
	ev := EffectiveEvent{
		TrackID:    t.TrackID,
		Class:      t.Class,
		Positions:  t.Positions,
		FrameEntry: t.FrameEntry,
		FrameExit:  t.FrameExit,
	}
	origin, dest, _ := zc.ClassifyTrajectory(t)
	ev.OriginZone, ev.OriginCardinal = origin.ID, origin.Cardinal
	ev.DestZone, ev.DestCardinal = dest.ID, dest.Cardinal
	ev.resolveMovement(table)
	return ev
}

// ApplyCorrection overlays c on a computed event. A nil correction returns
// the event unchanged. Overridden cardinals re-resolve the movement.
func ApplyCorrection(ev EffectiveEvent, c *Correction, table *rilsa.Table) EffectiveEvent {
	if c == nil {
		return ev
	}
	ev.Corrected = true
	if c.NewOrigin != nil {
		ev.OriginCardinal = *c.NewOrigin
	}
	if c.NewDest != nil {
		ev.DestCardinal = *c.NewDest
	}
	if c.NewClass != nil {
		ev.Class = *c.NewClass
	}
	ev.Discarded = c.Discard
	ev.Hidden = c.HideInPDF
	ev.resolveMovement(table)
	return ev
}

func (ev *EffectiveEvent) resolveMovement(table *rilsa.Table) {
	ev.Movement, ev.MovementCode, ev.MovementType = "", 0, ""
	ev.Classified = false

	if rule, ok := table.Resolve(ev.OriginCardinal, ev.DestCardinal); ok {
		ev.Classified = true
		ev.Movement = rule.Code.String()
		ev.MovementCode = rule.Code
		ev.MovementType = rule.Type
		return
	}
	if ev.OriginZone != "" && ev.DestZone != "" {
		// zones without cardinals still form a traceable movement
		ev.Classified = true
		ev.Movement = ev.OriginZone + ">" + ev.DestZone
	}
}

// VisibleEvents returns the events a renderer may show: neither discarded
// nor hidden.
func VisibleEvents(events []EffectiveEvent) []EffectiveEvent {
	out := make([]EffectiveEvent, 0, len(events))
	for _, ev := range events {
		if ev.Discarded || ev.Hidden {
			continue
		}
		out = append(out, ev)
	}
	return out
}
