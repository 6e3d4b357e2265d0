package traffic

import (
	"sort"
	"time"

	"github.com/banshee-data/movement.report/internal/rilsa"
)

// ComputeVolumes buckets surviving tracks by the interval containing their
// entry timestamp and counts them per movement and class.
func ComputeVolumes(s *Snapshot) []IntervalVolumeRow {
	return s.analyse().volumes()
}

type volumeKey struct {
	start    int64
	movement string
}

func (a *analysis) volumes() []IntervalVolumeRow {
	interval := time.Duration(a.settings.IntervalMinutes) * time.Minute
	rows := make(map[volumeKey]*IntervalVolumeRow)

	for _, i := range a.survivors() {
		ev := a.events[i]
		start := BucketStart(ev.Positions[0].Timestamp, a.loc, a.settings.IntervalMinutes)
		k := volumeKey{start: start.UnixNano(), movement: ev.Movement}
		row, ok := rows[k]
		if !ok {
			row = &IntervalVolumeRow{
				IntervalStart: start,
				IntervalEnd:   start.Add(interval),
				Movement:      ev.Movement,
				MovementCode:  ev.MovementCode,
				CountsByClass: make(map[string]int),
			}
			rows[k] = row
		}
		row.CountsByClass[ev.Class]++
		row.Total++
	}

	out := make([]IntervalVolumeRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IntervalStart.Equal(out[j].IntervalStart) {
			return out[i].IntervalStart.Before(out[j].IntervalStart)
		}
		return movementLess(out[i].MovementCode, out[i].Movement, out[j].MovementCode, out[j].Movement)
	})
	return out
}

// BucketStart returns the start of the interval containing ts, with
// boundaries at local midnight plus multiples of intervalMinutes.
func BucketStart(ts time.Time, loc *time.Location, intervalMinutes int) time.Time {
	local := ts.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	elapsed := local.Sub(midnight)
	width := time.Duration(intervalMinutes) * time.Minute
	return midnight.Add(elapsed / width * width)
}

// movementLess orders RILSA codes numerically ahead of zone-pair labels.
func movementLess(codeA rilsa.Code, labelA string, codeB rilsa.Code, labelB string) bool {
	switch {
	case codeA != 0 && codeB != 0:
		return codeA < codeB
	case codeA != 0:
		return true
	case codeB != 0:
		return false
	}
	return labelA < labelB
}
