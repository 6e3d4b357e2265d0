package traffic

import (
	"sort"

	"github.com/banshee-data/movement.report/internal/rilsa"
)

// ComputeViolations counts surviving tracks whose movement code is in the
// forbidden set. Codes that were never observed are omitted.
func ComputeViolations(s *Snapshot) []ViolationRecord {
	return s.analyse().violations()
}

func (a *analysis) violations() []ViolationRecord {
	counts := make(map[rilsa.Code]int)
	for _, i := range a.survivors() {
		code := a.events[i].MovementCode
		if code == 0 {
			continue
		}
		if _, forbidden := a.forbid[code]; forbidden {
			counts[code]++
		}
	}

	out := make([]ViolationRecord, 0, len(counts))
	for code, n := range counts {
		out = append(out, ViolationRecord{
			Code:        code,
			Description: a.forbid[code],
			Count:       n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
