package traffic

// ComputeQCSummary reconciles every ingested track against the counted set.
// Discarded, unclassified and quality-filtered tracks are tallied under
// ClassIgnore, so CountedTracks == TotalTracksRaw - CountsByClass["ignore"].
func ComputeQCSummary(s *Snapshot) QCSummary {
	return s.analyse().qc()
}

func (a *analysis) qc() QCSummary {
	q := QCSummary{
		TotalTracksRaw:   len(a.events),
		CountsByClass:    map[string]int{ClassIgnore: 0},
		CountsByMovement: make(map[string]int),
	}
	for i, ev := range a.events {
		if ev.Hidden {
			q.HiddenTracks++
		}
		switch a.status[i] {
		case statusDiscarded:
			q.IgnoredDiscarded++
		case statusUnclassified:
			q.IgnoredUnclassified++
		case statusFiltered:
			q.IgnoredFiltered++
		default:
			q.CountsByClass[ev.Class]++
			q.CountsByMovement[ev.Movement]++
			q.CountedTracks++
			continue
		}
		q.CountsByClass[ClassIgnore]++
	}
	return q
}
