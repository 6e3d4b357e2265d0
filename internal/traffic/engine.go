package traffic

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/movement.report/internal/monitoring"
)

var logf = monitoring.Component("traffic")

// ComputeAll computes the five reports from one snapshot in parallel. A
// truncated conflict scan is not fatal: the report is returned with
// Conflicts.Truncated set and the error wrapping ErrComputationTimeout.
func ComputeAll(ctx context.Context, s *Snapshot) (Report, error) {
	start := s.clock.Now()
	a := s.analyse()

	var rep Report
	var conflictErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rep.Volumes = a.volumes()
		return nil
	})
	g.Go(func() error {
		rep.Speeds = a.speeds()
		return nil
	})
	g.Go(func() error {
		var err error
		rep.Conflicts, err = a.conflicts(gctx)
		if errors.Is(err, ErrComputationTimeout) {
			conflictErr = err
			return nil
		}
		return err
	})
	g.Go(func() error {
		rep.Violations = a.violations()
		return nil
	})
	g.Go(func() error {
		rep.QC = a.qc()
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	logf("computed reports: %d tracks raw, %d counted, %d volume rows, %d conflicts (truncated=%v) in %v",
		rep.QC.TotalTracksRaw, rep.QC.CountedTracks, len(rep.Volumes),
		len(rep.Conflicts.Events), rep.Conflicts.Truncated, s.clock.Since(start))
	return rep, conflictErr
}
