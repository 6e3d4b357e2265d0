package db

import (
	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// LoadSnapshot reads one consistent view of a dataset and validates it.
// Stored settings override defaults field by field. The effective config is
// returned alongside the snapshot so callers can honour conflict_timeout.
func (db *DB) LoadSnapshot(datasetID string, defaults *config.AnalysisConfig) (*traffic.Snapshot, *config.AnalysisConfig, error) {
	if defaults == nil {
		defaults = config.EmptyAnalysisConfig()
	}

	// reads share one transaction so a concurrent writer cannot split them
	tx, err := db.Begin()
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	if _, err := getDataset(tx, datasetID); err != nil {
		return nil, nil, err
	}
	trajectories, err := loadTrajectories(tx, datasetID)
	if err != nil {
		return nil, nil, err
	}
	zones, err := loadZones(tx, datasetID)
	if err != nil {
		return nil, nil, err
	}
	rules, err := loadMovementRules(tx)
	if err != nil {
		return nil, nil, err
	}
	corrections, err := loadCorrections(tx, datasetID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := loadSettings(tx, datasetID)
	if err != nil {
		return nil, nil, err
	}
	forbidden, err := loadForbiddenMovements(tx, datasetID)
	if err != nil {
		return nil, nil, err
	}

	cfg := defaults.Merge(stored)
	snap, err := traffic.NewSnapshot(trajectories, traffic.Overlay{
		Zones:       zones,
		Rules:       rules,
		Corrections: corrections,
		Settings:    cfg.ToSettings(),
		Forbidden:   forbidden,
		Calibration: cfg.Calibration(),
		Clock:       db.clock,
	})
	if err != nil {
		return nil, nil, err
	}
	logf("loaded dataset %s: %d tracks, %d zones, %d corrections", datasetID, snap.TrackCount(), len(zones), len(corrections))
	return snap, cfg, nil
}
