package db

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// DatasetFile is the JSON interchange format for a whole dataset.
type DatasetFile struct {
	Name         string                 `json:"name"`
	Trajectories []traffic.Trajectory   `json:"trajectories"`
	Zones        []traffic.AccessZone   `json:"zones"`
	Corrections  []traffic.Correction   `json:"corrections,omitempty"`
	Settings     *config.AnalysisConfig `json:"settings,omitempty"`
	// Forbidden holds "code:description" lines.
	Forbidden string `json:"forbidden,omitempty"`
}

// ReadDatasetFile decodes a DatasetFile, rejecting unknown fields.
func ReadDatasetFile(r io.Reader) (*DatasetFile, error) {
	var f DatasetFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return &f, nil
}

// ImportDataset creates a dataset from f. Nothing is kept when any part
// fails validation.
func (db *DB) ImportDataset(f *DatasetFile) (*Dataset, error) {
	if err := traffic.ValidateTrajectories(f.Trajectories); err != nil {
		return nil, err
	}
	table, err := db.LoadMovementRules()
	if err != nil {
		return nil, err
	}
	var forbidden traffic.ForbiddenMovements
	if f.Forbidden != "" {
		if forbidden, err = config.ParseForbiddenMovements(f.Forbidden, table); err != nil {
			return nil, &traffic.ConfigurationError{Field: "forbidden_movements", Reason: "parse failed", Err: err}
		}
	}

	ds, err := db.CreateDataset(f.Name)
	if err != nil {
		return nil, err
	}
	if err := db.populate(ds.ID, f, forbidden); err != nil {
		if delErr := db.DeleteDataset(ds.ID); delErr != nil {
			logf("failed to remove partial dataset %s: %v", ds.ID, delErr)
		}
		return nil, err
	}
	logf("imported dataset %s (%q): %d tracks, %d zones", ds.ID, ds.Name, len(f.Trajectories), len(f.Zones))
	return ds, nil
}

func (db *DB) populate(id string, f *DatasetFile, forbidden traffic.ForbiddenMovements) error {
	if err := db.ReplaceZones(id, f.Zones); err != nil {
		return err
	}
	if err := db.InsertTrajectories(id, f.Trajectories); err != nil {
		return err
	}
	for _, c := range f.Corrections {
		if err := db.UpsertCorrection(id, c); err != nil {
			return err
		}
	}
	if f.Settings != nil {
		if err := db.PutSettings(id, f.Settings); err != nil {
			return err
		}
	}
	if len(forbidden) > 0 {
		if err := db.ReplaceForbiddenMovements(id, forbidden); err != nil {
			return err
		}
	}
	return nil
}
