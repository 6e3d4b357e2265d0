package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/movement.report/internal/config"
)

// PutSettings stores per-dataset overrides. Only the fields set in cfg are
// kept; everything else falls back to the server defaults at load time.
func (db *DB) PutSettings(datasetID string, cfg *config.AnalysisConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := db.requireDataset(datasetID); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO analysis_settings (dataset_id, settings_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (dataset_id) DO UPDATE SET settings_json = excluded.settings_json, updated_at = excluded.updated_at`,
		datasetID, string(data), db.nowNanos())
	if err != nil {
		return fmt.Errorf("failed to store settings: %w", err)
	}
	return nil
}

// LoadSettings returns the stored overrides, or an empty config when the
// dataset has none.
func (db *DB) LoadSettings(datasetID string) (*config.AnalysisConfig, error) {
	return loadSettings(db.DB, datasetID)
}

func loadSettings(q querier, datasetID string) (*config.AnalysisConfig, error) {
	var data string
	err := q.QueryRow(`SELECT settings_json FROM analysis_settings WHERE dataset_id = ?`, datasetID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return config.EmptyAnalysisConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	cfg := config.EmptyAnalysisConfig()
	if err := json.Unmarshal([]byte(data), cfg); err != nil {
		return nil, fmt.Errorf("corrupt settings: %w", err)
	}
	return cfg, nil
}
