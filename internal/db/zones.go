package db

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/movement.report/internal/geom"
	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// ReplaceZones swaps the dataset's access zones for a new, validated set.
// Configuration order is preserved.
func (db *DB) ReplaceZones(datasetID string, zones []traffic.AccessZone) error {
	if err := traffic.ValidateZones(zones); err != nil {
		return err
	}
	if err := db.requireDataset(datasetID); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM access_zones WHERE dataset_id = ?`, datasetID); err != nil {
		return fmt.Errorf("failed to clear zones: %w", err)
	}
	for i, z := range zones {
		poly, err := json.Marshal(z.Polygon)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO access_zones (dataset_id, zone_id, position, cardinal, polygon_json)
			VALUES (?, ?, ?, ?, ?)`, datasetID, z.ID, i, string(z.Cardinal), string(poly)); err != nil {
			return fmt.Errorf("failed to insert zone %q: %w", z.ID, err)
		}
	}
	return tx.Commit()
}

// LoadZones returns the dataset's zones in configuration order.
func (db *DB) LoadZones(datasetID string) ([]traffic.AccessZone, error) {
	return loadZones(db.DB, datasetID)
}

func loadZones(q querier, datasetID string) ([]traffic.AccessZone, error) {
	rows, err := q.Query(`SELECT zone_id, cardinal, polygon_json FROM access_zones
		WHERE dataset_id = ? ORDER BY position`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}
	defer rows.Close()

	var out []traffic.AccessZone
	for rows.Next() {
		var z traffic.AccessZone
		var cardinal, poly string
		if err := rows.Scan(&z.ID, &cardinal, &poly); err != nil {
			return nil, err
		}
		z.Cardinal = rilsa.Cardinal(cardinal)
		var p geom.Polygon
		if err := json.Unmarshal([]byte(poly), &p); err != nil {
			return nil, fmt.Errorf("corrupt polygon for zone %q: %w", z.ID, err)
		}
		z.Polygon = p
		out = append(out, z)
	}
	return out, rows.Err()
}
