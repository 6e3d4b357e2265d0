package db

import (
	"fmt"

	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// ReplaceForbiddenMovements swaps the dataset's forbidden-movement list.
// Codes are checked against the stored movement rules.
func (db *DB) ReplaceForbiddenMovements(datasetID string, fm traffic.ForbiddenMovements) error {
	if err := db.requireDataset(datasetID); err != nil {
		return err
	}
	table, err := db.LoadMovementRules()
	if err != nil {
		return err
	}
	for code := range fm {
		if _, ok := table.Lookup(code); !ok {
			return &traffic.ConfigurationError{
				Field:  "forbidden_movements",
				Reason: fmt.Sprintf("unknown movement code %d", code),
			}
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM forbidden_movements WHERE dataset_id = ?`, datasetID); err != nil {
		return fmt.Errorf("failed to clear forbidden movements: %w", err)
	}
	for code, desc := range fm {
		if _, err := tx.Exec(`INSERT INTO forbidden_movements (dataset_id, code, description) VALUES (?, ?, ?)`,
			datasetID, int(code), desc); err != nil {
			return fmt.Errorf("failed to insert forbidden movement %d: %w", code, err)
		}
	}
	return tx.Commit()
}

// LoadForbiddenMovements returns the dataset's forbidden-movement list.
func (db *DB) LoadForbiddenMovements(datasetID string) (traffic.ForbiddenMovements, error) {
	return loadForbiddenMovements(db.DB, datasetID)
}

func loadForbiddenMovements(q querier, datasetID string) (traffic.ForbiddenMovements, error) {
	rows, err := q.Query(`SELECT code, description FROM forbidden_movements WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load forbidden movements: %w", err)
	}
	defer rows.Close()

	out := make(traffic.ForbiddenMovements)
	for rows.Next() {
		var code int
		var desc string
		if err := rows.Scan(&code, &desc); err != nil {
			return nil, err
		}
		out[rilsa.Code(code)] = desc
	}
	return out, rows.Err()
}
