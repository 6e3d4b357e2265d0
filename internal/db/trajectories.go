package db

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/movement.report/internal/traffic"
)

// InsertTrajectories stores ingested tracks. Trajectories are immutable:
// a track id that already exists in the dataset is an error.
func (db *DB) InsertTrajectories(datasetID string, trajectories []traffic.Trajectory) error {
	if err := traffic.ValidateTrajectories(trajectories); err != nil {
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

	stmt, err := tx.Prepare(`INSERT INTO trajectories
		(dataset_id, track_id, class, frame_entry, frame_exit, confidence, positions_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trajectories {
		positions, err := json.Marshal(t.Positions)
		if err != nil {
			return fmt.Errorf("failed to encode positions for %q: %w", t.TrackID, err)
		}
		if _, err := stmt.Exec(datasetID, t.TrackID, t.Class, t.FrameEntry, t.FrameExit, t.Confidence, string(positions)); err != nil {
			return fmt.Errorf("failed to insert track %q: %w", t.TrackID, err)
		}
	}
	return tx.Commit()
}

// LoadTrajectories returns the dataset's tracks ordered by track id.
func (db *DB) LoadTrajectories(datasetID string) ([]traffic.Trajectory, error) {
	return loadTrajectories(db.DB, datasetID)
}

func loadTrajectories(q querier, datasetID string) ([]traffic.Trajectory, error) {
	rows, err := q.Query(`SELECT track_id, class, frame_entry, frame_exit, confidence, positions_json
		FROM trajectories WHERE dataset_id = ? ORDER BY track_id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trajectories: %w", err)
	}
	defer rows.Close()

	var out []traffic.Trajectory
	for rows.Next() {
		var t traffic.Trajectory
		var positions string
		if err := rows.Scan(&t.TrackID, &t.Class, &t.FrameEntry, &t.FrameExit, &t.Confidence, &positions); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(positions), &t.Positions); err != nil {
			return nil, fmt.Errorf("corrupt positions for %q: %w", t.TrackID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (db *DB) trackExists(datasetID, trackID string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM trajectories WHERE dataset_id = ? AND track_id = ?`,
		datasetID, trackID).Scan(&n)
	return n > 0, err
}
