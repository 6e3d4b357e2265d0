package db

import (
	"database/sql"
	"fmt"

	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// UpsertCorrection stores c, replacing any earlier correction for the same
// track (last write wins). A track that is not part of the dataset returns
// a *traffic.CorrectionConflictError.
func (db *DB) UpsertCorrection(datasetID string, c traffic.Correction) error {
	if err := traffic.ValidateCorrection(c); err != nil {
		return err
	}
	if err := db.requireDataset(datasetID); err != nil {
		return err
	}
	ok, err := db.trackExists(datasetID, c.TrackID)
	if err != nil {
		return err
	}
	if !ok {
		return &traffic.CorrectionConflictError{TrackID: c.TrackID}
	}

	_, err = db.Exec(`INSERT INTO corrections
		(dataset_id, track_id, new_origin, new_dest, new_class, discard, hide_in_pdf, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dataset_id, track_id) DO UPDATE SET
			new_origin = excluded.new_origin,
			new_dest = excluded.new_dest,
			new_class = excluded.new_class,
			discard = excluded.discard,
			hide_in_pdf = excluded.hide_in_pdf,
			updated_at = excluded.updated_at`,
		datasetID, c.TrackID,
		nullCardinal(c.NewOrigin), nullCardinal(c.NewDest), nullString(c.NewClass),
		c.Discard, c.HideInPDF, db.nowNanos())
	if err != nil {
		return fmt.Errorf("failed to store correction for %q: %w", c.TrackID, err)
	}
	return nil
}

// DeleteCorrection removes the correction for a track, if any. It reports
// whether a correction existed.
func (db *DB) DeleteCorrection(datasetID, trackID string) (bool, error) {
	res, err := db.Exec(`DELETE FROM corrections WHERE dataset_id = ? AND track_id = ?`, datasetID, trackID)
	if err != nil {
		return false, fmt.Errorf("failed to delete correction for %q: %w", trackID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// LoadCorrections returns the dataset's corrections, oldest write first.
func (db *DB) LoadCorrections(datasetID string) ([]traffic.Correction, error) {
	return loadCorrections(db.DB, datasetID)
}

func loadCorrections(q querier, datasetID string) ([]traffic.Correction, error) {
	rows, err := q.Query(`SELECT track_id, new_origin, new_dest, new_class, discard, hide_in_pdf
		FROM corrections WHERE dataset_id = ? ORDER BY updated_at, track_id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections: %w", err)
	}
	defer rows.Close()

	var out []traffic.Correction
	for rows.Next() {
		var c traffic.Correction
		var origin, dest, class sql.NullString
		if err := rows.Scan(&c.TrackID, &origin, &dest, &class, &c.Discard, &c.HideInPDF); err != nil {
			return nil, err
		}
		if origin.Valid {
			v := rilsa.Cardinal(origin.String)
			c.NewOrigin = &v
		}
		if dest.Valid {
			v := rilsa.Cardinal(dest.String)
			c.NewDest = &v
		}
		if class.Valid {
			v := class.String
			c.NewClass = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullCardinal(c *rilsa.Cardinal) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*c), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
