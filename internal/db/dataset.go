package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Dataset is one recording session at one intersection.
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateDataset registers a new, empty dataset.
func (db *DB) CreateDataset(name string) (*Dataset, error) {
	ds := &Dataset{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: db.clock.Now().UTC(),
	}
	_, err := db.Exec(`INSERT INTO datasets (dataset_id, name, created_at) VALUES (?, ?, ?)`,
		ds.ID, ds.Name, ds.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}
	return ds, nil
}

// GetDataset returns the dataset or an error wrapping ErrNotFound.
func (db *DB) GetDataset(id string) (*Dataset, error) {
	return getDataset(db.DB, id)
}

func getDataset(q querier, id string) (*Dataset, error) {
	var ds Dataset
	var created int64
	err := q.QueryRow(`SELECT dataset_id, name, created_at FROM datasets WHERE dataset_id = ?`, id).
		Scan(&ds.ID, &ds.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %q: %w", id, err)
	}
	ds.CreatedAt = time.Unix(0, created).UTC()
	return &ds, nil
}

// ListDatasets returns every dataset, oldest first.
func (db *DB) ListDatasets() ([]Dataset, error) {
	rows, err := db.Query(`SELECT dataset_id, name, created_at FROM datasets ORDER BY created_at, dataset_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	out := []Dataset{}
	for rows.Next() {
		var ds Dataset
		var created int64
		if err := rows.Scan(&ds.ID, &ds.Name, &created); err != nil {
			return nil, err
		}
		ds.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, ds)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset and everything attached to it.
func (db *DB) DeleteDataset(id string) error {
	res, err := db.Exec(`DELETE FROM datasets WHERE dataset_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dataset %q: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) requireDataset(id string) error {
	_, err := db.GetDataset(id)
	return err
}
