package db

import (
	"fmt"

	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// LoadMovementRules builds the movement table from the seeded
// movement_rules rows. An incomplete or inconsistent table is an error
// wrapping both traffic.ErrConfiguration and rilsa.ErrInvalidTable.
func (db *DB) LoadMovementRules() (*rilsa.Table, error) {
	return loadMovementRules(db.DB)
}

func loadMovementRules(q querier) (*rilsa.Table, error) {
	rows, err := q.Query(`SELECT origin, dest, code, movement_type FROM movement_rules ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to load movement rules: %w", err)
	}
	defer rows.Close()

	var rules []rilsa.Rule
	for rows.Next() {
		var r rilsa.Rule
		var origin, dest, typ string
		var code int
		if err := rows.Scan(&origin, &dest, &code, &typ); err != nil {
			return nil, err
		}
		r.Origin, r.Dest = rilsa.Cardinal(origin), rilsa.Cardinal(dest)
		r.Code, r.Type = rilsa.Code(code), rilsa.MovementType(typ)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	table, err := rilsa.NewTable(rules)
	if err != nil {
		return nil, &traffic.ConfigurationError{Field: "movement_rules", Reason: "stored table is unusable", Err: err}
	}
	return table, nil
}
