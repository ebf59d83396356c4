package database

import (
	"fmt"
	"time"

	"github.com/quantfolio/portfolio-service/internal/costbasis"
)

// UpsertMethodOverride sets the cost basis method for one symbol
func (db *DB) UpsertMethodOverride(symbol string, method costbasis.Method) error {
	query := `
		INSERT INTO cost_basis_methods (symbol, method, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET
			method = EXCLUDED.method,
			updated_at = EXCLUDED.updated_at
	`
	_, err := db.conn.Exec(query, symbol, method.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert method override: %w", err)
	}
	return nil
}

// GetMethodOverrides retrieves all per-symbol method overrides
func (db *DB) GetMethodOverrides() (map[string]costbasis.Method, error) {
	query := `SELECT symbol, method FROM cost_basis_methods ORDER BY symbol ASC`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query method overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]costbasis.Method)
	for rows.Next() {
		var symbol, raw string
		if err := rows.Scan(&symbol, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan method override: %w", err)
		}
		method, err := costbasis.ParseMethod(raw)
		if err != nil {
			// Unparseable rows are skipped rather than failing the load.
			continue
		}
		overrides[symbol] = method
	}

	return overrides, nil
}

// DeleteMethodOverride clears the override for a symbol
func (db *DB) DeleteMethodOverride(symbol string) error {
	query := `DELETE FROM cost_basis_methods WHERE symbol = $1`
	result, err := db.conn.Exec(query, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete method override: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("method override not found: %s", symbol)
	}
	return nil
}
