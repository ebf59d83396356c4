package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quantfolio/portfolio-service/internal/portfolio"
)

// UpsertSnapshot inserts or refreshes one day of portfolio history
func (db *DB) UpsertSnapshot(s *portfolio.Snapshot) error {
	query := `
		INSERT INTO portfolio_snapshots (
			date, total_value, total_cost_basis, unrealized_pl, realized_pl,
			options_premium_net, dividends_received, total_return, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (date) DO UPDATE SET
			total_value = EXCLUDED.total_value,
			total_cost_basis = EXCLUDED.total_cost_basis,
			unrealized_pl = EXCLUDED.unrealized_pl,
			realized_pl = EXCLUDED.realized_pl,
			options_premium_net = EXCLUDED.options_premium_net,
			dividends_received = EXCLUDED.dividends_received,
			total_return = EXCLUDED.total_return,
			computed_at = EXCLUDED.computed_at
	`
	_, err := db.conn.Exec(query,
		s.Date, s.TotalValue, s.TotalCostBasis, s.UnrealizedPL, s.RealizedPL,
		s.OptionsPremiumNet, s.DividendsReceived, s.TotalReturn, time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// UpsertSnapshotBatch inserts or refreshes multiple snapshots in one transaction
func (db *DB) UpsertSnapshotBatch(snapshots []portfolio.Snapshot) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO portfolio_snapshots (
			date, total_value, total_cost_basis, unrealized_pl, realized_pl,
			options_premium_net, dividends_received, total_return, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (date) DO UPDATE SET
			total_value = EXCLUDED.total_value,
			total_cost_basis = EXCLUDED.total_cost_basis,
			unrealized_pl = EXCLUDED.unrealized_pl,
			realized_pl = EXCLUDED.realized_pl,
			options_premium_net = EXCLUDED.options_premium_net,
			dividends_received = EXCLUDED.dividends_received,
			total_return = EXCLUDED.total_return,
			computed_at = EXCLUDED.computed_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, s := range snapshots {
		_, err := stmt.Exec(
			s.Date, s.TotalValue, s.TotalCostBasis, s.UnrealizedPL, s.RealizedPL,
			s.OptionsPremiumNet, s.DividendsReceived, s.TotalReturn, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot for %s: %w", s.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSnapshotRange retrieves snapshots within a date range, ascending
func (db *DB) GetSnapshotRange(startDate, endDate time.Time) ([]portfolio.Snapshot, error) {
	query := `
		SELECT date, total_value, total_cost_basis, unrealized_pl, realized_pl,
		       options_premium_net, dividends_received, total_return
		FROM portfolio_snapshots
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []portfolio.Snapshot
	for rows.Next() {
		var s portfolio.Snapshot
		err := rows.Scan(
			&s.Date, &s.TotalValue, &s.TotalCostBasis, &s.UnrealizedPL, &s.RealizedPL,
			&s.OptionsPremiumNet, &s.DividendsReceived, &s.TotalReturn,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, nil
}

// GetLatestSnapshotDate returns the most recent snapshot date, or the
// zero time when no snapshots exist yet
func (db *DB) GetLatestSnapshotDate() (time.Time, error) {
	query := `SELECT MAX(date) FROM portfolio_snapshots`
	var latest sql.NullTime
	if err := db.conn.QueryRow(query).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest snapshot date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time, nil
}
