package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// UpsertPriceBar inserts or refreshes one day of price data
func (db *DB) UpsertPriceBar(p *models.PriceBar) error {
	query := `
		INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
		RETURNING id
	`
	err := db.conn.QueryRow(query,
		p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, time.Now(),
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert price bar: %w", err)
	}
	return nil
}

// UpsertPriceBarBatch inserts or refreshes multiple price bars efficiently
func (db *DB) UpsertPriceBarBatch(bars []*models.PriceBar) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range bars {
		_, err := stmt.Exec(p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, now)
		if err != nil {
			return fmt.Errorf("failed to insert price bar for %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceHistory retrieves price bars for a symbol within a date range, ascending
func (db *DB) GetPriceHistory(symbol string, startDate, endDate time.Time) ([]*models.PriceBar, error) {
	query := `
		SELECT id, symbol, date, open, high, low, close, volume, created_at
		FROM price_data_daily
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	var bars []*models.PriceBar
	for rows.Next() {
		var p models.PriceBar
		err := rows.Scan(
			&p.ID, &p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		bars = append(bars, &p)
	}

	return bars, nil
}

// GetLatestPriceBar retrieves the most recent price bar for a symbol
func (db *DB) GetLatestPriceBar(symbol string) (*models.PriceBar, error) {
	query := `
		SELECT id, symbol, date, open, high, low, close, volume, created_at
		FROM price_data_daily
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`
	var p models.PriceBar
	err := db.conn.QueryRow(query, symbol).Scan(
		&p.ID, &p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no price data found for %s", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price bar: %w", err)
	}
	return &p, nil
}

// GetCloseSeries retrieves the daily close series for a symbol within a
// date range, ascending, in the shape the portfolio aggregator consumes
func (db *DB) GetCloseSeries(symbol string, startDate, endDate time.Time) ([]models.PricePoint, error) {
	query := `
		SELECT date, close
		FROM price_data_daily
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get close series: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan close point: %w", err)
		}
		points = append(points, p)
	}

	return points, nil
}
