package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/models"
)

const tradeEventColumns = `id, order_ref, source, symbol, kind, quantity, price_per_unit,
	       total_amount, fees, option_action, option_contracts, option_premium_per_contract,
	       executed_at, created_at`

// CreateTradeEvent inserts a new trade event
func (db *DB) CreateTradeEvent(t *models.TradeEvent) error {
	query := `
		INSERT INTO trade_events (
			order_ref, source, symbol, kind, quantity, price_per_unit,
			total_amount, fees, option_action, option_contracts,
			option_premium_per_contract, executed_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id
	`
	now := time.Now()
	executedAt := t.ExecutedAt
	if executedAt.IsZero() {
		executedAt = now
	}

	var action, contracts, premium interface{}
	if t.OptionDetails != nil {
		action = t.OptionDetails.Action
		contracts = t.OptionDetails.Contracts
		premium = t.OptionDetails.PremiumPerContract
	}

	err := db.conn.QueryRow(query,
		t.OrderRef, t.Source, t.Symbol, t.Kind, t.Quantity, t.PricePerUnit,
		t.TotalAmount, t.Fees, action, contracts, premium, executedAt, now,
	).Scan(&t.ID)

	if err != nil {
		return fmt.Errorf("failed to create trade event: %w", err)
	}
	t.ExecutedAt = executedAt
	t.CreatedAt = now
	return nil
}

// CreateTradeEventsBatch inserts multiple trade events in one transaction
func (db *DB) CreateTradeEventsBatch(events []*models.TradeEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO trade_events (
			order_ref, source, symbol, kind, quantity, price_per_unit,
			total_amount, fees, option_action, option_contracts,
			option_premium_per_contract, executed_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, t := range events {
		executedAt := t.ExecutedAt
		if executedAt.IsZero() {
			executedAt = now
		}
		var action, contracts, premium interface{}
		if t.OptionDetails != nil {
			action = t.OptionDetails.Action
			contracts = t.OptionDetails.Contracts
			premium = t.OptionDetails.PremiumPerContract
		}
		_, err := stmt.Exec(
			t.OrderRef, t.Source, t.Symbol, t.Kind, t.Quantity, t.PricePerUnit,
			t.TotalAmount, t.Fees, action, contracts, premium, executedAt, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert trade event for %s: %w", t.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTradeEvents retrieves all trade events in execution order
func (db *DB) GetTradeEvents() ([]models.TradeEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM trade_events
		ORDER BY executed_at ASC, id ASC
	`, tradeEventColumns)
	return db.scanTradeEvents(db.conn.Query(query))
}

// GetTradeEventsBySymbol retrieves a symbol's trade events in execution order
func (db *DB) GetTradeEventsBySymbol(symbol string) ([]models.TradeEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM trade_events
		WHERE symbol = $1
		ORDER BY executed_at ASC, id ASC
	`, tradeEventColumns)
	return db.scanTradeEvents(db.conn.Query(query, symbol))
}

// GetTradeEventsUpTo retrieves all trade events executed before the cutoff
func (db *DB) GetTradeEventsUpTo(cutoff time.Time) ([]models.TradeEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM trade_events
		WHERE executed_at < $1
		ORDER BY executed_at ASC, id ASC
	`, tradeEventColumns)
	return db.scanTradeEvents(db.conn.Query(query, cutoff))
}

// TradeEventExistsByOrderRef checks if an event with the given order_ref and source already exists
func (db *DB) TradeEventExistsByOrderRef(orderRef, source string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM trade_events WHERE order_ref = $1 AND source = $2)`
	var exists bool
	err := db.conn.QueryRow(query, orderRef, source).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check trade event existence: %w", err)
	}
	return exists, nil
}

// GetTradedSymbols retrieves the distinct set of symbols with at least one event
func (db *DB) GetTradedSymbols() ([]string, error) {
	query := `SELECT DISTINCT symbol FROM trade_events ORDER BY symbol ASC`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query traded symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}

// DeleteTradeEvent removes a trade event by ID
func (db *DB) DeleteTradeEvent(id int) error {
	query := `DELETE FROM trade_events WHERE id = $1`
	result, err := db.conn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade event: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("trade event not found: %d", id)
	}
	return nil
}

func (db *DB) scanTradeEvents(rows *sql.Rows, err error) ([]models.TradeEvent, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query trade events: %w", err)
	}
	defer rows.Close()

	var events []models.TradeEvent
	for rows.Next() {
		var t models.TradeEvent
		var orderRef, source sql.NullString
		var quantity, pricePerUnit, fees sql.NullString
		var optionAction, optionContracts, optionPremium sql.NullString

		err := rows.Scan(
			&t.ID, &orderRef, &source, &t.Symbol, &t.Kind, &quantity, &pricePerUnit,
			&t.TotalAmount, &fees, &optionAction, &optionContracts, &optionPremium,
			&t.ExecutedAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade event: %w", err)
		}

		if orderRef.Valid {
			t.OrderRef = orderRef.String
		}
		if source.Valid {
			t.Source = source.String
		}
		if quantity.Valid {
			t.Quantity, _ = decimal.NewFromString(quantity.String)
		}
		if pricePerUnit.Valid {
			t.PricePerUnit, _ = decimal.NewFromString(pricePerUnit.String)
		}
		if fees.Valid {
			t.Fees, _ = decimal.NewFromString(fees.String)
		}
		if optionAction.Valid {
			details := &models.OptionDetails{Action: optionAction.String}
			if optionContracts.Valid {
				details.Contracts, _ = decimal.NewFromString(optionContracts.String)
			}
			if optionPremium.Valid {
				details.PremiumPerContract, _ = decimal.NewFromString(optionPremium.String)
			}
			t.OptionDetails = details
		}

		events = append(events, t)
	}

	return events, nil
}
