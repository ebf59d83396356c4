package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		expectedTables := []string{
			"trade_events",
			"price_data_daily",
			"cost_basis_methods",
			"portfolio_snapshots",
		}

		for _, tableName := range expectedTables {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("trade_events table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":                          "integer",
			"order_ref":                   "character varying",
			"source":                      "character varying",
			"symbol":                      "character varying",
			"kind":                        "character varying",
			"quantity":                    "numeric",
			"price_per_unit":              "numeric",
			"total_amount":                "numeric",
			"fees":                        "numeric",
			"option_action":               "character varying",
			"option_contracts":            "numeric",
			"option_premium_per_contract": "numeric",
			"executed_at":                 "timestamp without time zone",
			"created_at":                  "timestamp without time zone",
		}

		for colName, expectedType := range expectedColumns {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'trade_events' AND column_name = $1
			`, colName).Scan(&actualType)

			require.NoError(t, err, "column %s should exist in trade_events table", colName)
			assert.Equal(t, expectedType, actualType, "column %s should have type %s", colName, expectedType)
		}
	})

	t.Run("price_data_daily table has correct columns", func(t *testing.T) {
		expectedColumns := []string{
			"id", "symbol", "date", "open", "high", "low", "close",
			"volume", "created_at",
		}

		for _, colName := range expectedColumns {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.columns
					WHERE table_name = 'price_data_daily' AND column_name = $1
				)
			`, colName).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "column %s should exist in price_data_daily table", colName)
		}
	})

	t.Run("cost_basis_methods table has correct columns", func(t *testing.T) {
		expectedColumns := []string{"symbol", "method", "updated_at"}

		for _, colName := range expectedColumns {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.columns
					WHERE table_name = 'cost_basis_methods' AND column_name = $1
				)
			`, colName).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "column %s should exist in cost_basis_methods table", colName)
		}
	})

	t.Run("portfolio_snapshots table has correct columns", func(t *testing.T) {
		expectedColumns := []string{
			"date", "total_value", "total_cost_basis", "unrealized_pl",
			"realized_pl", "options_premium_net", "dividends_received",
			"total_return", "computed_at",
		}

		for _, colName := range expectedColumns {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.columns
					WHERE table_name = 'portfolio_snapshots' AND column_name = $1
				)
			`, colName).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "column %s should exist in portfolio_snapshots table", colName)
		}
	})

	t.Run("indexes exist", func(t *testing.T) {
		expectedIndexes := []struct {
			table string
			index string
		}{
			{"trade_events", "idx_trade_events_symbol"},
			{"trade_events", "idx_trade_events_executed_at"},
			{"trade_events", "idx_trade_events_order_ref"},
			{"price_data_daily", "idx_price_data_symbol"},
			{"price_data_daily", "idx_price_data_date"},
		}

		for _, idx := range expectedIndexes {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_indexes
					WHERE tablename = $1 AND indexname = $2
				)
			`, idx.table, idx.index).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "index %s should exist on table %s", idx.index, idx.table)
		}
	})

	t.Run("unique constraints exist", func(t *testing.T) {
		// price_data_daily (symbol, date) is a table constraint.
		var priceUnique bool
		err := testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_constraint c
				JOIN pg_class t ON c.conrelid = t.oid
				WHERE t.relname = 'price_data_daily'
				AND c.contype = 'u'
			)
		`).Scan(&priceUnique)
		require.NoError(t, err)
		assert.True(t, priceUnique, "price_data_daily should have unique constraint on (symbol, date)")

		// Order ref dedup is a partial unique index, not a constraint:
		// manual entries without an order_ref are exempt.
		var orderRefDef string
		err = testDB.GetRawConn().QueryRow(`
			SELECT indexdef FROM pg_indexes
			WHERE tablename = 'trade_events' AND indexname = 'idx_trade_events_order_ref'
		`).Scan(&orderRefDef)
		require.NoError(t, err)
		assert.Contains(t, orderRefDef, "UNIQUE", "order ref index should be unique")
		assert.Contains(t, orderRefDef, "WHERE", "order ref index should be partial")
	})

	t.Run("primary keys exist", func(t *testing.T) {
		expectedPKs := []string{"trade_events", "price_data_daily", "cost_basis_methods", "portfolio_snapshots"}

		for _, table := range expectedPKs {
			var hasPK bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_constraint c
					JOIN pg_class t ON c.conrelid = t.oid
					WHERE t.relname = $1
					AND c.contype = 'p'
				)
			`, table).Scan(&hasPK)

			require.NoError(t, err)
			assert.True(t, hasPK, "table %s should have a primary key", table)
		}
	})

	t.Run("duplicate order refs are rejected", func(t *testing.T) {
		conn := testDB.GetRawConn()

		insert := `
			INSERT INTO trade_events (order_ref, source, symbol, kind, quantity, price_per_unit, total_amount, fees, executed_at)
			VALUES ($1, $2, 'AAPL', 'BUY', 10, 150, 1500, 0, NOW())
		`
		_, err := conn.Exec(insert, "ORD-MIG-1", "robinhood")
		require.NoError(t, err)

		_, err = conn.Exec(insert, "ORD-MIG-1", "robinhood")
		assert.Error(t, err, "duplicate (order_ref, source) should violate the unique index")

		// Same ref from a different source is a different order.
		_, err = conn.Exec(insert, "ORD-MIG-1", "schwab")
		assert.NoError(t, err)

		// Manual entries carry no order ref and never collide.
		manual := `
			INSERT INTO trade_events (order_ref, source, symbol, kind, quantity, price_per_unit, total_amount, fees, executed_at)
			VALUES ('', 'api', 'AAPL', 'BUY', 5, 150, 750, 0, NOW())
		`
		_, err = conn.Exec(manual)
		require.NoError(t, err)
		_, err = conn.Exec(manual)
		assert.NoError(t, err, "empty order refs are exempt from the unique index")
	})
}
