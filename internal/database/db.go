// Package database persists trade events, daily prices, per-symbol
// accounting method overrides, and portfolio snapshots in PostgreSQL.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the PostgreSQL connection pool.
type DB struct {
	conn *sql.DB
}

// New opens a connection pool and verifies it with a ping.
func New(connStr string) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
