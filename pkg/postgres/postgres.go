package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/WB_L3/catering/config"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"dbname": cfg.DBName,
	}).Info("Successfully connected to PostgreSQL")
	return db, nil
}

// Migrations is the ordered schema. Every statement is idempotent.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		owner_id VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		event_date DATE NOT NULL,
		doc JSONB NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		booking_id UUID NOT NULL UNIQUE REFERENCES bookings(id),
		amount NUMERIC(14,2) NOT NULL,
		downpayment NUMERIC(14,2) NOT NULL DEFAULT 0,
		remaining_balance NUMERIC(14,2) NOT NULL DEFAULT 0,
		expenses JSONB NOT NULL DEFAULT '[]',
		total_expenses NUMERIC(14,2) NOT NULL DEFAULT 0,
		profit NUMERIC(14,2) NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS cashflow_entries (
		id UUID PRIMARY KEY,
		type VARCHAR(10) NOT NULL CHECK (type IN ('income', 'expense')),
		amount NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
		description TEXT NOT NULL,
		category VARCHAR(100) NOT NULL DEFAULT '',
		date DATE NOT NULL,
		notes TEXT,
		owner_id VARCHAR(100) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_items (
		id VARCHAR(100) PRIMARY KEY,
		kind VARCHAR(20) NOT NULL,
		name VARCHAR(255) NOT NULL,
		price NUMERIC(14,2) NOT NULL CHECK (price >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// Indexes
	`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_owner_id ON bookings(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_event_date ON bookings(status, event_date)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_completed_at ON transactions(completed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_cashflow_entries_date ON cashflow_entries(date)`,
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, migration := range Migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i, err)
		}
	}

	logrus.WithField("count", len(Migrations)).Info("Database migrations completed successfully")
	return nil
}
