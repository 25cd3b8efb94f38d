package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // embedded pure-Go sqlite driver
)

func init() {
	// sqlx does not know the modernc driver name out of the box.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SetupDatabase initializes the database connection for the configured driver
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings. sqlite allows a single writer, so the
	// pool is pinned to one connection there.
	if cfg.Database.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	// Create tables if they don't exist
	if err := CreateTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// CreateTables creates the necessary tables in the database. The DDL sticks
// to types both sqlite and postgres accept.
func CreateTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			full_name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create sessions table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			username VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create businesses table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS businesses (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			owner_id VARCHAR(36) NOT NULL REFERENCES users(id),
			business_type VARCHAR(100) NOT NULL,
			tax_number VARCHAR(100) NOT NULL,
			address TEXT NOT NULL,
			tax_year VARCHAR(10) NOT NULL,
			vat_registered BOOLEAN NOT NULL,
			accounting_period_end VARCHAR(10) NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create business_users table (membership, owner included)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS business_users (
			business_id VARCHAR(36) NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (business_id, user_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create transactions table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(36) PRIMARY KEY,
			business_id VARCHAR(36) NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
			date VARCHAR(10) NOT NULL,
			description TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			category VARCHAR(100) NOT NULL,
			reference TEXT NOT NULL,
			imported_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_business_users_user_id ON business_users(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_business_id ON transactions(business_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_business_date ON transactions(business_id, date)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
