package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Decimal amounts are TEXT so no precision is lost.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Users, settings, customers and loans",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					email TEXT NOT NULL UNIQUE,
					name TEXT NOT NULL DEFAULT '',
					password_hash TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS user_settings (
					user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
					show_expenses INTEGER NOT NULL DEFAULT 1,
					show_loans INTEGER NOT NULL DEFAULT 1,
					show_customers INTEGER NOT NULL DEFAULT 1,
					show_sales INTEGER NOT NULL DEFAULT 1,
					show_daywise INTEGER NOT NULL DEFAULT 1,
					show_datewise INTEGER NOT NULL DEFAULT 1,
					can_add INTEGER NOT NULL DEFAULT 1,
					can_edit INTEGER NOT NULL DEFAULT 1,
					can_delete INTEGER NOT NULL DEFAULT 1,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS customers (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					phone TEXT NOT NULL DEFAULT '',
					address TEXT NOT NULL DEFAULT '',
					payment_day TEXT NOT NULL DEFAULT '',
					notes TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_customers_user ON customers(user_id, name)`,
				`CREATE TABLE IF NOT EXISTS loans (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					customer_id TEXT NOT NULL REFERENCES customers(id),
					principal TEXT NOT NULL,
					base_interest_rate TEXT NOT NULL DEFAULT '0',
					interest_rate_variance TEXT NOT NULL DEFAULT '0',
					interest_rate TEXT NOT NULL,
					interest_type TEXT NOT NULL,
					loan_date DATETIME NOT NULL,
					due_date DATETIME,
					status TEXT NOT NULL,
					notes TEXT NOT NULL DEFAULT '',
					last_reviewed_at DATETIME,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id, status)`,
				`CREATE INDEX IF NOT EXISTS idx_loans_customer ON loans(customer_id)`,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					loan_id TEXT NOT NULL REFERENCES loans(id),
					amount TEXT NOT NULL,
					type TEXT NOT NULL,
					payment_date DATETIME NOT NULL,
					notes TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_loan ON transactions(loan_id, payment_date)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Expenses and earnings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS entries (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					type TEXT NOT NULL,
					amount TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					payment_method TEXT NOT NULL,
					date DATETIME NOT NULL,
					external_id TEXT,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_entries_user_date ON entries(user_id, date)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_external ON entries(user_id, external_id) WHERE external_id IS NOT NULL`,
			)
		},
	},
	{
		Version:     3,
		Description: "Sales ledger",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS sales (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					customer_id TEXT REFERENCES customers(id),
					description TEXT NOT NULL,
					quantity TEXT NOT NULL,
					unit_price TEXT NOT NULL,
					total TEXT NOT NULL,
					sale_date DATETIME NOT NULL,
					due_date DATETIME,
					notes TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_sales_user ON sales(user_id, status)`,
				`CREATE TABLE IF NOT EXISTS sale_transactions (
					id TEXT PRIMARY KEY,
					sale_id TEXT NOT NULL REFERENCES sales(id),
					amount TEXT NOT NULL,
					payment_date DATETIME NOT NULL,
					notes TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_sale_transactions_sale ON sale_transactions(sale_id, payment_date)`,
			)
		},
	},
}

// ExpectedSchemaVersion is the latest schema version the application expects.
var ExpectedSchemaVersion = migrations[len(migrations)-1].Version

// SchemaVersion returns the highest applied migration version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// Migrate applies every pending migration, each in its own transaction.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, m.Version, m.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}
	return nil
}
