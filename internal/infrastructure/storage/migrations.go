package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_rules_and_matches",
		Up:      migration002AddRulesAndMatches,
	},
	{
		Version: 3,
		Name:    "add_webhook_audit",
		Up:      migration003AddWebhookAudit,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// Amounts are stored as TEXT decimal strings to avoid float drift;
// calendar dates as TEXT in YYYY-MM-DD so range scans compare lexically.
func migration001InitialSchema(tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS bank_deposits (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			deposit_date TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deposits_tenant_date
			ON bank_deposits(tenant_id, deposit_date)`,

		`CREATE TABLE IF NOT EXISTS settlements (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			settlement_date TEXT NOT NULL,
			net_amount TEXT NOT NULL,
			transaction_count INTEGER NOT NULL DEFAULT 0,
			reconciled INTEGER NOT NULL DEFAULT 0,
			bank_deposit_id TEXT,
			bank_amount TEXT,
			variance TEXT,
			auto_reconciled INTEGER NOT NULL DEFAULT 0,
			reconciled_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_tenant_window
			ON settlements(tenant_id, reconciled, settlement_date)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			vendor_id TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			category_id TEXT NOT NULL DEFAULT '',
			payment_type TEXT NOT NULL DEFAULT '',
			entry_method TEXT NOT NULL DEFAULT '',
			tx_date TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_tenant
			ON transactions(tenant_id, category_id)`,

		`CREATE TABLE IF NOT EXISTS vendors (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			default_category_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migration002AddRulesAndMatches(tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reconciliation_rules (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			priority INTEGER NOT NULL DEFAULT 100,
			active INTEGER NOT NULL DEFAULT 1,
			vendor_id TEXT NOT NULL DEFAULT '',
			description_match TEXT NOT NULL DEFAULT '',
			amount_min TEXT,
			amount_max TEXT,
			transaction_type TEXT NOT NULL DEFAULT '',
			category_id TEXT NOT NULL,
			requires_approval INTEGER NOT NULL DEFAULT 1,
			use_count INTEGER NOT NULL DEFAULT 0,
			last_used_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_tenant_priority
			ON reconciliation_rules(tenant_id, active, priority)`,

		`CREATE TABLE IF NOT EXISTS pending_matches (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			transaction_id TEXT NOT NULL,
			rule_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			resolved_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_tenant_status
			ON pending_matches(tenant_id, status)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migration003AddWebhookAudit(tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS webhook_audit (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			received_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_audit_received
			ON webhook_audit(received_at)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
