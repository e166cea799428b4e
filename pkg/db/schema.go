// pkg/db/schema.go
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// dialect holds the column types that differ between the supported drivers.
type dialect struct {
	serialPK  string
	timestamp string
}

var dialects = map[string]dialect{
	DriverPostgres: {serialPK: "BIGSERIAL PRIMARY KEY", timestamp: "TIMESTAMPTZ"},
	DriverSQLite:   {serialPK: "INTEGER PRIMARY KEY AUTOINCREMENT", timestamp: "DATETIME"},
}

// Money columns hold minor units (cents). The CHECK constraints are the storage-level
// barrier behind the application checks: a wallet can never go negative and a loan
// can never be paid past zero.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{serialPK}},
		email VARCHAR(255) NOT NULL UNIQUE,
		full_name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'USER' CHECK (role IN ('USER', 'ADMIN')),
		created_at {{timestamp}} NOT NULL,
		updated_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		user_id BIGINT PRIMARY KEY REFERENCES users(id),
		balance_cents BIGINT NOT NULL DEFAULT 0
			CONSTRAINT wallets_balance_non_negative CHECK (balance_cents >= 0),
		created_at {{timestamp}} NOT NULL,
		updated_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id {{serialPK}},
		user_id BIGINT NOT NULL REFERENCES users(id),
		principal_cents BIGINT NOT NULL CHECK (principal_cents > 0),
		tenure_months INTEGER NOT NULL CHECK (tenure_months BETWEEN 1 AND 60),
		interest_rate_bps INTEGER NOT NULL CHECK (interest_rate_bps BETWEEN 0 AND 5000),
		emi_cents BIGINT NOT NULL CHECK (emi_cents >= 0),
		outstanding_cents BIGINT NOT NULL
			CONSTRAINT loans_outstanding_non_negative CHECK (outstanding_cents >= 0),
		status VARCHAR(16) NOT NULL
			CHECK (status IN ('APPLIED', 'APPROVED', 'ACTIVE', 'CLOSED', 'REJECTED')),
		approved_by BIGINT REFERENCES users(id),
		approved_at {{timestamp}},
		rejection_reason TEXT,
		created_at {{timestamp}} NOT NULL,
		updated_at {{timestamp}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_user_status ON loans (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_status_created ON loans (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS repayments (
		id {{serialPK}},
		loan_id BIGINT NOT NULL REFERENCES loans(id),
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		type VARCHAR(16) NOT NULL CHECK (type IN ('PARTIAL', 'FULL')),
		status VARCHAR(16) NOT NULL CHECK (status IN ('SUCCESS', 'FAILED', 'PENDING')),
		idempotency_key VARCHAR(128) NOT NULL
			CONSTRAINT repayments_idempotency_key_unique UNIQUE,
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_repayments_loan ON repayments (loan_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id {{serialPK}},
		user_id BIGINT NOT NULL REFERENCES users(id),
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		type VARCHAR(16) NOT NULL CHECK (type IN ('CREDIT', 'DEBIT')),
		source VARCHAR(32) NOT NULL
			CHECK (source IN ('LOAN_DISBURSEMENT', 'EMI_PAYMENT', 'WALLET_TOPUP')),
		reference_id VARCHAR(128) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_reference ON transactions (reference_id)`,
}

// Schema renders the DDL statements for the given driver.
func Schema(driver string) ([]string, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("no schema for database driver %q", driver)
	}
	r := strings.NewReplacer("{{serialPK}}", d.serialPK, "{{timestamp}}", d.timestamp)
	stmts := make([]string, 0, len(schemaStatements))
	for _, s := range schemaStatements {
		stmts = append(stmts, r.Replace(s))
	}
	return stmts, nil
}

// Migrate creates any missing tables and indexes. It is safe to run repeatedly.
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	stmts, err := Schema(conn.DriverName())
	if err != nil {
		return err
	}
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: failed to begin transaction: %w", err)
	}
	defer RollbackTx(tx)

	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: statement %d failed: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: failed to commit: %w", err)
	}
	return nil
}
