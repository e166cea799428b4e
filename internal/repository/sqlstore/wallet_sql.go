// internal/repository/sqlstore/wallet_sql.go
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finflow-lending/internal/domain"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/util"
	"finflow-lending/pkg/db"

	"github.com/shopspring/decimal"
)

type walletRow struct {
	UserID       int64     `db:"user_id"`
	BalanceCents int64     `db:"balance_cents"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r walletRow) toDomain() *domain.Wallet {
	return &domain.Wallet{
		UserID:    r.UserID,
		Balance:   domain.FromMinorUnits(r.BalanceCents),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// WalletRepository implements repository.WalletRepository on sqlx.
type WalletRepository struct{}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository() repository.WalletRepository {
	return &WalletRepository{}
}

// CreateWallet inserts a new wallet using the provided DBExecutor.
func (r *WalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	query := q.Rebind(`INSERT INTO wallets (user_id, balance_cents, created_at, updated_at) VALUES (?, ?, ?, ?)`)
	_, err := q.ExecContext(ctx, query, wallet.UserID, domain.ToMinorUnits(wallet.Balance), wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("wallet for user %d: %w", wallet.UserID, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// GetWalletByUserID retrieves a user's wallet using the provided DBExecutor.
func (r *WalletRepository) GetWalletByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	var row walletRow
	query := q.Rebind(`SELECT user_id, balance_cents, created_at, updated_at FROM wallets WHERE user_id = ?`)
	if err := q.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for user %d: %w", userID, err)
	}
	return row.toDomain(), nil
}

// UpdateWalletBalance applies delta to the balance in a single statement so that
// concurrent writers to the same wallet are serialized by the row lock.
func (r *WalletRepository) UpdateWalletBalance(ctx context.Context, q repository.DBExecutor, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := q.Rebind(`UPDATE wallets SET balance_cents = balance_cents + ?, updated_at = ?
		WHERE user_id = ? RETURNING balance_cents`)

	var balanceCents int64
	err := q.QueryRowContext(ctx, query, domain.ToMinorUnits(delta), domain.Now(), userID).Scan(&balanceCents)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return decimal.Zero, util.ErrWalletNotFound
	case db.IsCheckViolation(err):
		return decimal.Zero, fmt.Errorf("balance of user %d would become negative: %w", userID, util.ErrInsufficientFunds)
	case err != nil:
		return decimal.Zero, fmt.Errorf("failed to update wallet balance for user %d: %w", userID, err)
	}
	return domain.FromMinorUnits(balanceCents), nil
}
