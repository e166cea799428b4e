// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"finflow-lending/internal/domain"

	"github.com/shopspring/decimal"
)

// WalletRepository defines the interface for wallet data operations.
type WalletRepository interface {
	// CreateWallet adds a new wallet for wallet.UserID.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.Wallet) error
	// GetWalletByUserID retrieves a user's wallet, or util.ErrWalletNotFound.
	GetWalletByUserID(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// UpdateWalletBalance adds delta (negative for a debit) to the balance and returns
	// the new balance. util.ErrInsufficientFunds is returned when the non-negative
	// balance constraint rejects the update.
	UpdateWalletBalance(ctx context.Context, q DBExecutor, userID int64, delta decimal.Decimal) (decimal.Decimal, error)
}
