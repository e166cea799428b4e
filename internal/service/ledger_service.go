// internal/service/ledger_service.go
package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/cache"
	"finflow-lending/internal/domain"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/util"
)

const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 100
)

// Reconciliation compares a user's ledger with their wallet balance.
type Reconciliation struct {
	UserID        int64           `json:"user_id"`
	Credits       decimal.Decimal `json:"credits"`
	Debits        decimal.Decimal `json:"debits"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	Balanced      bool            `json:"balanced"`
}

// LedgerService defines the interface for the append-only transaction ledger.
type LedgerService interface {
	// Append writes one entry inside the caller's unit of work. It must be the last
	// mutation before commit so the entry and its balance change land together.
	Append(ctx context.Context, q repository.DBExecutor, userID int64, amount decimal.Decimal,
		txType domain.TransactionType, source domain.TransactionSource, referenceID, description string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error)
	GetByReference(ctx context.Context, source domain.TransactionSource, referenceID string) (*domain.Transaction, error)
	Reconcile(ctx context.Context, userID int64) (*Reconciliation, error)
}

type ledgerService struct {
	dbExecutor      repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	uow             *UnitOfWork
	walletRepo      repository.WalletRepository
	transactionRepo repository.TransactionRepository
	cache           cache.Cache
	logger          logrus.FieldLogger
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	dbExecutor repository.DBExecutor,
	uow *UnitOfWork,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	c cache.Cache,
	logger logrus.FieldLogger,
) LedgerService {
	if c == nil {
		c = cache.Noop{}
	}
	return &ledgerService{
		dbExecutor:      dbExecutor,
		uow:             uow,
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		cache:           c,
		logger:          logger,
	}
}

func (s *ledgerService) Append(
	ctx context.Context,
	q repository.DBExecutor,
	userID int64,
	amount decimal.Decimal,
	txType domain.TransactionType,
	source domain.TransactionSource,
	referenceID, description string,
) (*domain.Transaction, error) {
	if !domain.IsValidAmount(amount) {
		return nil, fmt.Errorf("append ledger entry: %w: %s", util.ErrInvalidAmount, amount)
	}
	if txType != domain.TransactionTypeCredit && txType != domain.TransactionTypeDebit {
		return nil, fmt.Errorf("append ledger entry: %w: unknown type %q", util.ErrInvalidInput, txType)
	}
	if referenceID == "" {
		return nil, fmt.Errorf("append ledger entry: %w: reference id is required", util.ErrInvalidInput)
	}

	entry := domain.NewTransaction(userID, amount, txType, source, referenceID, description)
	if err := s.transactionRepo.CreateTransaction(ctx, q, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}

// ListTransactions returns the newest limit entries. The latest page of
// MaxTransactionLimit entries is cached; smaller limits are served from it.
func (s *ledgerService) ListTransactions(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error) {
	limit = clampLimit(limit)
	generation, cacheable := cacheGeneration(ctx, s.cache, s.logger, userID)
	key := cache.TransactionsKey(userID, generation)

	if cacheable {
		var cached []domain.Transaction
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Transaction cache read failed")
		}
		if hit {
			return firstN(cached, limit), nil
		}
	}

	transactions, err := s.transactionRepo.ListTransactionsByUserID(ctx, s.dbExecutor, userID, MaxTransactionLimit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if cacheable {
		if err := s.cache.Set(ctx, key, transactions); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Transaction cache write failed")
		}
	}
	return firstN(transactions, limit), nil
}

func (s *ledgerService) GetByReference(ctx context.Context, source domain.TransactionSource, referenceID string) (*domain.Transaction, error) {
	entry, err := s.transactionRepo.GetTransactionByReference(ctx, s.dbExecutor, source, referenceID)
	if err != nil {
		return nil, fmt.Errorf("get transaction by reference: %w", err)
	}
	return entry, nil
}

// reconcileTxOptions gives the wallet read and the ledger sum one snapshot, so a
// commit landing between them cannot look like drift.
var reconcileTxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// Reconcile sums the ledger and reads the wallet in one snapshot.
func (s *ledgerService) Reconcile(ctx context.Context, userID int64) (*Reconciliation, error) {
	var result *Reconciliation
	err := s.uow.DoWithOptions(ctx, reconcileTxOptions, func(q repository.DBExecutor) error {
		wallet, err := s.walletRepo.GetWalletByUserID(ctx, q, userID)
		if err != nil {
			return err
		}
		credits, debits, err := s.transactionRepo.SumTransactionsByUserID(ctx, q, userID)
		if err != nil {
			return err
		}
		ledgerBalance := credits.Sub(debits)
		result = &Reconciliation{
			UserID:        userID,
			Credits:       credits,
			Debits:        debits,
			LedgerBalance: ledgerBalance,
			WalletBalance: wallet.Balance,
			Balanced:      ledgerBalance.Equal(wallet.Balance),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile user %d: %w", userID, err)
	}
	if !result.Balanced {
		s.logger.WithFields(logrus.Fields{
			"user_id":        userID,
			"ledger_balance": result.LedgerBalance.String(),
			"wallet_balance": result.WalletBalance.String(),
		}).Error("Ledger and wallet balance disagree")
	}
	return result, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTransactionLimit
	case limit > MaxTransactionLimit:
		return MaxTransactionLimit
	default:
		return limit
	}
}

func firstN(transactions []domain.Transaction, n int) []domain.Transaction {
	if len(transactions) > n {
		return transactions[:n]
	}
	return transactions
}
