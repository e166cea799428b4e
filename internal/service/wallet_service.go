// internal/service/wallet_service.go
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/cache"
	"finflow-lending/internal/domain"
	"finflow-lending/internal/events"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/util"
)

// MaxTopUpAmount caps a single wallet top-up.
var MaxTopUpAmount = decimal.NewFromInt(1_000_000)

// WalletService defines the interface for wallet-related business logic.
//
// Credit and Debit take the caller's transaction executor: they are steps of a
// larger unit of work (disbursement, repayment, top-up) and are never run alone.
type WalletService interface {
	CreateWallet(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error)
	Credit(ctx context.Context, q repository.DBExecutor, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, q repository.DBExecutor, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	TopUp(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Wallet, *domain.Transaction, error)
}

// walletService implements the WalletService interface.
type walletService struct {
	dbExecutor repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	uow        *UnitOfWork
	walletRepo repository.WalletRepository
	ledger     LedgerService
	cache      cache.Cache
	notifier   *Notifier
	logger     logrus.FieldLogger
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(
	dbExecutor repository.DBExecutor,
	uow *UnitOfWork,
	walletRepo repository.WalletRepository,
	ledger LedgerService,
	c cache.Cache,
	notifier *Notifier,
	logger logrus.FieldLogger,
) WalletService {
	if c == nil {
		c = cache.Noop{}
	}
	return &walletService{
		dbExecutor: dbExecutor,
		uow:        uow,
		walletRepo: walletRepo,
		ledger:     ledger,
		cache:      c,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *walletService) CreateWallet(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	wallet := domain.NewWallet(userID)
	if err := s.walletRepo.CreateWallet(ctx, q, wallet); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return wallet, nil
}

// Credit adds amount to the wallet and returns the new balance.
func (s *walletService) Credit(ctx context.Context, q repository.DBExecutor, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !domain.IsValidAmount(amount) {
		return decimal.Zero, fmt.Errorf("credit: %w: %s", util.ErrInvalidAmount, amount)
	}
	balance, err := s.walletRepo.UpdateWalletBalance(ctx, q, userID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit: failed to update wallet of user %d: %w", userID, err)
	}
	return balance, nil
}

// Debit removes amount from the wallet and returns the new balance. The balance
// check here is a fast path; the storage constraint behind UpdateWalletBalance
// is what stops a concurrent writer from overdrawing.
func (s *walletService) Debit(ctx context.Context, q repository.DBExecutor, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !domain.IsValidAmount(amount) {
		return decimal.Zero, fmt.Errorf("debit: %w: %s", util.ErrInvalidAmount, amount)
	}

	wallet, err := s.walletRepo.GetWalletByUserID(ctx, q, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("debit: failed to get wallet of user %d: %w", userID, err)
	}
	if wallet.Balance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("debit: %w: balance %s is less than %s", util.ErrInsufficientFunds, wallet.Balance, amount)
	}

	balance, err := s.walletRepo.UpdateWalletBalance(ctx, q, userID, amount.Neg())
	if err != nil {
		return decimal.Zero, fmt.Errorf("debit: failed to update wallet of user %d: %w", userID, err)
	}
	return balance, nil
}

func (s *walletService) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	generation, cacheable := cacheGeneration(ctx, s.cache, s.logger, userID)
	key := cache.WalletKey(userID, generation)

	if cacheable {
		var cached domain.Wallet
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Wallet cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	wallet, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if cacheable {
		if err := s.cache.Set(ctx, key, wallet); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Wallet cache write failed")
		}
	}
	return wallet, nil
}

// TopUp credits the wallet from outside the lending flow and records a
// WALLET_TOPUP ledger entry.
func (s *walletService) TopUp(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Wallet, *domain.Transaction, error) {
	if !domain.IsValidAmount(amount) || amount.GreaterThan(MaxTopUpAmount) {
		return nil, nil, fmt.Errorf("top up: %w: must be greater than 0 and at most %s", util.ErrInvalidAmount, MaxTopUpAmount)
	}

	unitID := uuid.NewString()
	reference := "topup-" + unitID
	var (
		wallet *domain.Wallet
		entry  *domain.Transaction
	)
	err := s.uow.Do(ctx, func(q repository.DBExecutor) error {
		if _, err := s.Credit(ctx, q, userID, amount); err != nil {
			return atStep("credit_wallet", err)
		}
		var err error
		entry, err = s.ledger.Append(ctx, q, userID, amount,
			domain.TransactionTypeCredit, domain.TransactionSourceWalletTopUp, reference, "Wallet top-up")
		if err != nil {
			return atStep("append_ledger", err)
		}
		wallet, err = s.walletRepo.GetWalletByUserID(ctx, q, userID)
		return err
	})
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, nil, fmt.Errorf("top up: %w", util.ErrWalletNotFound)
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":   userID,
			"unit_id":   unitID,
			"step":      failedStep(err),
			"amount":    amount.String(),
			"reference": reference,
		}).Error("Wallet top-up rolled back")
		return nil, nil, fmt.Errorf("%w: top up: %w", util.ErrTransactionFailed, err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"unit_id": unitID,
		"amount":  amount.String(),
	}).Info("Wallet topped up")
	s.notifier.Committed(ctx, userID, events.NewEvent(events.TypeWalletToppedUp, userID, entry))

	return wallet, entry, nil
}
