// internal/service/repayment_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/domain"
	"finflow-lending/internal/events"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/util"
)

// MaxIdempotencyKeyLength matches the repayments.idempotency_key column.
const MaxIdempotencyKeyLength = 128

// RepaymentService defines the interface for loan repayments.
type RepaymentService interface {
	// MakeRepayment debits the wallet and reduces the loan's outstanding amount
	// exactly once per idempotency key. Replaying a key returns the stored
	// repayment and the loan's current state.
	MakeRepayment(ctx context.Context, userID, loanID int64, amount decimal.Decimal, idempotencyKey string) (*domain.Repayment, *domain.Loan, error)
	// ListRepayments returns a loan's repayments, newest first, to the loan's owner.
	ListRepayments(ctx context.Context, loanID, requesterID int64) ([]domain.Repayment, error)
}

// RepaymentOptions tunes replay handling.
type RepaymentOptions struct {
	// StrictIdempotency rejects a replayed key whose loan or amount differs from
	// the stored repayment with util.ErrIdempotencyConflict.
	StrictIdempotency bool
}

type repaymentService struct {
	dbExecutor    repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	uow           *UnitOfWork
	loanRepo      repository.LoanRepository
	repaymentRepo repository.RepaymentRepository
	wallets       WalletService
	ledger        LedgerService
	notifier      *Notifier
	logger        logrus.FieldLogger
	opts          RepaymentOptions
}

// NewRepaymentService creates a new instance of RepaymentService.
func NewRepaymentService(
	dbExecutor repository.DBExecutor,
	uow *UnitOfWork,
	loanRepo repository.LoanRepository,
	repaymentRepo repository.RepaymentRepository,
	wallets WalletService,
	ledger LedgerService,
	notifier *Notifier,
	logger logrus.FieldLogger,
	opts RepaymentOptions,
) RepaymentService {
	return &repaymentService{
		dbExecutor:    dbExecutor,
		uow:           uow,
		loanRepo:      loanRepo,
		repaymentRepo: repaymentRepo,
		wallets:       wallets,
		ledger:        ledger,
		notifier:      notifier,
		logger:        logger,
		opts:          opts,
	}
}

type repaymentPayload struct {
	RepaymentID       int64                `json:"repayment_id"`
	LoanID            int64                `json:"loan_id"`
	Amount            decimal.Decimal      `json:"amount"`
	Type              domain.RepaymentType `json:"type"`
	OutstandingAmount decimal.Decimal      `json:"outstanding_amount"`
}

func (s *repaymentService) MakeRepayment(ctx context.Context, userID, loanID int64, amount decimal.Decimal, idempotencyKey string) (*domain.Repayment, *domain.Loan, error) {
	key := strings.TrimSpace(idempotencyKey)
	if key == "" || len(key) > MaxIdempotencyKeyLength {
		return nil, nil, fmt.Errorf("make repayment: %w: idempotency key must be 1-%d characters", util.ErrInvalidInput, MaxIdempotencyKeyLength)
	}

	// 1. A key seen before returns its stored result.
	if repayment, loan, err := s.replay(ctx, userID, loanID, amount, key); err != nil || repayment != nil {
		return repayment, loan, err
	}

	// 2-5. Fail fast on business rules before opening a transaction.
	loan, err := s.loanRepo.GetLoanByID(ctx, s.dbExecutor, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("make repayment: %w", err)
	}
	if !loan.IsOwnedBy(userID) {
		return nil, nil, fmt.Errorf("make repayment: %w: loan %d belongs to another user", util.ErrForbidden, loanID)
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, nil, fmt.Errorf("make repayment: %w: loan %d is %s", util.ErrInvalidStateTransition, loanID, loan.Status)
	}
	if !domain.IsValidAmount(amount) || amount.GreaterThan(loan.OutstandingAmount) {
		return nil, nil, fmt.Errorf("make repayment: %w: amount must be greater than 0 and at most %s", util.ErrInvalidAmount, loan.OutstandingAmount)
	}

	// 6. Debit, decrement (closing at zero), record the repayment, then the ledger entry.
	unitID := uuid.NewString()
	var (
		repayment *domain.Repayment
		updated   *domain.Loan
		entry     *domain.Transaction
	)
	err = s.uow.Do(ctx, func(q repository.DBExecutor) error {
		if _, err := s.wallets.Debit(ctx, q, userID, amount); err != nil {
			return atStep("debit_wallet", err)
		}

		outstanding, _, err := s.loanRepo.ApplyRepayment(ctx, q, loanID, amount)
		if err != nil {
			return atStep("decrement_outstanding", err)
		}

		repayment = domain.NewRepayment(loanID, amount, outstanding, key)
		if err := s.repaymentRepo.CreateRepayment(ctx, q, repayment); err != nil {
			return atStep("insert_repayment", err)
		}

		entry, err = s.ledger.Append(ctx, q, userID, amount,
			domain.TransactionTypeDebit, domain.TransactionSourceEMIPayment,
			strconv.FormatInt(repayment.ID, 10), fmt.Sprintf("Repayment for loan #%d", loanID))
		if err != nil {
			return atStep("append_ledger", err)
		}

		updated, err = s.loanRepo.GetLoanByID(ctx, q, loanID)
		return err
	})

	fields := logrus.Fields{
		"user_id":         userID,
		"loan_id":         loanID,
		"idempotency_key": key,
		"unit_id":         unitID,
		"amount":          amount.String(),
	}
	if err != nil {
		// 7. A concurrent request with the same key may have committed first. The
		// losing unit fails on the key, the balance or the loan status depending on
		// where it caught up; all of it has been rolled back, so return what the
		// winner stored.
		if stored, current, replayErr := s.replay(ctx, userID, loanID, amount, key); replayErr != nil || stored != nil {
			if stored != nil {
				s.logger.WithFields(fields).WithField("step", failedStep(err)).Info("Idempotency key race lost, returning stored repayment")
			}
			return stored, current, replayErr
		}
		switch {
		case errors.Is(err, util.ErrDuplicateEntry):
			s.logger.WithError(err).WithFields(fields).Error("Idempotency key conflict without a stored repayment")
			return nil, nil, fmt.Errorf("%w: repayment for key %q vanished after conflict", util.ErrTransactionFailed, key)
		case errors.Is(err, util.ErrInsufficientFunds),
			errors.Is(err, util.ErrInvalidAmount),
			errors.Is(err, util.ErrInvalidStateTransition):
			return nil, nil, fmt.Errorf("make repayment: %w", err)
		}
		s.logger.WithError(err).WithFields(fields).WithField("step", failedStep(err)).Error("Repayment rolled back")
		return nil, nil, fmt.Errorf("%w: repayment for loan %d: %w", util.ErrTransactionFailed, loanID, err)
	}

	fields["repayment_id"] = repayment.ID
	fields["transaction_id"] = entry.ID
	fields["type"] = repayment.Type
	s.logger.WithFields(fields).Info("Repayment recorded")

	evts := []events.Event{events.NewEvent(events.TypeRepaymentSucceeded, userID, repaymentPayload{
		RepaymentID:       repayment.ID,
		LoanID:            loanID,
		Amount:            repayment.Amount,
		Type:              repayment.Type,
		OutstandingAmount: updated.OutstandingAmount,
	})}
	if updated.Status == domain.LoanStatusClosed {
		evts = append(evts, events.NewEvent(events.TypeLoanClosed, userID, updated))
	}
	s.notifier.Committed(ctx, userID, evts...)

	return repayment, updated, nil
}

// replay returns the stored repayment for key with its loan's current state, or
// nils when the key has not been used.
func (s *repaymentService) replay(ctx context.Context, userID, loanID int64, amount decimal.Decimal, key string) (*domain.Repayment, *domain.Loan, error) {
	existing, err := s.repaymentRepo.GetRepaymentByIdempotencyKey(ctx, s.dbExecutor, key)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("make repayment: failed to look up idempotency key: %w", err)
	}

	loan, err := s.loanRepo.GetLoanByID(ctx, s.dbExecutor, existing.LoanID)
	if err != nil {
		return nil, nil, fmt.Errorf("make repayment: failed to load loan of stored repayment: %w", err)
	}
	if !loan.IsOwnedBy(userID) {
		return nil, nil, fmt.Errorf("make repayment: %w: idempotency key belongs to another user", util.ErrForbidden)
	}

	if !existing.Matches(loanID, amount) {
		entry := s.logger.WithFields(logrus.Fields{
			"user_id":          userID,
			"idempotency_key":  key,
			"stored_loan_id":   existing.LoanID,
			"stored_amount":    existing.Amount.String(),
			"requested_loan":   loanID,
			"requested_amount": amount.String(),
		})
		if s.opts.StrictIdempotency {
			entry.Warn("Rejected idempotency key replay with different parameters")
			return nil, nil, fmt.Errorf("make repayment: %w", util.ErrIdempotencyConflict)
		}
		entry.Warn("Idempotency key replayed with different parameters, returning stored repayment")
	}

	return existing, loan, nil
}

func (s *repaymentService) ListRepayments(ctx context.Context, loanID, requesterID int64) ([]domain.Repayment, error) {
	loan, err := s.loanRepo.GetLoanByID(ctx, s.dbExecutor, loanID)
	if err != nil {
		return nil, fmt.Errorf("list repayments: %w", err)
	}
	if !loan.IsOwnedBy(requesterID) {
		return nil, fmt.Errorf("list repayments: %w: loan %d belongs to another user", util.ErrForbidden, loanID)
	}

	repayments, err := s.repaymentRepo.ListRepaymentsByLoanID(ctx, s.dbExecutor, loanID)
	if err != nil {
		return nil, fmt.Errorf("list repayments: %w", err)
	}
	return repayments, nil
}
