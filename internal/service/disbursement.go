// internal/service/disbursement.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/domain"
	"finflow-lending/internal/events"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/util"
)

type disbursementPayload struct {
	LoanID            int64           `json:"loan_id"`
	Amount            decimal.Decimal `json:"amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	TransactionID     int64           `json:"transaction_id"`
}

// disburse activates an APPLIED loan and pays the principal into the borrower's
// wallet as one unit of work:
//
//	APPLIED -> ACTIVE (approved_by/approved_at record the APPROVED step)
//	wallet += principal
//	ledger CREDIT / LOAN_DISBURSEMENT, reference = loan id
//
// If another request approved or rejected the loan first, the status guard
// matches no row and nothing is paid twice.
func (s *loanService) disburse(ctx context.Context, loan *domain.Loan, adminID int64) (*domain.Loan, error) {
	unitID := uuid.NewString()
	var (
		active *domain.Loan
		entry  *domain.Transaction
	)
	err := s.uow.Do(ctx, func(q repository.DBExecutor) error {
		if err := s.loanRepo.ActivateLoan(ctx, q, loan.ID, adminID, domain.Now()); err != nil {
			return atStep("activate_loan", err)
		}
		if _, err := s.wallets.Credit(ctx, q, loan.UserID, loan.PrincipalAmount); err != nil {
			return atStep("credit_wallet", err)
		}

		var err error
		entry, err = s.ledger.Append(ctx, q, loan.UserID, loan.PrincipalAmount,
			domain.TransactionTypeCredit, domain.TransactionSourceLoanDisbursement,
			strconv.FormatInt(loan.ID, 10), fmt.Sprintf("Loan disbursement for loan #%d", loan.ID))
		if err != nil {
			return atStep("append_ledger", err)
		}

		active, err = s.loanRepo.GetLoanByID(ctx, q, loan.ID)
		return err
	})

	fields := logrus.Fields{
		"loan_id":  loan.ID,
		"user_id":  loan.UserID,
		"admin_id": adminID,
		"unit_id":  unitID,
		"amount":   loan.PrincipalAmount.String(),
	}
	if err != nil {
		if errors.Is(err, util.ErrInvalidStateTransition) {
			return s.afterLostApproval(ctx, loan.ID)
		}
		s.logger.WithError(err).WithFields(fields).WithField("step", failedStep(err)).Error("Loan disbursement rolled back")
		return nil, fmt.Errorf("%w: approve loan %d: %w", util.ErrTransactionFailed, loan.ID, err)
	}

	s.logger.WithFields(fields).Info("Loan approved and disbursed")
	s.notifier.Committed(ctx, loan.UserID, events.NewEvent(events.TypeLoanDisbursed, loan.UserID, disbursementPayload{
		LoanID:            active.ID,
		Amount:            active.PrincipalAmount,
		OutstandingAmount: active.OutstandingAmount,
		TransactionID:     entry.ID,
	}))
	return active, nil
}

// afterLostApproval resolves a concurrent status change: a loan somebody else
// disbursed is returned as an idempotent success, anything else is a conflict.
func (s *loanService) afterLostApproval(ctx context.Context, loanID int64) (*domain.Loan, error) {
	current, err := s.loanRepo.GetLoanByID(ctx, s.dbExecutor, loanID)
	if err != nil {
		return nil, fmt.Errorf("approve: failed to re-read loan %d: %w", loanID, err)
	}
	if current.Status == domain.LoanStatusApproved || current.Status == domain.LoanStatusActive {
		return current, nil
	}
	return nil, fmt.Errorf("approve: %w: loan %d is %s", util.ErrInvalidStateTransition, loanID, current.Status)
}
