// internal/service/loan_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/domain"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/util"
)

// Eligibility is the outcome of the pre-application checks.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// LoanService defines the interface for the loan lifecycle.
type LoanService interface {
	// CheckEligibility applies the origination rules without changing anything.
	CheckEligibility(ctx context.Context, userID int64, amount decimal.Decimal) (Eligibility, error)
	// Apply creates an APPLIED loan. A nil interestRate means DefaultInterestRate.
	Apply(ctx context.Context, userID int64, principal decimal.Decimal, tenureMonths int, interestRate *decimal.Decimal) (*domain.Loan, error)
	// Approve disburses an APPLIED loan. Approving a loan that is already
	// disbursed returns it unchanged.
	Approve(ctx context.Context, loanID, adminID int64) (*domain.Loan, error)
	Reject(ctx context.Context, loanID, adminID int64, reason string) (*domain.Loan, error)
	// GetLoan returns a loan to its owner or to an admin.
	GetLoan(ctx context.Context, loanID, requesterID int64, requesterRole domain.Role) (*domain.Loan, error)
	ListLoans(ctx context.Context, userID int64) ([]domain.Loan, error)
	ListPendingLoans(ctx context.Context) ([]domain.Loan, error)
	CalculateEMI(principal decimal.Decimal, tenureMonths int, interestRate *decimal.Decimal) (domain.EMIQuote, error)
}

// loanService implements the LoanService interface.
type loanService struct {
	dbExecutor repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	uow        *UnitOfWork
	loanRepo   repository.LoanRepository
	walletRepo repository.WalletRepository
	wallets    WalletService
	ledger     LedgerService
	notifier   *Notifier
	logger     logrus.FieldLogger
}

// NewLoanService creates a new instance of LoanService.
func NewLoanService(
	dbExecutor repository.DBExecutor,
	uow *UnitOfWork,
	loanRepo repository.LoanRepository,
	walletRepo repository.WalletRepository,
	wallets WalletService,
	ledger LedgerService,
	notifier *Notifier,
	logger logrus.FieldLogger,
) LoanService {
	return &loanService{
		dbExecutor: dbExecutor,
		uow:        uow,
		loanRepo:   loanRepo,
		walletRepo: walletRepo,
		wallets:    wallets,
		ledger:     ledger,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *loanService) CheckEligibility(ctx context.Context, userID int64, amount decimal.Decimal) (Eligibility, error) {
	if amount.GreaterThan(domain.MaxEligibleAmount) {
		return Eligibility{Reason: fmt.Sprintf("Requested amount exceeds maximum eligible amount of %s", domain.MaxEligibleAmount)}, nil
	}

	// Stub activity rule: any wallet qualifies.
	if _, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return Eligibility{Reason: "Insufficient wallet activity"}, nil
		}
		return Eligibility{}, fmt.Errorf("check eligibility: %w", err)
	}

	open, err := s.loanRepo.CountLoansByStatus(ctx, s.dbExecutor, userID, domain.LoanStatusActive, domain.LoanStatusApproved)
	if err != nil {
		return Eligibility{}, fmt.Errorf("check eligibility: %w", err)
	}
	if open >= domain.MaxOpenLoans {
		return Eligibility{Reason: fmt.Sprintf("Maximum of %d active loans reached", domain.MaxOpenLoans)}, nil
	}

	return Eligibility{Eligible: true}, nil
}

func (s *loanService) Apply(ctx context.Context, userID int64, principal decimal.Decimal, tenureMonths int, interestRate *decimal.Decimal) (*domain.Loan, error) {
	rate := domain.DefaultInterestRate
	if interestRate != nil {
		rate = *interestRate
	}
	if err := domain.ValidateLoanTerms(principal, tenureMonths, rate); err != nil {
		return nil, err
	}

	eligibility, err := s.CheckEligibility(ctx, userID, principal)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return nil, fmt.Errorf("%w: %s", util.ErrIneligibleLoan, eligibility.Reason)
	}

	loan := domain.NewLoan(userID, principal, tenureMonths, rate)
	if err := s.loanRepo.CreateLoan(ctx, s.dbExecutor, loan); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"loan_id":     loan.ID,
		"principal":   loan.PrincipalAmount.String(),
		"emi":         loan.EMIAmount.String(),
		"outstanding": loan.OutstandingAmount.String(),
	}).Info("Loan application created")
	return loan, nil
}

func (s *loanService) Approve(ctx context.Context, loanID, adminID int64) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetLoanByID(ctx, s.dbExecutor, loanID)
	if err != nil {
		return nil, fmt.Errorf("approve: %w", err)
	}
	switch loan.Status {
	case domain.LoanStatusApproved, domain.LoanStatusActive:
		return loan, nil
	case domain.LoanStatusApplied:
	default:
		return nil, fmt.Errorf("approve: %w: loan %d is %s", util.ErrInvalidStateTransition, loanID, loan.Status)
	}

	return s.disburse(ctx, loan, adminID)
}

func (s *loanService) Reject(ctx context.Context, loanID, adminID int64, reason string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetLoanByID(ctx, s.dbExecutor, loanID)
	if err != nil {
		return nil, fmt.Errorf("reject: %w", err)
	}
	if !loan.Status.CanTransitionTo(domain.LoanStatusRejected) {
		return nil, fmt.Errorf("reject: %w: loan %d is %s", util.ErrInvalidStateTransition, loanID, loan.Status)
	}

	if err := s.loanRepo.RejectLoan(ctx, s.dbExecutor, loanID, strings.TrimSpace(reason), domain.Now()); err != nil {
		return nil, fmt.Errorf("reject: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"loan_id":  loanID,
		"admin_id": adminID,
	}).Info("Loan rejected")

	rejected, err := s.loanRepo.GetLoanByID(ctx, s.dbExecutor, loanID)
	if err != nil {
		return nil, fmt.Errorf("reject: failed to re-fetch loan %d: %w", loanID, err)
	}
	return rejected, nil
}

func (s *loanService) GetLoan(ctx context.Context, loanID, requesterID int64, requesterRole domain.Role) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetLoanByID(ctx, s.dbExecutor, loanID)
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	if !loan.IsOwnedBy(requesterID) && requesterRole != domain.RoleAdmin {
		return nil, fmt.Errorf("get loan: %w: loan %d belongs to another user", util.ErrForbidden, loanID)
	}
	return loan, nil
}

func (s *loanService) ListLoans(ctx context.Context, userID int64) ([]domain.Loan, error) {
	loans, err := s.loanRepo.ListLoansByUserID(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

func (s *loanService) ListPendingLoans(ctx context.Context) ([]domain.Loan, error) {
	loans, err := s.loanRepo.ListLoansByStatus(ctx, s.dbExecutor, domain.LoanStatusApplied)
	if err != nil {
		return nil, fmt.Errorf("list pending loans: %w", err)
	}
	return loans, nil
}

func (s *loanService) CalculateEMI(principal decimal.Decimal, tenureMonths int, interestRate *decimal.Decimal) (domain.EMIQuote, error) {
	rate := domain.DefaultInterestRate
	if interestRate != nil {
		rate = *interestRate
	}
	if err := domain.ValidateLoanTerms(principal, tenureMonths, rate); err != nil {
		return domain.EMIQuote{}, err
	}
	return domain.QuoteEMI(principal, rate, tenureMonths), nil
}
