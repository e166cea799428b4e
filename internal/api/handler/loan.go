// internal/api/handler/loan.go
package handler

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/api/types"
	"finflow-lending/internal/domain"
	"finflow-lending/internal/service"
	"finflow-lending/internal/util"
)

// LoanHandler handles HTTP requests related to the loan lifecycle.
type LoanHandler struct {
	service service.LoanService
	logger  logrus.FieldLogger
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(svc service.LoanService, logger logrus.FieldLogger) *LoanHandler {
	return &LoanHandler{
		service: svc,
		logger:  logger,
	}
}

// LoanTermsRequest is shared by loan applications and EMI quotes.
type LoanTermsRequest struct {
	PrincipalAmount decimal.Decimal  `json:"principal_amount" validate:"required,gt=0,lte=1000000"`
	TenureMonths    int              `json:"tenure_months" validate:"required,min=1,max=60"`
	InterestRate    *decimal.Decimal `json:"interest_rate,omitempty" validate:"omitempty,gte=0,lte=50"`
}

// CalculateEMI quotes the installment for the given terms without persisting anything.
// POST /api/loans/calculate-emi
func (h *LoanHandler) CalculateEMI(w http.ResponseWriter, r *http.Request) {
	var req LoanTermsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	quote, err := h.service.CalculateEMI(req.PrincipalAmount, req.TenureMonths, req.InterestRate)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, quote)
}

// Apply submits a loan application for the caller.
// POST /api/loans/apply
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req LoanTermsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	loan, err := h.service.Apply(r.Context(), p.UserID, req.PrincipalAmount, req.TenureMonths, req.InterestRate)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusCreated, loan)
}

// MyLoans lists the caller's loans, newest first.
// GET /api/loans/my-loans
func (h *LoanHandler) MyLoans(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	loans, err := h.service.ListLoans(r.Context(), p.UserID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, types.NewListResponse(loans, 0))
}

// GetLoan returns a single loan to its owner or an admin.
// GET /api/loans/{loanID}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	loanID, err := int64URLParam(r, "loanID")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID, p.UserID, p.Role)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, loan)
}

// PendingLoans lists applications awaiting a decision.
// GET /api/loans/admin/pending
func (h *LoanHandler) PendingLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListPendingLoans(r.Context())
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, types.NewListResponse(loans, 0))
}

// LoanDecisionRequest approves or rejects an application.
type LoanDecisionRequest struct {
	LoanID          int64  `json:"loan_id" validate:"required,gt=0"`
	Approved        *bool  `json:"approved" validate:"required"`
	RejectionReason string `json:"rejection_reason" validate:"max=500"`
}

// Decide approves (and disburses) or rejects a loan.
// POST /api/loans/admin/approve
func (h *LoanHandler) Decide(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req LoanDecisionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var loan *domain.Loan
	if *req.Approved {
		loan, err = h.service.Approve(r.Context(), req.LoanID, p.UserID)
	} else {
		if req.RejectionReason == "" {
			respondWithError(w, h.logger, fmt.Errorf("%w: rejection_reason is required when rejecting", util.ErrInvalidInput))
			return
		}
		loan, err = h.service.Reject(r.Context(), req.LoanID, p.UserID, req.RejectionReason)
	}
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, loan)
}
