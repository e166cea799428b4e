// internal/api/handler/repayment.go
package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/api/types"
	"finflow-lending/internal/domain"
	"finflow-lending/internal/service"
)

// RepaymentHandler handles HTTP requests related to repayments.
type RepaymentHandler struct {
	service service.RepaymentService
	logger  logrus.FieldLogger
}

// NewRepaymentHandler creates a new RepaymentHandler.
func NewRepaymentHandler(svc service.RepaymentService, logger logrus.FieldLogger) *RepaymentHandler {
	return &RepaymentHandler{
		service: svc,
		logger:  logger,
	}
}

// MakePaymentRequest represents the request body for a repayment.
type MakePaymentRequest struct {
	LoanID         int64           `json:"loan_id" validate:"required,gt=0"`
	Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required,max=128"`
}

// RepaymentResponse is a repayment plus the state of its loan after it applied.
type RepaymentResponse struct {
	*domain.Repayment
	NewOutstanding decimal.Decimal   `json:"new_outstanding"`
	LoanStatus     domain.LoanStatus `json:"loan_status"`
	LoanClosed     bool              `json:"loan_closed"`
}

// MakePayment debits the caller's wallet against a loan. Retrying with the
// same idempotency key returns the original repayment.
// POST /api/repayments/make-payment
func (h *RepaymentHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req MakePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	repayment, loan, err := h.service.MakeRepayment(r.Context(), p.UserID, req.LoanID, req.Amount, req.IdempotencyKey)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, RepaymentResponse{
		Repayment:      repayment,
		NewOutstanding: loan.OutstandingAmount,
		LoanStatus:     loan.Status,
		LoanClosed:     loan.Status == domain.LoanStatusClosed,
	})
}

// LoanRepayments lists the repayments made against one of the caller's loans.
// GET /api/repayments/loan/{loanID}
func (h *RepaymentHandler) LoanRepayments(w http.ResponseWriter, r *http.Request) {
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

	repayments, err := h.service.ListRepayments(r.Context(), loanID, p.UserID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, types.NewListResponse(repayments, 0))
}
