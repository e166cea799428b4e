// internal/api/handler/wallet.go
package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/api/types"
	"finflow-lending/internal/domain"
	"finflow-lending/internal/service"
	"finflow-lending/internal/util" // For custom errors
)

// WalletHandler handles HTTP requests related to wallets and the ledger.
type WalletHandler struct {
	wallets service.WalletService
	ledger  service.LedgerService
	logger  logrus.FieldLogger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets service.WalletService, ledger service.LedgerService, logger logrus.FieldLogger) *WalletHandler {
	return &WalletHandler{
		wallets: wallets,
		ledger:  ledger,
		logger:  logger,
	}
}

// GetBalance returns the caller's wallet.
// GET /api/wallet/balance
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), p.UserID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, wallet)
}

// GetTransactions returns the caller's newest ledger entries.
// GET /api/wallet/transactions?limit=50
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	limit := service.DefaultTransactionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > service.MaxTransactionLimit {
			respondWithError(w, h.logger, fmt.Errorf("%w: limit must be between 1 and %d", util.ErrInvalidInput, service.MaxTransactionLimit))
			return
		}
	}

	transactions, err := h.ledger.ListTransactions(r.Context(), p.UserID, limit)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, types.NewListResponse(transactions, limit))
}

// TopUpRequest represents the request body for a wallet top-up.
type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0,lte=1000000"`
}

// TopUpResponse reports the new balance and the ledger entry written.
type TopUpResponse struct {
	Message     string              `json:"message"`
	Wallet      *domain.Wallet      `json:"wallet"`
	Transaction *domain.Transaction `json:"transaction"`
}

// TopUp credits the caller's wallet.
// POST /api/wallet/topup
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req TopUpRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	wallet, transaction, err := h.wallets.TopUp(r.Context(), p.UserID, req.Amount)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, TopUpResponse{
		Message:     "Top-up successful",
		Wallet:      wallet,
		Transaction: transaction,
	})
}

// Reconcile compares a user's ledger totals with their wallet balance.
// GET /api/admin/reconcile/{userID}
func (h *WalletHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, err := int64URLParam(r, "userID")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	report, err := h.ledger.Reconcile(r.Context(), userID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, report)
}
