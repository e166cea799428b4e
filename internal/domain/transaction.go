// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TransactionType is the direction of a ledger entry relative to the wallet.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// TransactionSource names the operation that moved the money.
type TransactionSource string

const (
	TransactionSourceLoanDisbursement TransactionSource = "LOAN_DISBURSEMENT"
	TransactionSourceEMIPayment       TransactionSource = "EMI_PAYMENT"
	TransactionSourceWalletTopUp      TransactionSource = "WALLET_TOPUP"
)

// Transaction is an append-only ledger entry. Amount is always a positive
// magnitude; Type carries the direction.
type Transaction struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	Amount      decimal.Decimal   `json:"amount"`
	Type        TransactionType   `json:"type"`
	Source      TransactionSource `json:"source"`
	ReferenceID string            `json:"reference_id"` // loan id, repayment id or top-up reference
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewTransaction creates a new ledger entry.
func NewTransaction(
	userID int64,
	amount decimal.Decimal,
	txType TransactionType,
	source TransactionSource,
	referenceID string,
	description string,
) *Transaction {
	return &Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Source:      source,
		ReferenceID: referenceID,
		Description: description,
		CreatedAt:   Now(),
	}
}

// SignedAmount returns the entry's effect on the wallet balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
