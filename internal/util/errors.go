// internal/util/errors.go
package util

import "errors"

// Common application-specific errors. Services return these (possibly wrapped);
// the HTTP layer maps them to status codes.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input provided")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrForbidden              = errors.New("forbidden")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrIneligibleLoan         = errors.New("loan application is not eligible")
	ErrTransactionFailed      = errors.New("transaction failed")
	ErrIdempotencyConflict    = errors.New("idempotency key already used for a different request")
	ErrDuplicateEntry         = errors.New("duplicate entry") // e.g. registering an existing email

	ErrLoanNotFound   error = notFound("loan")
	ErrWalletNotFound error = notFound("wallet")
	ErrUserNotFound   error = notFound("user")
)

// notFound is a more specific ErrNotFound: errors.Is(ErrLoanNotFound, ErrNotFound) holds.
type notFound string

func (e notFound) Error() string { return string(e) + " not found" }

func (e notFound) Is(target error) bool { return target == ErrNotFound }

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
