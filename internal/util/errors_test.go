// internal/util/errors_test.go
package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecificNotFoundErrorsMatchNotFound(t *testing.T) {
	for _, err := range []error{ErrLoanNotFound, ErrWalletNotFound, ErrUserNotFound} {
		wrapped := fmt.Errorf("get: %w", err)
		assert.True(t, IsError(wrapped, ErrNotFound), err.Error())
		assert.True(t, IsError(wrapped, err))
	}
	assert.False(t, IsError(ErrLoanNotFound, ErrWalletNotFound))
	assert.False(t, IsError(ErrNotFound, ErrLoanNotFound))
	assert.Equal(t, "loan not found", ErrLoanNotFound.Error())
}

func TestTransactionFailedKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("%w: repayment for loan 4: %w", ErrTransactionFailed, cause)

	assert.True(t, IsError(err, ErrTransactionFailed))
	assert.True(t, IsError(err, cause))
}
