// internal/service/unit_of_work.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finflow-lending/internal/repository"
	"finflow-lending/pkg/db"
)

// UnitOfWork runs a group of repository calls inside one database transaction.
// Either every mutation made by the function commits or none does.
type UnitOfWork struct {
	dbBeginner db.DBTxBeginner   // For starting transactions (e.g., *sqlx.DB)
	beginTx    db.BeginTxFunc    // Injected dependency for beginning transactions
	commitTx   db.CommitTxFunc   // Injected dependency for committing transactions
	rollbackTx db.RollbackTxFunc // Injected dependency for rolling back transactions
}

// NewUnitOfWork creates a UnitOfWork from the transaction plumbing in pkg/db.
func NewUnitOfWork(
	dbBeginner db.DBTxBeginner,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
) *UnitOfWork {
	return &UnitOfWork{
		dbBeginner: dbBeginner,
		beginTx:    beginTx,
		commitTx:   commitTx,
		rollbackTx: rollbackTx,
	}
}

// Do begins a transaction, runs fn against it and commits when fn returns nil.
// An error from fn, a panic or a cancelled ctx rolls everything back.
func (u *UnitOfWork) Do(ctx context.Context, fn func(q repository.DBExecutor) error) error {
	return u.DoWithOptions(ctx, nil, fn)
}

// DoWithOptions is Do with explicit transaction options, e.g. a snapshot
// isolation level for reads that must agree with each other.
func (u *UnitOfWork) DoWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(q repository.DBExecutor) error) error {
	txController, err := u.beginTx(ctx, u.dbBeginner, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer u.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("transaction controller does not implement DBExecutor")
	}

	if err := fn(txExecutor); err != nil {
		return err
	}

	if err := u.commitTx(txController); err != nil {
		return atStep("commit", err)
	}
	return nil
}

// stepError records which step of a unit of work failed so that aborted
// money movements can be reconciled from the logs.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }

func (e *stepError) Unwrap() error { return e.err }

func atStep(step string, err error) error {
	return &stepError{step: step, err: err}
}

// failedStep returns the step name recorded in err, if any.
func failedStep(err error) string {
	var se *stepError
	if errors.As(err, &se) {
		return se.step
	}
	return "begin"
}
