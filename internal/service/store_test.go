// internal/service/store_test.go
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"finflow-lending/internal/auth"
	"finflow-lending/internal/cache"
	"finflow-lending/internal/domain"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/repository/sqlstore"
	"finflow-lending/pkg/db"
)

// testStore is the full service stack over a throwaway SQLite database.
type testStore struct {
	db        *sqlx.DB
	publisher *recordingPublisher
	logs      *test.Hook

	loanRepo        repository.LoanRepository
	repaymentRepo   repository.RepaymentRepository
	transactionRepo repository.TransactionRepository

	users      UserService
	wallets    WalletService
	ledger     LedgerService
	loans      LoanService
	repayments RepaymentService
}

type storeOption func(*storeConfig)

type storeConfig struct {
	repayments      RepaymentOptions
	transactionRepo repository.TransactionRepository
	cache           cache.Cache
}

func withStrictIdempotency() storeOption {
	return func(c *storeConfig) { c.repayments.StrictIdempotency = true }
}

func withCache(c cache.Cache) storeOption {
	return func(cfg *storeConfig) { cfg.cache = c }
}

func withTransactionRepository(r repository.TransactionRepository) storeOption {
	return func(c *storeConfig) { c.transactionRepo = r }
}

func newTestStore(t *testing.T, opts ...storeOption) *testStore {
	t.Helper()
	cfg := storeConfig{transactionRepo: newSQLTransactionRepository()}
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "lending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn))

	logger, hook := test.NewNullLogger()
	publisher := &recordingPublisher{}

	userRepo := sqlstore.NewUserRepository()
	walletRepo := sqlstore.NewWalletRepository()
	loanRepo := sqlstore.NewLoanRepository()
	repaymentRepo := sqlstore.NewRepaymentRepository()

	uow := NewUnitOfWork(conn, db.BeginTx, db.CommitTx, db.RollbackTx)
	notifier := NewNotifier(cfg.cache, publisher, logger)
	ledger := NewLedgerService(conn, uow, walletRepo, cfg.transactionRepo, cfg.cache, logger)
	wallets := NewWalletService(conn, uow, walletRepo, ledger, cfg.cache, notifier, logger)

	return &testStore{
		db:              conn,
		publisher:       publisher,
		logs:            hook,
		loanRepo:        loanRepo,
		repaymentRepo:   repaymentRepo,
		transactionRepo: cfg.transactionRepo,
		users:           NewUserService(conn, uow, userRepo, wallets, auth.NewPasswordHasher(bcrypt.MinCost), true, logger),
		wallets:         wallets,
		ledger:          ledger,
		loans:           NewLoanService(conn, uow, loanRepo, walletRepo, wallets, ledger, notifier, logger),
		repayments:      NewRepaymentService(conn, uow, loanRepo, repaymentRepo, wallets, ledger, notifier, logger, cfg.repayments),
	}
}

var userSeq atomic.Int64

func (s *testStore) newUser(t *testing.T, role domain.Role) int64 {
	t.Helper()
	email := fmt.Sprintf("user%d@example.com", userSeq.Add(1))
	user, wallet, err := s.users.Register(context.Background(), email, "Test User", "correct-horse", role)
	require.NoError(t, err)
	require.True(t, wallet.Balance.IsZero())
	return user.ID
}

// activeLoan applies for and disburses a loan, returning it in ACTIVE state.
func (s *testStore) activeLoan(t *testing.T, userID, adminID int64, principal string, tenure int) *domain.Loan {
	t.Helper()
	ctx := context.Background()
	loan, err := s.loans.Apply(ctx, userID, decimal.RequireFromString(principal), tenure, nil)
	require.NoError(t, err)
	active, err := s.loans.Approve(ctx, loan.ID, adminID)
	require.NoError(t, err)
	require.Equal(t, domain.LoanStatusActive, active.Status)
	return active
}

func (s *testStore) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	wallet, err := s.wallets.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return wallet.Balance
}

func (s *testStore) loan(t *testing.T, loanID int64) *domain.Loan {
	t.Helper()
	loan, err := s.loanRepo.GetLoanByID(context.Background(), s.db, loanID)
	require.NoError(t, err)
	return loan
}

func (s *testStore) ledgerEntries(t *testing.T, userID int64) []domain.Transaction {
	t.Helper()
	entries, err := s.transactionRepo.ListTransactionsByUserID(context.Background(), s.db, userID, MaxTransactionLimit)
	require.NoError(t, err)
	return entries
}

// requireInvariants checks that the ledger explains the wallet and that every
// loan's repayments explain its outstanding amount.
func (s *testStore) requireInvariants(t *testing.T, userID int64) {
	t.Helper()
	ctx := context.Background()

	report, err := s.ledger.Reconcile(ctx, userID)
	require.NoError(t, err)
	require.True(t, report.Balanced, "ledger %s != wallet %s", report.LedgerBalance, report.WalletBalance)
	require.False(t, report.WalletBalance.IsNegative())

	loans, err := s.loans.ListLoans(ctx, userID)
	require.NoError(t, err)
	for _, loan := range loans {
		require.False(t, loan.OutstandingAmount.IsNegative(), "loan %d", loan.ID)
		require.Equal(t, loan.OutstandingAmount.IsZero(), loan.Status == domain.LoanStatusClosed, "loan %d", loan.ID)

		repayments, err := s.repaymentRepo.ListRepaymentsByLoanID(ctx, s.db, loan.ID)
		require.NoError(t, err)
		paid := decimal.Zero
		for _, r := range repayments {
			paid = paid.Add(r.Amount)
		}
		require.True(t, loan.TotalAmount().Sub(paid).Equal(loan.OutstandingAmount),
			"loan %d: total %s - paid %s != outstanding %s", loan.ID, loan.TotalAmount(), paid, loan.OutstandingAmount)
	}
}

func newSQLTransactionRepository() repository.TransactionRepository {
	return sqlstore.NewTransactionRepository()
}
