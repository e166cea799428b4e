// internal/api/router.go
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/api/handler"
	authmw "finflow-lending/internal/api/middleware"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Auth       *handler.AuthHandler
	Loans      *handler.LoanHandler
	Repayments *handler.RepaymentHandler
	Wallet     *handler.WalletHandler
	// Ready reports whether dependencies (the database) are reachable.
	Ready func(ctx context.Context) error
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(h Handlers, tokens authmw.TokenParser, logger logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if h.Ready != nil {
			if err := h.Ready(r.Context()); err != nil {
				logger.WithError(err).Warn("Readiness check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("UNAVAILABLE"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.With(authmw.Authenticate(tokens)).Get("/me", h.Auth.Me)
		})

		// Everything below requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(authmw.Authenticate(tokens))

			r.Route("/loans", func(r chi.Router) {
				r.Post("/calculate-emi", h.Loans.CalculateEMI)
				r.Post("/apply", h.Loans.Apply)
				r.Get("/my-loans", h.Loans.MyLoans)
				r.Get("/{loanID}", h.Loans.GetLoan)

				r.Route("/admin", func(r chi.Router) {
					r.Use(authmw.RequireAdmin)
					r.Get("/pending", h.Loans.PendingLoans)
					r.Post("/approve", h.Loans.Decide)
				})
			})

			r.Route("/repayments", func(r chi.Router) {
				r.Post("/make-payment", h.Repayments.MakePayment)
				r.Get("/loan/{loanID}", h.Repayments.LoanRepayments)
			})

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", h.Wallet.GetBalance)
				r.Get("/transactions", h.Wallet.GetTransactions)
				r.Post("/topup", h.Wallet.TopUp)
			})

			r.With(authmw.RequireAdmin).Get("/admin/reconcile/{userID}", h.Wallet.Reconcile)
		})
	})

	return r
}
