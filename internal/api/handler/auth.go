// internal/api/handler/auth.go
package handler

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"finflow-lending/internal/auth"
	"finflow-lending/internal/domain"
	"finflow-lending/internal/service"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, time.Time, error)
}

// AuthHandler handles registration, login and the current-user lookup.
type AuthHandler struct {
	users  service.UserService
	tokens TokenIssuer
	logger logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserService, tokens TokenIssuer, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string      `json:"email" validate:"required,email,max=255"`
	FullName string      `json:"full_name" validate:"required,max=255"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     domain.Role `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	User   *domain.User   `json:"user"`
	Wallet *domain.Wallet `json:"wallet"`
}

// Register creates a user together with an empty wallet.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	user, wallet, err := h.users.Register(r.Context(), req.Email, req.FullName, req.Password, req.Role)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, RegisterResponse{User: user, Wallet: wallet})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// Login exchanges credentials for an access token.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	})
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	user, err := h.users.GetUser(r.Context(), p.UserID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, user)
}

var _ TokenIssuer = (*auth.TokenManager)(nil)
