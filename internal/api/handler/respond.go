// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"finflow-lending/internal/auth"
	"finflow-lending/internal/util" // For custom errors
)

// DefaultTimeout bounds every request, including its database work.
const DefaultTimeout = 30 * time.Second

var validate = newValidator()

// newValidator returns a validator that reports JSON field names and compares
// decimal.Decimal fields numerically (gt, lte, ...).
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// decodeAndValidate reads a JSON body into dst and validates its struct tags.
// Failures are returned as util.ErrInvalidInput.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", util.ErrInvalidInput)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("%w: %s", util.ErrInvalidInput, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}

// respondWithJSON writes payload as a JSON response.
func respondWithJSON(w http.ResponseWriter, logger logrus.FieldLogger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusForError maps service errors to HTTP status codes. Client errors keep
// their message; anything unclassified is reported as a bare 500.
func statusForError(err error) (int, string) {
	switch {
	case util.IsError(err, util.ErrInvalidInput),
		util.IsError(err, util.ErrInvalidAmount),
		util.IsError(err, util.ErrIneligibleLoan),
		util.IsError(err, util.ErrInvalidStateTransition):
		return http.StatusBadRequest, err.Error()
	case util.IsError(err, util.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case util.IsError(err, util.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "Insufficient funds"
	case util.IsError(err, util.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case util.IsError(err, util.ErrNotFound):
		return http.StatusNotFound, notFoundMessage(err)
	case util.IsError(err, util.ErrDuplicateEntry),
		util.IsError(err, util.ErrIdempotencyConflict):
		return http.StatusConflict, err.Error()
	case util.IsError(err, util.ErrTransactionFailed):
		return http.StatusInternalServerError, "Transaction failed, please retry"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func notFoundMessage(err error) string {
	for _, specific := range []error{util.ErrLoanNotFound, util.ErrWalletNotFound, util.ErrUserNotFound} {
		if errors.Is(err, specific) {
			return specific.Error()
		}
	}
	return "Resource not found"
}

// respondWithError writes the status and message statusForError picks for err.
func respondWithError(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	code, message := statusForError(err)
	if code >= http.StatusInternalServerError {
		logger.WithError(err).Error("Unhandled service error")
	}
	respondWithJSON(w, logger, code, ErrorResponse{Error: message})
}

// principal returns the caller resolved by the auth middleware.
func principal(r *http.Request) (auth.Principal, error) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return auth.Principal{}, fmt.Errorf("%w: missing credentials", util.ErrUnauthorized)
	}
	return p, nil
}

// int64URLParam parses a positive integer path parameter.
func int64URLParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", util.ErrInvalidInput, name)
	}
	return id, nil
}
