package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to chat replies and HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to callers)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError carrying the same code, so callers can write
// errors.Is(err, apperror.ErrEmptyLedger()).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Authorization (AUTH) ----

func ErrUnauthorized() *AppError {
	return New("AUTH_001", "You are not authorized", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidWebhookSecret() *AppError {
	return New("AUTH_003", "Invalid webhook secret", http.StatusUnauthorized)
}

// ---- Ledger (LED) ----

func ErrInvalidAmount() *AppError {
	return New("LED_001", "Invalid amount", http.StatusBadRequest)
}

// ErrInvalidAmountCause keeps the parse failure for logs.
func ErrInvalidAmountCause(err error) *AppError {
	return Wrap("LED_001", "Invalid amount", http.StatusBadRequest, err)
}

func ErrEmptyLedger() *AppError {
	return New("LED_002", "Nothing to undo", http.StatusConflict)
}

// ---- Operators (OPS) ----

func ErrInvalidOperator() *AppError {
	return New("OPS_001", "Invalid operator identifier", http.StatusBadRequest)
}

func ErrLastOperator() *AppError {
	return New("OPS_002", "Cannot remove the last operator", http.StatusConflict)
}

// ---- Commands (CMD) ----

func ErrUnknownCommand(name string) *AppError {
	return New("CMD_001", fmt.Sprintf("unknown command %q", name), http.StatusBadRequest)
}

// ---- Requests (REQ) ----

func ErrPayloadTooLarge() *AppError {
	return New("REQ_001", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrPersistenceFailure(err error) *AppError {
	return Wrap("SYS_001", "Persistence failure", http.StatusInternalServerError, err)
}

func ErrExportFailure(err error) *AppError {
	return Wrap("SYS_002", "Export failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_000 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LED_001-style validation error.
func Validation(message string) *AppError {
	return New("LED_001", message, http.StatusBadRequest)
}
