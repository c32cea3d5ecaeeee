package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes form a closed taxonomy. Presentation layers (CLI, MCP,
// dashboard) switch on Code to pick a user-facing message; nothing inspects
// concrete error types at runtime.
const (
	CodeNotSetup            = "NOT_SETUP"
	CodeDecryptFailed       = "DECRYPT_FAILED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeExceedsTxLimit      = "EXCEEDS_TX_LIMIT"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidMandate      = "INVALID_MANDATE"
	CodeTimeout             = "TIMEOUT"
	CodeCheckoutFailed      = "CHECKOUT_FAILED"
	CodeUpstream            = "UPSTREAM_UNAVAILABLE"
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION"
	CodeInternal            = "INTERNAL"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
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

// Is reports whether err carries the given taxonomy code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ---- Setup & Vault ----

func ErrNotSetup() *AppError {
	return New(CodeNotSetup, "Wallet has not been set up yet. Run `agentpay setup` first.", http.StatusPreconditionFailed)
}

func ErrDecryptFailed() *AppError {
	return New(CodeDecryptFailed, "Failed to decrypt credentials. Wrong passphrase or corrupted vault.", http.StatusForbidden)
}

// ---- Budget ----

func ErrInsufficientBalance(amount, balance float64) *AppError {
	return New(CodeInsufficientBalance,
		fmt.Sprintf("Insufficient balance: requested $%.2f but only $%.2f available.", amount, balance),
		http.StatusPaymentRequired)
}

func ErrExceedsTxLimit(amount, limit float64) *AppError {
	return New(CodeExceedsTxLimit,
		fmt.Sprintf("Amount $%.2f exceeds per-transaction limit of $%.2f.", amount, limit),
		http.StatusUnprocessableEntity)
}

// ---- Transactions ----

func ErrInvalidState(txID string, from string, op string) *AppError {
	return New(CodeInvalidState,
		fmt.Sprintf("Cannot %s transaction %s in '%s' state.", op, txID, from),
		http.StatusConflict)
}

func ErrInvalidMandate(message string) *AppError {
	if message == "" {
		message = "Purchase mandate signature verification failed."
	}
	return New(CodeInvalidMandate, message, http.StatusForbidden)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Handshake & Execution ----

func ErrTimeout(message string) *AppError {
	if message == "" {
		message = "Operation timed out."
	}
	return New(CodeTimeout, message, http.StatusRequestTimeout)
}

func ErrCheckoutFailed(err error) *AppError {
	return Wrap(CodeCheckoutFailed, "Failed to complete checkout.", http.StatusBadGateway, err)
}

func ErrUpstreamUnavailable(message string, err error) *AppError {
	return Wrap(CodeUpstream, message, http.StatusServiceUnavailable, err)
}

// ---- System ----

func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// InternalError wraps an internal error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal error", http.StatusInternalServerError, err)
}
