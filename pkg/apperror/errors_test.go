package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New(CodeNotSetup, "run setup first", http.StatusPreconditionFailed),
			expected: "[NOT_SETUP] run setup first",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap(CodeInternal, "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[INTERNAL] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(CodeInternal, "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New(CodeValidation, "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestTaxonomyCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"NotSetup", ErrNotSetup(), CodeNotSetup, 412},
		{"DecryptFailed", ErrDecryptFailed(), CodeDecryptFailed, 403},
		{"InsufficientBalance", ErrInsufficientBalance(200, 75), CodeInsufficientBalance, 402},
		{"ExceedsTxLimit", ErrExceedsTxLimit(100, 50), CodeExceedsTxLimit, 422},
		{"InvalidState", ErrInvalidState("tx_ab12cd34", "rejected", "approve"), CodeInvalidState, 409},
		{"InvalidMandate", ErrInvalidMandate(""), CodeInvalidMandate, 403},
		{"Timeout", ErrTimeout(""), CodeTimeout, 408},
		{"CheckoutFailed", ErrCheckoutFailed(fmt.Errorf("boom")), CodeCheckoutFailed, 502},
		{"Upstream", ErrUpstreamUnavailable("tunnel down", nil), CodeUpstream, 503},
		{"NotFound", ErrNotFound("transaction"), CodeNotFound, 404},
		{"Validation", Validation("bad amount"), CodeValidation, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("while proposing: %w", ErrInsufficientBalance(200, 75))
	assert.True(t, Is(err, CodeInsufficientBalance))
	assert.False(t, Is(err, CodeExceedsTxLimit))
	assert.False(t, Is(fmt.Errorf("plain"), CodeInsufficientBalance))
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, ErrInsufficientBalance(200, 75).Message, "$200.00")
	assert.Contains(t, ErrInsufficientBalance(200, 75).Message, "$75.00")
	assert.Contains(t, ErrExceedsTxLimit(100, 50).Message, "$50.00")
	assert.Contains(t, ErrInvalidState("tx_1", "rejected", "approve").Message, "'rejected'")
	assert.Contains(t, ErrNotFound("transaction").Message, "transaction")
}
