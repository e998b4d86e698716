package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizedErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewRPCError("ChainID", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "RPC_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCategorize(t *testing.T) {
	input := NewInvalidAddressError("0x123")
	got := Categorize(input)
	assert.Equal(t, CategoryInput, got.Category)
	assert.Equal(t, "INVALID_ADDRESS", got.Code)

	// Wrapped categorized errors are still found.
	wrapped := fmt.Errorf("handler: %w", input)
	got = Categorize(wrapped)
	assert.Equal(t, "INVALID_ADDRESS", got.Code)

	// Unknown errors fall back to the system category.
	got = Categorize(errors.New("mystery"))
	assert.Equal(t, CategorySystem, got.Category)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
}

func TestGetHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{NewInvalidAddressError("x"), http.StatusBadRequest},
		{NewInvalidParameterError("riskLevel", "out of range"), http.StatusBadRequest},
		{NewNotFoundError("case", "case-1"), http.StatusNotFound},
		{NewStatusTransitionError("EVACUATED", "ACTIVE"), http.StatusConflict},
		{NewStorageError("SaveState", errors.New("down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, GetHTTPStatusCode(tt.err), tt.err.Error())
	}
}

func TestIsInputError(t *testing.T) {
	assert.True(t, IsInputError(NewInvalidAddressError("x")))
	assert.True(t, IsInputError(NewInvalidAmountError("-1", "negative")))
	assert.True(t, IsInputError(NewInvalidParameterError("type", "unknown")))
	assert.False(t, IsInputError(NewRPCError("call", errors.New("down"))))
	assert.False(t, IsInputError(errors.New("plain")))
}

func TestIsConnectivityError(t *testing.T) {
	require.True(t, IsConnectivityError(NewRPCError("call", errors.New("down"))))
	assert.False(t, IsConnectivityError(NewExecutionError("transfer", errors.New("reverted"))))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRPCError("call", errors.New("timeout"))))
	assert.False(t, IsRetryable(NewInvalidAddressError("x")))
	assert.False(t, IsRetryable(NewExecutionError("transfer", errors.New("reverted"))))
}
