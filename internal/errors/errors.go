package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryInput represents caller input errors (bad address, bad amount)
	CategoryInput ErrorCategory = "input"
	// CategoryValidation represents invalid parameter combinations
	CategoryValidation ErrorCategory = "validation"
	// CategoryConnectivity represents RPC unreachable/timeout errors
	CategoryConnectivity ErrorCategory = "connectivity"
	// CategoryExecution represents on-chain execution failures (revert, insufficient funds)
	CategoryExecution ErrorCategory = "execution"
	// CategoryStorage represents state store errors
	CategoryStorage ErrorCategory = "storage"
	// CategoryNotFound represents missing resources
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryConflict represents illegal state transitions
	CategoryConflict ErrorCategory = "conflict"
	// CategorySystem represents unexpected internal errors
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// Input errors. These fail fast, before any network or storage side
// effect, and are distinguishable from network/business failures.

// NewInvalidAddressError creates an invalid address error
func NewInvalidAddressError(address string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryInput,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_ADDRESS",
		Message:    fmt.Sprintf("invalid address format: %s", address),
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// NewInvalidAmountError creates an invalid amount error
func NewInvalidAmountError(amount string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryInput,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_AMOUNT",
		Message:    fmt.Sprintf("invalid amount %s: %s", amount, reason),
		Details: map[string]interface{}{
			"amount": amount,
			"reason": reason,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewStatusTransitionError reports an illegal case status transition
func NewStatusTransitionError(from, to string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       "ILLEGAL_STATUS_TRANSITION",
		Message:    fmt.Sprintf("case status cannot move from %s to %s", from, to),
		Details: map[string]interface{}{
			"from": from,
			"to":   to,
		},
	}
}

// Connectivity and execution errors. Connectivity errors are recovered
// inside the ledger client and should not normally escape it.

// NewRPCError creates a connectivity error for a failed RPC call
func NewRPCError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConnectivity,
		StatusCode: http.StatusBadGateway,
		Code:       "RPC_ERROR",
		Message:    fmt.Sprintf("rpc call failed during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewExecutionError creates an on-chain execution error
func NewExecutionError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryExecution,
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "EXECUTION_FAILED",
		Message:    fmt.Sprintf("on-chain execution failed during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewStorageError creates a state store error
func NewStorageError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryStorage,
		StatusCode: http.StatusInternalServerError,
		Code:       "STORAGE_ERROR",
		Message:    fmt.Sprintf("state store error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsInputError reports whether an error originated from caller input.
// Input errors must never be retried or absorbed into the simulated path.
func IsInputError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.Category == CategoryInput || catErr.Category == CategoryValidation
}

// IsConnectivityError reports whether an error is a network-level failure
func IsConnectivityError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.Category == CategoryConnectivity
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryConnectivity, CategoryStorage:
		return true
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable ||
			catErr.StatusCode == http.StatusGatewayTimeout
	default:
		return false
	}
}
