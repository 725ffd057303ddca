package dto

import (
	"net/http"

	"github.com/erp/bomengine/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
	// ErrCodeInvalidQuantity is used for zero or negative quantities
	ErrCodeInvalidQuantity = "ERR_INVALID_QUANTITY"
	// ErrCodeBatchTooLarge is used when a bulk request exceeds its limit
	ErrCodeBatchTooLarge = "ERR_BATCH_TOO_LARGE"
	// ErrCodeUnitMismatch is used when a recipe line and its material disagree on units
	ErrCodeUnitMismatch = "ERR_UNIT_MISMATCH"
	// ErrCodeInvalidUnit is used for an unknown unit of measure
	ErrCodeInvalidUnit = "ERR_INVALID_UNIT"
	// ErrCodeInvalidReason is used for an unknown transaction reason
	ErrCodeInvalidReason = "ERR_INVALID_REASON"
	// ErrCodeInvalidTransactionType is used for an unknown transaction type
	ErrCodeInvalidTransactionType = "ERR_INVALID_TRANSACTION_TYPE"
	// ErrCodeInvalidStrategy is used for an unknown allocation strategy
	ErrCodeInvalidStrategy = "ERR_INVALID_STRATEGY"
	// ErrCodeTenantRequired is used when the tenant header is missing or malformed
	ErrCodeTenantRequired = "ERR_TENANT_REQUIRED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeMaterialNotFound is used when a material is missing or owned by another tenant
	ErrCodeMaterialNotFound = "ERR_MATERIAL_NOT_FOUND"
	// ErrCodeRecipeNotFound is used when a recipe is missing or owned by another tenant
	ErrCodeRecipeNotFound = "ERR_RECIPE_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeLockTimeout is used when the per-material lock could not be taken in time
	ErrCodeLockTimeout = "ERR_LOCK_TIMEOUT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInsufficientStock is used when stock is insufficient
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeNoActiveRecipe is used when a product has no active recipe
	ErrCodeNoActiveRecipe = "ERR_NO_ACTIVE_RECIPE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the size limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:             http.StatusBadRequest,
	ErrCodeValidationRequired:     http.StatusBadRequest,
	ErrCodeValidationFormat:       http.StatusBadRequest,
	ErrCodeValidationRange:        http.StatusBadRequest,
	ErrCodeInvalidQuantity:        http.StatusBadRequest,
	ErrCodeBatchTooLarge:          http.StatusBadRequest,
	ErrCodeUnitMismatch:           http.StatusBadRequest,
	ErrCodeInvalidUnit:            http.StatusBadRequest,
	ErrCodeInvalidReason:          http.StatusBadRequest,
	ErrCodeInvalidTransactionType: http.StatusBadRequest,
	ErrCodeInvalidStrategy:        http.StatusBadRequest,
	ErrCodeTenantRequired:         http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeMaterialNotFound:    http.StatusNotFound,
	ErrCodeRecipeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeLockTimeout:         http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeNoActiveRecipe:    http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"MATERIAL_NOT_FOUND":       ErrCodeMaterialNotFound,
	"RECIPE_NOT_FOUND":         ErrCodeRecipeNotFound,
	"ALREADY_EXISTS":           ErrCodeAlreadyExists,
	"INVALID_INPUT":            ErrCodeInvalidInput,
	"INVALID_STATE":            ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":     ErrCodeConcurrencyConflict,
	"LOCK_TIMEOUT":             ErrCodeLockTimeout,
	"INSUFFICIENT_STOCK":       ErrCodeInsufficientStock,
	"NO_ACTIVE_RECIPE":         ErrCodeNoActiveRecipe,
	"VALIDATION_ERROR":         ErrCodeValidation,
	"INVALID_QUANTITY":         ErrCodeInvalidQuantity,
	"BATCH_TOO_LARGE":          ErrCodeBatchTooLarge,
	"UNIT_MISMATCH":            ErrCodeUnitMismatch,
	"INVALID_UNIT":             ErrCodeInvalidUnit,
	"INVALID_REASON":           ErrCodeInvalidReason,
	"INVALID_TRANSACTION_TYPE": ErrCodeInvalidTransactionType,
	"INVALID_STRATEGY":         ErrCodeInvalidStrategy,
	"TENANT_REQUIRED":          ErrCodeTenantRequired,
	"BAD_REQUEST":              ErrCodeBadRequest,
	"INTERNAL_ERROR":           ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// KindHTTPStatus maps error kinds to HTTP status codes. It covers domain
// codes that have no entry of their own in ErrorCodeHTTPStatus.
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindNotFound:            http.StatusNotFound,
	shared.KindValidation:          http.StatusBadRequest,
	shared.KindInsufficientStock:   http.StatusUnprocessableEntity,
	shared.KindNoActiveRecipe:      http.StatusUnprocessableEntity,
	shared.KindConcurrencyConflict: http.StatusConflict,
	shared.KindInvalidStrategy:     http.StatusBadRequest,
	shared.KindAlreadyExists:       http.StatusConflict,
	shared.KindInvalidState:        http.StatusUnprocessableEntity,
	shared.KindInternal:            http.StatusInternalServerError,
}

// StatusForDomainError returns the API code and HTTP status for a domain error
func StatusForDomainError(err *shared.DomainError) (string, int) {
	code := NormalizeErrorCode(err.Code)
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return code, status
	}
	if status, ok := KindHTTPStatus[err.Kind]; ok {
		return code, status
	}
	return code, http.StatusInternalServerError
}
