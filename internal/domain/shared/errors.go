package shared

import "errors"

// ErrorKind classifies a domain error for callers that translate errors into
// their own presentation (HTTP status, retry decisions).
type ErrorKind string

const (
	KindNotFound            ErrorKind = "NotFound"
	KindValidation          ErrorKind = "ValidationError"
	KindInsufficientStock   ErrorKind = "InsufficientStock"
	KindNoActiveRecipe      ErrorKind = "NoActiveRecipe"
	KindConcurrencyConflict ErrorKind = "ConcurrencyConflict"
	KindInvalidStrategy     ErrorKind = "InvalidStrategy"
	KindAlreadyExists       ErrorKind = "AlreadyExists"
	KindInvalidState        ErrorKind = "InvalidState"
	KindInternal            ErrorKind = "Internal"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that a contextualised copy created with
// WithMessage still satisfies errors.Is against the sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, Kind: e.Kind}
}

// Retryable reports whether the operation may succeed if simply retried
func (e *DomainError) Retryable() bool {
	return e.Kind == KindConcurrencyConflict
}

// NewDomainError creates a new domain error of the validation kind
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kindForCode(code),
	}
}

// NewKindedError creates a new domain error with an explicit kind
func NewKindedError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

func kindForCode(code string) ErrorKind {
	switch code {
	case "NOT_FOUND", "MATERIAL_NOT_FOUND", "RECIPE_NOT_FOUND":
		return KindNotFound
	case "INSUFFICIENT_STOCK":
		return KindInsufficientStock
	case "NO_ACTIVE_RECIPE":
		return KindNoActiveRecipe
	case "CONCURRENCY_CONFLICT", "OPTIMISTIC_LOCK_FAILED", "LOCK_TIMEOUT":
		return KindConcurrencyConflict
	case "INVALID_STRATEGY":
		return KindInvalidStrategy
	case "ALREADY_EXISTS", "DUPLICATE_SKU":
		return KindAlreadyExists
	case "INVALID_STATE":
		return KindInvalidState
	default:
		return KindValidation
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Validation failed")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrTenantRequired      = NewDomainError("TENANT_REQUIRED", "Tenant identifier is required")

	ErrMaterialNotFound       = NewDomainError("MATERIAL_NOT_FOUND", "Material not found")
	ErrRecipeNotFound         = NewDomainError("RECIPE_NOT_FOUND", "Recipe not found")
	ErrNoActiveRecipe         = NewDomainError("NO_ACTIVE_RECIPE", "Product has no active recipe")
	ErrInvalidQuantity        = NewDomainError("INVALID_QUANTITY", "Quantity must be greater than zero")
	ErrQuantityPrecision      = NewDomainError("INVALID_QUANTITY", "Quantity must have at most 6 decimal places and 14 integer digits")
	ErrBatchTooLarge          = NewDomainError("BATCH_TOO_LARGE", "Batch exceeds the maximum allowed size")
	ErrUnitMismatch           = NewDomainError("UNIT_MISMATCH", "Component unit does not match material unit")
	ErrInvalidUnit            = NewDomainError("INVALID_UNIT", "Unknown unit of measure")
	ErrInvalidReason          = NewDomainError("INVALID_REASON", "Unknown transaction reason")
	ErrInvalidTransactionType = NewDomainError("INVALID_TRANSACTION_TYPE", "Unknown transaction type")
	ErrInvalidStrategy        = NewDomainError("INVALID_STRATEGY", "Unknown allocation strategy")
	ErrLockTimeout            = NewDomainError("LOCK_TIMEOUT", "Timed out waiting for material lock")
)

// KindOf returns the kind of the first DomainError in err's chain, or
// KindInternal when err carries none.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err is a retryable domain error
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable()
	}
	return false
}
