package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for the protocol derivation and versioning taxonomy.
const (
	ErrCodeUnknownCondition        = "UNKNOWN_CONDITION"
	ErrCodeUnknownProtocolID       = "UNKNOWN_PROTOCOL_ID"
	ErrCodeInvalidSelector         = "INVALID_SELECTOR_FOR_FAMILY"
	ErrCodeOutOfRangeParameter     = "OUT_OF_RANGE_PARAMETER"
	ErrCodeDuplicateLabel          = "DUPLICATE_LABEL"
	ErrCodeLabelConflictUnresolved = "LABEL_CONFLICT_UNRESOLVED"
	ErrCodeStoreUnavailable        = "STORE_UNAVAILABLE"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeInternal                = "INTERNAL_ERROR"
)

// Sentinel errors. Callers match these with errors.Is; every concrete store
// and service wraps rather than replaces them.
var (
	// ErrUnknownCondition means the condition tag is not in the closed set.
	ErrUnknownCondition = errors.New("unknown condition tag")

	// ErrUnknownProtocolID means the protocol id is outside 1..12.
	ErrUnknownProtocolID = errors.New("unknown protocol id")

	// ErrInvalidSelectorForFamily means the selector type does not match the
	// device family (e.g. a condition tag supplied for the advanced helmet).
	ErrInvalidSelectorForFamily = errors.New("selector does not match device family")

	// ErrOutOfRangeParameter means catalog data violated the hardware
	// envelope. This is a data integrity bug; it is fatal and never retried.
	ErrOutOfRangeParameter = errors.New("parameter out of range")

	// ErrDuplicateLabel is the store's uniqueness rejection for
	// (client, label). Transient under concurrent creation; retried once.
	ErrDuplicateLabel = errors.New("duplicate plan label for client")

	// ErrLabelConflictUnresolved means the single retry after a duplicate
	// label also collided. Surfaced to the caller, never retried further.
	ErrLabelConflictUnresolved = errors.New("label conflict unresolved after retry")

	// ErrStoreUnavailable wraps persistence failures and timeouts.
	ErrStoreUnavailable = errors.New("plan store unavailable")

	// ErrNotFound means the requested record does not exist. Delete treats
	// it as success; every other operation surfaces it.
	ErrNotFound = errors.New("not found")
)

// ErrorCode maps an error chain to its taxonomy code for transport-level
// status mapping and structured logs.
func ErrorCode(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrCodeValidation
	}
	switch {
	case errors.Is(err, ErrUnknownCondition):
		return ErrCodeUnknownCondition
	case errors.Is(err, ErrUnknownProtocolID):
		return ErrCodeUnknownProtocolID
	case errors.Is(err, ErrInvalidSelectorForFamily):
		return ErrCodeInvalidSelector
	case errors.Is(err, ErrOutOfRangeParameter):
		return ErrCodeOutOfRangeParameter
	case errors.Is(err, ErrLabelConflictUnresolved):
		return ErrCodeLabelConflictUnresolved
	case errors.Is(err, ErrDuplicateLabel):
		return ErrCodeDuplicateLabel
	case errors.Is(err, ErrStoreUnavailable):
		return ErrCodeStoreUnavailable
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeInternal
	}
}

// ServiceError is the structured error payload returned by the HTTP surface.
type ServiceError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewServiceError creates a ServiceError with the current timestamp.
func NewServiceError(code, message, details, requestID string) *ServiceError {
	return &ServiceError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
