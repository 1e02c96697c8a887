package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors. Retryable marks the store
// integrity class (transaction conflicts); every other error is terminal for
// the request that produced it.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Retryable  bool
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewNoTechniciansRegistered signals an empty technician roster.
func NewNoTechniciansRegistered() error {
	return NewDomainError("NO_TECHNICIANS_REGISTERED", "no technicians registered", http.StatusBadRequest, nil)
}

// NewNoAvailableTechnician signals that no roster member is within the
// availability tolerance of the current time.
func NewNoAvailableTechnician() error {
	return NewDomainError("NO_AVAILABLE_TECHNICIAN", "no technician available at the current time", http.StatusBadRequest, nil)
}

// NewTechnicianBusy enforces the single in-progress call invariant.
func NewTechnicianBusy(technicianID string) error {
	return NewDomainError("TECHNICIAN_BUSY", "technician already has a call in progress",
		http.StatusConflict, map[string]any{"technician_id": technicianID})
}

// NewInvalidTransition rejects an illegal lifecycle move, including
// re-entering the current state.
func NewInvalidTransition(from, to string) error {
	return NewDomainError("INVALID_TRANSITION", "invalid status transition",
		http.StatusUnprocessableEntity, map[string]any{"from": from, "to": to})
}

func NewDuplicateAssociation(serviceID string) error {
	return NewDomainError("DUPLICATE_ASSOCIATION", "service already attached to call",
		http.StatusBadRequest, map[string]any{"service_id": serviceID})
}

func NewAssociationNotFound(serviceID string) error {
	return NewDomainError("ASSOCIATION_NOT_FOUND", "service not attached to call",
		http.StatusBadRequest, map[string]any{"service_id": serviceID})
}

func NewInactiveOrMissingService(details map[string]any) error {
	return NewDomainError("INACTIVE_OR_MISSING_SERVICE", "one or more services are missing or inactive",
		http.StatusBadRequest, details)
}

// NewTxConflict wraps a store serialization failure; callers may re-run the
// whole transactional operation.
func NewTxConflict(err error) error {
	return &DomainError{
		Code:       "TX_CONFLICT",
		Message:    "transaction conflict",
		HTTPStatus: http.StatusConflict,
		Retryable:  true,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
