package services

import (
	"errors"
	"fmt"

	apperrors "github.com/EduCore-2025/exam-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Exam specific errors
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamNotActive     = errors.New("exam is not active")
	ErrExamNotScheduled  = errors.New("exam is not in scheduled status")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Registration specific errors
	ErrAlreadyRegistered  = errors.New("user is already registered for this exam")
	ErrNotRegistered      = errors.New("user is not registered for this exam")
	ErrRegistrationClosed = errors.New("registration window has closed")

	// Session specific errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session token")
	ErrSessionNotOwner  = errors.New("session belongs to another user")
	ErrSessionClosed    = errors.New("session is no longer active")
	ErrAlreadyCompleted = errors.New("user has already completed this exam")
	ErrOutsideWindow    = errors.New("exam window is not open")

	// Question specific errors
	ErrQuestionNotFound     = errors.New("question not found")
	ErrQuestionNotInExam    = errors.New("question does not belong to this exam")
	ErrQuestionNotInContest = errors.New("question does not belong to this contest")

	// Result specific errors
	ErrResultNotFound     = errors.New("result not found")
	ErrResultNotFinalized = errors.New("result is not finalized yet")

	// Contest specific errors
	ErrContestNotFound   = errors.New("contest not found")
	ErrContestNotActive  = errors.New("contest is not active")
	ErrContestNotJoined  = errors.New("user has not joined this contest")
	ErrAlreadyJoined     = errors.New("user already joined this contest")
	ErrContestNotClosed  = errors.New("contest results are not available until it closes")
	ErrAlreadySubmitted  = errors.New("answer already submitted for this question")
	ErrContestTransition = errors.New("invalid contest status transition")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// InvalidStateError carries the current state back to the caller so clients
// can render what actually happened instead of guessing.
type InvalidStateError struct {
	Entity  string `json:"entity"`
	ID      uint   `json:"id"`
	Current string `json:"current"`
	Wanted  string `json:"wanted"`
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d is %s, expected %s", e.Entity, e.ID, e.Current, e.Wanted)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidTransition
}

type PermissionError struct {
	UserID     uint   `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewInvalidStateError(entity string, id uint, current, wanted string) *InvalidStateError {
	return &InvalidStateError{Entity: entity, ID: id, Current: current, Wanted: wanted}
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrInvalidSession) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrContestNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrSessionNotOwner) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrAlreadyJoined) ||
		errors.Is(err, ErrAlreadySubmitted)
}

// IsInvalidState checks if error represents an operation against the wrong
// lifecycle state
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrExamNotActive) ||
		errors.Is(err, ErrExamNotScheduled) ||
		errors.Is(err, ErrSessionClosed) ||
		errors.Is(err, ErrOutsideWindow) ||
		errors.Is(err, ErrNotRegistered) ||
		errors.Is(err, ErrRegistrationClosed) ||
		errors.Is(err, ErrContestNotActive) ||
		errors.Is(err, ErrContestNotJoined) ||
		errors.Is(err, ErrContestNotClosed) ||
		errors.Is(err, ErrResultNotFinalized) ||
		errors.Is(err, ErrContestTransition) ||
		errors.Is(err, ErrQuestionNotInExam) ||
		errors.Is(err, ErrQuestionNotInContest)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}
