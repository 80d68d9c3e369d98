package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrSessionConflict     = errors.New("session conflict")
	ErrNoActiveSession     = errors.New("no active session")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrFairnessViolation   = errors.New("fairness violation")
	ErrDependencyTimeout   = errors.New("dependency timeout")
	ErrSeedNotInitialized  = errors.New("seed not initialized")
)

// Validationf builds an ErrValidation with a caller-facing reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ErrorKind maps an error to the name used on the wire.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrSessionConflict):
		return "SessionConflict"
	case errors.Is(err, ErrNoActiveSession):
		return "NoActiveSession"
	case errors.Is(err, ErrInsufficientBalance):
		return "InsufficientBalance"
	case errors.Is(err, ErrFairnessViolation):
		return "FairnessViolation"
	case errors.Is(err, ErrDependencyTimeout):
		return "DependencyTimeout"
	case errors.Is(err, ErrSeedNotInitialized):
		return "SeedNotInitialized"
	default:
		return "InternalError"
	}
}

// Retryable reports whether the caller may resend the same request without
// inspecting session state first.
func Retryable(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrDependencyTimeout)
}
