package service

import (
	"errors"
	"fmt"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")

	ErrInvalidTransition = errors.New("invalid transition")
	ErrDuplicateWeighing = errors.New("weighing of this type already registered")
	ErrInvalidWeight     = errors.New("invalid weight")
	ErrMalformedPosition = errors.New("latitude or longitude out of range")
	ErrStaleSample       = errors.New("sample precedes trip start")

	// ErrCorruptHistory means the stored location history violates its
	// ordering invariant. A data integrity bug, never a bad request.
	ErrCorruptHistory = errors.New("location history out of order")
)

// TransitionError carries the diagnostics the caller needs to understand a
// rejected transition.
type TransitionError struct {
	Current   model.AssignmentState
	Requested model.AssignmentState
	Allowed   []model.AssignmentState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q (allowed: %v)", e.Current, e.Requested, e.Allowed)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// WeightError names the offending field of a rejected weighing.
type WeightError struct {
	Field string
	Value float64
}

func (e *WeightError) Error() string {
	return fmt.Sprintf("invalid weight: %s = %.3f", e.Field, e.Value)
}

func (e *WeightError) Unwrap() error {
	return ErrInvalidWeight
}
