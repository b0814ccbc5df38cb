package models

import (
	"errors"
	"fmt"
)

// Failure categories shared by the board engine, the REST client and the backend.
var (
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrNotFound  = errors.New("not found")
	ErrNetwork   = errors.New("network error")
)

// ValidationError reports bad input caught before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// DataIntegrityError is returned when a task carries a status outside the four lanes.
type DataIntegrityError struct {
	TaskID int64
	Status Status
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("task %d has unknown status %q", e.TaskID, e.Status)
}

// Category names the user-facing failure class of an error.
type Category string

const (
	CategoryNone       Category = ""
	CategoryValidation Category = "validation"
	CategoryForbidden  Category = "forbidden"
	CategoryConflict   Category = "conflict"
	CategoryNotFound   Category = "not_found"
	CategoryNetwork    Category = "network"
	CategoryIntegrity  Category = "data_integrity"
)

// Categorize maps err onto the failure taxonomy. Errors that match nothing are
// treated as network failures since they only arise from the transport.
func Categorize(err error) Category {
	if err == nil {
		return CategoryNone
	}
	var verr *ValidationError
	var derr *DataIntegrityError
	switch {
	case errors.As(err, &verr):
		return CategoryValidation
	case errors.As(err, &derr):
		return CategoryIntegrity
	case errors.Is(err, ErrForbidden):
		return CategoryForbidden
	case errors.Is(err, ErrConflict):
		return CategoryConflict
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	default:
		return CategoryNetwork
	}
}
