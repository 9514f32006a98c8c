// Package errs defines the error types surfaced by the analytics engine.
//
// Validation errors fire synchronously before any I/O; data-source errors
// wrap collaborator failures with enough context (household, view,
// operation) to reproduce them. Insufficient data and lock contention are
// soft outcomes, not errors.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed options or filters.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError with a formatted reason.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DataSourceError wraps a Ledger, cache, or store failure.
type DataSourceError struct {
	Op          string
	HouseholdID string
	ViewName    string
	Err         error
}

func (e *DataSourceError) Error() string {
	switch {
	case e.HouseholdID != "":
		return fmt.Sprintf("%s (household %s): %v", e.Op, e.HouseholdID, e.Err)
	case e.ViewName != "":
		return fmt.Sprintf("%s (view %s): %v", e.Op, e.ViewName, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// DataSource wraps err with operation and household context. Nil-safe.
func DataSource(op, householdID string, err error) error {
	if err == nil {
		return nil
	}
	return &DataSourceError{Op: op, HouseholdID: householdID, Err: err}
}

// DataSourceView wraps err with operation and view context. Nil-safe.
func DataSourceView(op, viewName string, err error) error {
	if err == nil {
		return nil
	}
	return &DataSourceError{Op: op, ViewName: viewName, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDataSource reports whether err is (or wraps) a DataSourceError.
func IsDataSource(err error) bool {
	var de *DataSourceError
	return errors.As(err, &de)
}
