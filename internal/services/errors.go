package services

import (
	"errors"
	"strings"

	"github.com/diewo77/care-meals/validation"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrStatusConflict     = errors.New("status changed since it was displayed")
	ErrInUse              = errors.New("record is still referenced")
	ErrDuplicate          = errors.New("record already exists")
	ErrSelfDelete         = errors.New("users cannot delete themselves")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError carries field violations back to the caller.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f := range e.Violations {
		fields = append(fields, f)
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

func isForeignKeyViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key")
}
