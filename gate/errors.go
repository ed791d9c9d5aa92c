package gate

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Table.Authorize.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoPolicyDefined = errors.New("no policy defined for collection")
)

// DeniedError names the rule that rejected an operation.
// It unwraps to ErrUnauthorized so callers can keep using errors.Is.
type DeniedError struct {
	Key Key
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Key)
}

func (e *DeniedError) Unwrap() error { return ErrUnauthorized }
