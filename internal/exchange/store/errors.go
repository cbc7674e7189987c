package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSymbolNotFound is returned by price queries for symbols with no
// accepted trades. It is an expected outcome, not a store failure.
var ErrSymbolNotFound = errors.New("symbol not found")

var errCapacityExhausted = errors.New("trade capacity exhausted")

// FieldError names a single invalid trade field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a trade that violates the trade invariants.
// No store state changes when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return "invalid trade: " + strings.Join(msgs, "; ")
}

// StorageError reports an internal failure to record a trade. The
// aggregate for the trade's symbol is left unchanged.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
