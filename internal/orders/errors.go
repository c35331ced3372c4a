package orders

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidInput    = errors.New("invalid input")
	ErrStoreFailure    = errors.New("store failure")

	ErrEmptyCart               = &ValidationError{Field: "cart", Reason: "Cart is empty"}
	ErrOrderNotFound           = errors.New("order not found")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// ValidationError is a rejected request field. It matches ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "cart" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// storeError keeps the cause for logs while matching ErrStoreFailure.
type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string   { return fmt.Sprintf("%s: %v", e.op, e.err) }
func (e *storeError) Unwrap() []error { return []error{ErrStoreFailure, e.err} }

func storeFailure(op string, err error) error { return &storeError{op: op, err: err} }
