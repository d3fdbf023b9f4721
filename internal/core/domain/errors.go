package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound  = errors.New("portal record not found")
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrPreconditionViolated marks caller contract violations (a fabricated
	// match, an invoice outside the duplicate group). Distinct from an empty
	// suggestion list, which is a valid result.
	ErrPreconditionViolated = errors.New("precondition violated")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
