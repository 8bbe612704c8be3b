package evolution

import (
	"errors"
	"fmt"
)

// Sentinel errors distinguish input rejection from storage failure so
// callers can react differently: validation errors mean the call itself
// was malformed and nothing was mutated; persistence errors mean the
// ledger could not be read or written.
var (
	ErrValidation  = errors.New("validation error")
	ErrPersistence = errors.New("persistence error")
)

// validationErrorf wraps ErrValidation with a formatted message.
func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// persistenceErrorf wraps ErrPersistence with a formatted message.
func persistenceErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrPersistence}, args...)...)
}
