package kyc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWallet = errors.New("wallet address is required")
	ErrInvalidStatus = errors.New("invalid kyc status")
)

// PersistenceError reports that the medium rejected a write (or the read that
// must precede it). Callers surface it as "could not save verification data".
// It unwraps to the medium error, so errors.Is(err, sentinel.ErrQuotaExceeded) works.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("kyc: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err is or wraps a *PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
