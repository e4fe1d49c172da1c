package burnindex

import "github.com/cockroachdb/errors"

var (
	// ErrZeroAmount rejects a burn with nothing attached
	ErrZeroAmount = errors.New("must attach a positive amount to burn")
	// ErrAlreadyInitialized rejects a second Initialize
	ErrAlreadyInitialized = errors.New("burn ledger already initialized")
	// ErrNotInitialized rejects a burn before Initialize
	ErrNotInitialized = errors.New("burn ledger not initialized")
	// ErrConsistency marks a broken index invariant found in the store
	ErrConsistency = errors.New("burn index consistency violation")
	// ErrInsufficientBalance is returned by HoldingSink when it cannot cover a transfer
	ErrInsufficientBalance = errors.New("insufficient held balance")
)

// consistencyViolation builds an assertion failure marked with ErrConsistency.
func consistencyViolation(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrConsistency)
}
