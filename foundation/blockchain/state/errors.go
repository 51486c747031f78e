package state

import (
	"errors"

	"github.com/fluerion/node/foundation/blockchain/database"
)

// Set of errors returned by the state api.
var (
	ErrNoTransactions      = errors.New("no transactions in mempool")
	ErrUnknownTransactions = errors.New("block contains transactions that are not pending")
)

// =============================================================================

// RejectError is returned when a block breaks a consensus rule. The chain
// and the mempool are left unchanged.
type RejectError struct {
	Err error
}

// Error implements the error interface.
func (re *RejectError) Error() string {
	return "block rejected: " + re.Err.Error()
}

// Unwrap provides access to the rule that was broken.
func (re *RejectError) Unwrap() error {
	return re.Err
}

// Reason returns the description of the broken rule.
func (re *RejectError) Reason() string {
	return re.Err.Error()
}

// IsRejectError checks if an error of type RejectError exists.
func IsRejectError(err error) bool {
	var re *RejectError
	return errors.As(err, &re)
}

// GetRejectError returns a copy of the RejectError pointer.
func GetRejectError(err error) *RejectError {
	var re *RejectError
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// IsStale reports if the block was built on a block that is no longer
// the latest block.
func IsStale(err error) bool {
	return errors.Is(err, database.ErrStaleBlock)
}
