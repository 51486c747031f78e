package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fluerion/node/foundation/blockchain/hash"
)

// Tx is the transactional information between two parties. The signature is
// carried as an opaque value and is never verified by the node.
type Tx struct {
	Sender    string  `json:"sender" validate:"required"`
	Receiver  string  `json:"receiver" validate:"required"`
	Amount    float64 `json:"amount"`
	TimeStamp uint64  `json:"timestamp"`
	Signature *string `json:"signature"`
}

// NewTx constructs a new unsigned transaction stamped with the current time.
func NewTx(sender string, receiver string, amount float64) Tx {
	return Tx{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}
}

// Sign attaches the opaque signature to the transaction.
func (tx Tx) Sign(signature string) Tx {
	tx.Signature = &signature
	return tx
}

// IsSigned reports if a signature is attached.
func (tx Tx) IsSigned() bool {
	return tx.Signature != nil
}

// CalculateHash returns a digest of the transaction. It's only used for
// diagnostics and plays no part in block validation.
func (tx Tx) CalculateHash() hash.Hash256 {
	ts := strconv.FormatUint(tx.TimeStamp, 10)
	data := tx.Sender + tx.Receiver + formatAmount(tx.Amount) + ts

	return hash.Calculate(ts, hash.Zero, data)
}

// Key returns the JSON encoding of the transaction. Two transactions
// are the same transaction when their keys are equal.
func (tx Tx) Key() string {
	data, err := json.Marshal(tx)
	if err != nil {
		return tx.String()
	}
	return string(data)
}

// Equals compares the JSON encoding of both transactions.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx.Key() == otherTx.Key()
}

// String implements the fmt.Stringer interface. This rendering is part of
// the block hash payload and must not change.
func (tx Tx) String() string {
	return fmt.Sprintf("From: %s To: %s Amount: %s Time: %d Signed: %t",
		tx.Sender, tx.Receiver, formatAmount(tx.Amount), tx.TimeStamp, tx.IsSigned())
}

// =============================================================================

// joinTxs renders the transactions as the block hash payload.
func joinTxs(trans []Tx) string {
	strs := make([]string, len(trans))
	for i, tx := range trans {
		strs[i] = tx.String()
	}
	return strings.Join(strs, ", ")
}

// formatAmount renders the amount in its shortest decimal form
// without an exponent, so 50 renders as "50" and 0.1 as "0.1".
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
