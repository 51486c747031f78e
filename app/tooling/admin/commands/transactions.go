package commands

import (
	"fmt"
	"io"

	"github.com/fluerion/node/foundation/blockchain/database"
)

// Transactions writes the recorded transactions, optionally only those
// sent or received by the address.
func Transactions(w io.Writer, db *database.Database, address string) error {
	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", db.LatestBlock().Hash)

	for num, block := range db.CopyBlocks() {
		for _, tx := range block.Trans {
			if address != "" && tx.Sender != address && tx.Receiver != address {
				continue
			}

			fmt.Fprintf(w, "Block: %d  Hash: %s  From: %s  To: %s  Amount: %s  Signed: %t\n",
				num, tx.CalculateHash().Short(), tx.Sender, tx.Receiver, formatAmount(tx.Amount), tx.IsSigned())
		}
	}

	return nil
}

// Verify checks the links and proofs of the recorded chain.
func Verify(w io.Writer, db *database.Database) error {
	if !db.IsValid() {
		return fmt.Errorf("chain of %d blocks is invalid", db.Len())
	}

	fmt.Fprintf(w, "chain of %d blocks is valid\n", db.Len())
	return nil
}
