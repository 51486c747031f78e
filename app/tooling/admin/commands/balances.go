// Package commands contains the functionality for the admin tooling.
package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/fluerion/node/foundation/blockchain/database"
)

// Balances writes the balance of every address, or only the one specified,
// folded from the recorded blocks.
func Balances(w io.Writer, db *database.Database, address string) error {
	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", db.LatestBlock().Hash)

	if address != "" {
		fmt.Fprintf(w, "Address: %s  Balance: %s\n", address, formatAmount(db.Balance(address)))
		return nil
	}

	bals := db.Balances()

	addrs := make([]string, 0, len(bals))
	for addr := range bals {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		fmt.Fprintf(w, "Address: %s  Balance: %s\n", addr, formatAmount(bals[addr]))
	}

	return nil
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
