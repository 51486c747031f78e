package mempool_test

import (
	"testing"

	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCRUD(t *testing.T) {
	type table struct {
		name string
		txs  []database.Tx
	}

	tt := []table{
		{
			name: "basic",
			txs: []database.Tx{
				{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1},
				{Sender: "Bob", Receiver: "Charlie", Amount: 30, TimeStamp: 2},
				{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1},
				{Sender: "Dave", Receiver: "Alice", Amount: -1, TimeStamp: 3},
			},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					for _, tx := range tst.txs {
						mp.Add(tx)
					}

					if mp.Count() != len(tst.txs) {
						t.Fatalf("\t%s\tTest %d:\tShould keep every transaction, got %d.", failed, testID, mp.Count())
					}
					t.Logf("\t%s\tTest %d:\tShould keep every transaction.", success, testID)

					for i, tx := range mp.Copy() {
						if !tx.Equals(tst.txs[i]) {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, tx)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.txs[i])
							t.Fatalf("\t%s\tTest %d:\tShould keep the insertion order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould keep the insertion order.", success, testID)

					dup := []database.Tx{tst.txs[0], tst.txs[0]}
					if !mp.ContainsAll(dup) {
						t.Fatalf("\t%s\tTest %d:\tShould contain both copies.", failed, testID)
					}
					if mp.ContainsAll([]database.Tx{tst.txs[0], tst.txs[0], tst.txs[0]}) {
						t.Fatalf("\t%s\tTest %d:\tShould not contain a third copy.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould count copies.", success, testID)

					unknown := database.Tx{Sender: "Eve", Receiver: "Eve", TimeStamp: 9}
					if n := mp.Delete([]database.Tx{tst.txs[0], unknown}); n != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould remove one copy, removed %d.", failed, testID, n)
					}
					if mp.Count() != len(tst.txs)-1 || !mp.Contains(tst.txs[0]) {
						t.Fatalf("\t%s\tTest %d:\tShould leave the other copy.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to remove a transaction.", success, testID)

					mp.Truncate()
					if mp.Count() != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
