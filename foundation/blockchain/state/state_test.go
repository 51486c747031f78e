package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/genesis"
	"github.com/fluerion/node/foundation/blockchain/peer"
	"github.com/fluerion/node/foundation/blockchain/state"
	"github.com/fluerion/node/foundation/blockchain/storage/memory"
	"github.com/fluerion/node/foundation/wire"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const testDifficulty = 2

func newState(t *testing.T) *state.State {
	t.Helper()

	gen := genesis.Default()
	gen.Difficulty = testDifficulty

	st, err := state.New(state.Config{
		Host:       "127.0.0.1:9000",
		Genesis:    gen,
		Storage:    memory.New(),
		KnownPeers: peer.NewPeerSet(),
		Client:     wire.Client{DialTimeout: time.Second, IOTimeout: time.Second},
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return st
}

// solve mines the current template the way an external miner would.
func solve(t *testing.T, st *state.State) database.Block {
	t.Helper()

	template, ok := st.BlockToMine()
	if !ok {
		t.Fatalf("\t%s\tShould get a block to mine.", failed)
	}

	block, err := database.POW(context.Background(), template, testDifficulty, func(string, ...any) {})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to solve the block: %v", failed, err)
	}

	return block
}

func Test_BlockToMine(t *testing.T) {
	t.Log("Given the need to hand block templates to miners.")
	{
		st := newState(t)

		t.Logf("\tTest 0:\tWhen the mempool is empty.")
		{
			if _, ok := st.BlockToMine(); ok {
				t.Fatalf("\t%s\tTest 0:\tShould not get a block to mine.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not get a block to mine.", success)
		}

		t.Logf("\tTest 1:\tWhen a transaction is pending.")
		{
			tx := database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1700000000}
			st.AddTransaction(tx)

			block, ok := st.BlockToMine()
			if !ok {
				t.Fatalf("\t%s\tTest 1:\tShould get a block to mine.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get a block to mine.", success)

			if len(block.Trans) != 1 || !block.Trans[0].Equals(tx) {
				t.Fatalf("\t%s\tTest 1:\tShould hold the pending transaction, got %v.", failed, block.Trans)
			}
			t.Logf("\t%s\tTest 1:\tShould hold the pending transaction.", success)

			if block.PrevBlockHash != st.RetrieveGenesisBlock().Hash {
				t.Fatalf("\t%s\tTest 1:\tShould be built on the genesis block.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould be built on the genesis block.", success)

			if block.Nonce != 0 || block.Hash != block.CalculateHash() {
				t.Fatalf("\t%s\tTest 1:\tShould be an unsolved template.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould be an unsolved template.", success)

			if st.RetrieveMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould leave the mempool unchanged.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the mempool unchanged.", success)
		}
	}
}

func Test_AddMinedBlock(t *testing.T) {
	t.Log("Given the need to accept blocks solved by miners.")
	{
		t.Logf("\tTest 0:\tWhen the block is solved on the latest block.")
		{
			st := newState(t)
			st.AddTransaction(database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1})
			st.AddTransaction(database.Tx{Sender: "Bob", Receiver: "Charlie", Amount: 30, TimeStamp: 2})

			block := solve(t, st)

			// Arrives after the template was handed out.
			late := database.Tx{Sender: "Dave", Receiver: "Eve", Amount: 5, TimeStamp: 3}
			st.AddTransaction(late)

			if err := st.AddMinedBlock(block); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the block.", success)

			if st.RetrieveChainLength() != 2 || !st.IsValid() {
				t.Fatalf("\t%s\tTest 0:\tShould have a valid chain of two blocks.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have a valid chain of two blocks.", success)

			pool := st.RetrieveMempool()
			if len(pool) != 1 || !pool[0].Equals(late) {
				t.Fatalf("\t%s\tTest 0:\tShould only remove the mined transactions, got %v.", failed, pool)
			}
			t.Logf("\t%s\tTest 0:\tShould only remove the mined transactions.", success)

			if got := st.Balance("Bob"); got != 20 {
				t.Fatalf("\t%s\tTest 0:\tShould have a balance of 20 for Bob, got %v.", failed, got)
			}
			if got := st.Balance("Nobody"); got != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould have a zero balance for an unknown address, got %v.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould compute balances from the chain.", success)
		}

		t.Logf("\tTest 1:\tWhen the block is not built on the latest block.")
		{
			st := newState(t)
			st.AddTransaction(database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1})

			block := solve(t, st)
			block.PrevBlockHash[0] ^= 0xff
			block.Hash = block.CalculateHashWithNonce(block.Nonce)

			err := st.AddMinedBlock(block)
			if !state.IsRejectError(err) || !errors.Is(err, database.ErrStaleBlock) {
				t.Fatalf("\t%s\tTest 1:\tShould reject a stale block, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a stale block.", success)

			if st.RetrieveChainLength() != 1 || st.RetrieveMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould leave the chain and mempool unchanged.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the chain and mempool unchanged.", success)
		}

		t.Logf("\tTest 2:\tWhen the block hash fails the difficulty.")
		{
			st := newState(t)
			st.AddTransaction(database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1})

			template, _ := st.BlockToMine()

			var nonce uint64
			for ; database.ValidProof(template.CalculateHashWithNonce(nonce), testDifficulty); nonce++ {
			}
			template.Nonce = nonce
			template.Hash = template.CalculateHashWithNonce(nonce)

			err := st.AddMinedBlock(template)
			if !errors.Is(err, database.ErrProofFailed) {
				t.Fatalf("\t%s\tTest 2:\tShould reject an unsolved block, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject an unsolved block.", success)

			if st.RetrieveChainLength() != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould leave the chain unchanged.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould leave the chain unchanged.", success)
		}

		t.Logf("\tTest 3:\tWhen the template was already mined by another miner.")
		{
			st := newState(t)
			st.AddTransaction(database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1})

			first := solve(t, st)
			second := solve(t, st)

			if err := st.AddMinedBlock(first); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould accept the first block: %v", failed, err)
			}

			if err := st.AddMinedBlock(second); !state.IsStale(err) {
				t.Fatalf("\t%s\tTest 3:\tShould reject the second block as stale, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould accept the first valid block and reject the second.", success)
		}

		t.Logf("\tTest 4:\tWhen the block holds transactions that are not pending.")
		{
			st := newState(t)
			st.AddTransaction(database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1})

			template, _ := st.BlockToMine()
			template.Trans = append(template.Trans, database.Tx{Sender: "Mallory", Receiver: "Mallory", Amount: 1000, TimeStamp: 9})

			block, err := database.POW(context.Background(), template, testDifficulty, func(string, ...any) {})
			if err != nil {
				t.Fatalf("\t%s\tTest 4:\tShould be able to solve the block: %v", failed, err)
			}

			err = st.AddMinedBlock(block)
			if !errors.Is(err, state.ErrUnknownTransactions) {
				t.Fatalf("\t%s\tTest 4:\tShould reject unknown transactions, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 4:\tShould reject unknown transactions.", success)

			if st.RetrieveChainLength() != 1 || st.RetrieveMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 4:\tShould leave the chain and mempool unchanged.", failed)
			}
			t.Logf("\t%s\tTest 4:\tShould leave the chain and mempool unchanged.", success)
		}
	}
}

func Test_MineNewBlock(t *testing.T) {
	t.Log("Given the need to mine blocks locally.")
	{
		st := newState(t)

		t.Logf("\tTest 0:\tWhen the mempool is empty.")
		{
			if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrNoTransactions) {
				t.Fatalf("\t%s\tTest 0:\tShould report no transactions, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould report no transactions.", success)
		}

		t.Logf("\tTest 1:\tWhen transactions are pending.")
		{
			st.AddTransaction(database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1})

			block, err := st.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould mine the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould mine the block.", success)

			if st.RetrieveLatestBlock().Hash != block.Hash || st.RetrieveMempoolLength() != 0 || !st.IsValid() {
				t.Fatalf("\t%s\tTest 1:\tShould append the block and clear the mempool.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould append the block and clear the mempool.", success)
		}
	}
}

func Test_SubmitTransaction(t *testing.T) {
	t.Log("Given the need to accept transactions from wallets and peers.")
	{
		st := newState(t)
		tx := database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1}

		t.Logf("\tTest 0:\tWhen the transaction is new.")
		{
			added, err := st.SubmitTransaction(tx)
			if err != nil || !added {
				t.Fatalf("\t%s\tTest 0:\tShould add the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould add the transaction.", success)
		}

		t.Logf("\tTest 1:\tWhen the transaction is already pending.")
		{
			added, err := st.SubmitTransaction(tx)
			if err != nil || added || st.RetrieveMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould ignore the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould ignore the transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen the transaction is already recorded.")
		{
			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould mine the block: %v", failed, err)
			}

			added, err := st.SubmitTransaction(tx)
			if err != nil || added || st.RetrieveMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould ignore the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould ignore the transaction.", success)
		}

		t.Logf("\tTest 3:\tWhen the transaction has no receiver.")
		{
			if _, err := st.SubmitTransaction(database.Tx{Sender: "Alice", Amount: 1}); err == nil {
				t.Fatalf("\t%s\tTest 3:\tShould fail validation.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould fail validation.", success)
		}
	}
}

func Test_ProcessPeerBlock(t *testing.T) {
	t.Log("Given the need to accept blocks from peers.")
	{
		miner := newState(t)
		follower := newState(t)

		tx := database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1}
		miner.AddTransaction(tx)
		follower.AddTransaction(tx)

		block, err := miner.MineNewBlock(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould mine the block: %v", failed, err)
		}

		t.Logf("\tTest 0:\tWhen the block extends the chain.")
		{
			if err := follower.ProcessPeerBlock(block); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the block.", success)

			if follower.RetrieveLatestBlock().Hash != block.Hash || follower.RetrieveMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould record the block and clear the transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould record the block and clear the transaction.", success)
		}

		t.Logf("\tTest 1:\tWhen the block is received again.")
		{
			if err := follower.ProcessPeerBlock(block); !state.IsStale(err) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the block as stale, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the block as stale.", success)
		}
	}
}
