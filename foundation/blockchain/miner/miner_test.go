package miner_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/genesis"
	"github.com/fluerion/node/foundation/blockchain/miner"
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

func noop(string, ...any) {}

func Test_Search(t *testing.T) {
	template := database.NewTemplate(database.NewGenesisBlock(0), []database.Tx{
		{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1},
	})

	t.Log("Given the need to search for a nonce in parallel.")
	{
		for testID, workers := range []int{1, 4} {
			t.Logf("\tTest %d:\tWhen searching with %d workers.", testID, workers)
			{
				block, err := miner.Search(context.Background(), template, testDifficulty, workers, noop)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould find a solution: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould find a solution.", success, testID)

				if err := block.ValidateBlock(database.NewGenesisBlock(0), testDifficulty, noop); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould produce a valid block: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould produce a valid block.", success, testID)
			}
		}

		t.Logf("\tTest 2:\tWhen the search is cancelled.")
		{
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			// No hash has 64 leading zeros in practice.
			_, err := miner.Search(ctx, template, 64, 2, noop)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("\t%s\tTest 2:\tShould stop with the context error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould stop with the context error.", success)
		}
	}
}

// startNode serves the mining commands straight from a state value.
func startNode(t *testing.T, st *state.State) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to listen: %v", failed, err)
	}

	app := wire.NewApp(wire.AppConfig{})

	app.Handle(wire.CmdGetBlockToMine, func(ctx context.Context, payload string) (string, error) {
		block, ok := st.BlockToMine()
		if !ok {
			return wire.RespNoBlockAvailable, nil
		}
		msg, err := wire.Encode("", block)
		return msg, err
	})

	app.Handle(wire.CmdMinedBlock, func(ctx context.Context, payload string) (string, error) {
		var block database.Block
		if err := wire.Decode(wire.CmdMinedBlock, payload, &block); err != nil {
			return "", err
		}
		if err := st.AddMinedBlock(block); err != nil {
			return wire.RespMinedRejected + err.Error(), nil
		}
		return wire.RespMinedBlockAdded, nil
	})

	go app.Serve(ln)
	t.Cleanup(func() { app.Shutdown(context.Background()) })

	return ln.Addr().String()
}

func Test_MineOnce(t *testing.T) {
	gen := genesis.Default()
	gen.Difficulty = testDifficulty

	st, err := state.New(state.Config{Genesis: gen, Storage: memory.New()})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	m := miner.New(miner.Config{
		Node:       startNode(t, st),
		Difficulty: testDifficulty,
		Workers:    2,
		Client:     wire.Client{DialTimeout: time.Second, IOTimeout: 5 * time.Second},
	})

	t.Log("Given the need to mine blocks for a node.")
	{
		t.Logf("\tTest 0:\tWhen the node has nothing to mine.")
		{
			mined, err := m.MineOnce(context.Background())
			if err != nil || mined {
				t.Fatalf("\t%s\tTest 0:\tShould not mine anything: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not mine anything.", success)
		}

		t.Logf("\tTest 1:\tWhen the node has pending transactions.")
		{
			st.AddTransaction(database.Tx{Sender: "Alice", Receiver: "Bob", Amount: 50, TimeStamp: 1})
			st.AddTransaction(database.Tx{Sender: "Bob", Receiver: "Charlie", Amount: 30, TimeStamp: 2})

			mined, err := m.MineOnce(context.Background())
			if err != nil || !mined {
				t.Fatalf("\t%s\tTest 1:\tShould mine a block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould mine a block.", success)

			if st.RetrieveChainLength() != 2 || st.RetrieveMempoolLength() != 0 || !st.IsValid() {
				t.Fatalf("\t%s\tTest 1:\tShould have the node accept the block.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould have the node accept the block.", success)

			if got := st.Balance("Bob"); got != 20 {
				t.Fatalf("\t%s\tTest 1:\tShould have a balance of 20 for Bob, got %v.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould have a balance of 20 for Bob.", success)
		}

		t.Logf("\tTest 2:\tWhen the solved block went stale.")
		{
			st.AddTransaction(database.Tx{Sender: "Dave", Receiver: "Eve", Amount: 5, TimeStamp: 3})

			template, ok, err := m.FetchBlock(context.Background())
			if err != nil || !ok {
				t.Fatalf("\t%s\tTest 2:\tShould fetch a block: %v", failed, err)
			}

			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould mine the block locally: %v", failed, err)
			}

			block, err := miner.Search(context.Background(), template, testDifficulty, 2, noop)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould find a solution: %v", failed, err)
			}

			if err := m.SubmitBlock(context.Background(), block); !errors.Is(err, miner.ErrRejected) {
				t.Fatalf("\t%s\tTest 2:\tShould be rejected, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould be rejected.", success)
		}
	}
}
