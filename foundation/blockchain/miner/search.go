// Package miner implements the external miner: it polls a node for blocks
// to mine, searches for a nonce in parallel and hands the solved block back.
package miner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fluerion/node/foundation/blockchain/database"
	"golang.org/x/sync/errgroup"
)

// progressInterval is the number of attempts between progress events.
const progressInterval = 1_000_000

// Search looks for a nonce that solves the block at the specified
// difficulty using the number of workers. Worker i tries the nonces
// i, i+workers, i+2*workers and so on. All workers stop as soon as one of
// them finds a solution or the context is cancelled.
func Search(ctx context.Context, block database.Block, difficulty uint, workers int, ev func(v string, args ...any)) (database.Block, error) {
	if workers < 1 {
		workers = 1
	}

	ev("miner: Search: started: prevBlk[%s]: numTrans[%d]: workers[%d]", block.PrevBlockHash.Short(), len(block.Trans), workers)
	defer ev("miner: Search: completed")

	var (
		found    atomic.Bool
		attempts atomic.Uint64
		mu       sync.Mutex
		solved   database.Block
		ok       bool
	)

	parent := ctx
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			for nonce := uint64(i); !found.Load(); nonce += uint64(workers) {
				if n := attempts.Add(1); n%progressInterval == 0 {
					ev("miner: Search: attempts[%d]", n)
				}

				h := block.CalculateHashWithNonce(nonce)
				if !database.ValidProof(h, difficulty) {
					continue
				}

				if found.CompareAndSwap(false, true) {
					mu.Lock()
					solved = block
					solved.Nonce = nonce
					solved.Hash = h
					ok = true
					mu.Unlock()
				}
				return nil
			}

			return nil
		})
	}

	// Stop the workers when the caller gives up.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			found.Store(true)
		case <-done:
		}
	}()

	err := g.Wait()
	close(done)

	mu.Lock()
	defer mu.Unlock()

	if ok {
		ev("miner: Search: SOLVED: newBlk[%s]: nonce[%d]: attempts[%d]", solved.Hash.Short(), solved.Nonce, attempts.Load())
		return solved, nil
	}

	if err == nil {
		err = parent.Err()
	}
	if err == nil {
		err = errors.New("search stopped without a solution")
	}

	return database.Block{}, err
}
