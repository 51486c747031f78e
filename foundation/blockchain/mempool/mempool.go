// Package mempool maintains the pool of pending transactions for the
// blockchain.
package mempool

import (
	"sync"

	"github.com/fluerion/node/foundation/blockchain/database"
)

// Mempool represents the ordered set of transactions accepted but not yet
// recorded in a block. The same transaction may appear more than once.
type Mempool struct {
	mu   sync.RWMutex
	pool []database.Tx
}

// New constructs a new empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends the transaction to the pool and returns the new size.
func (mp *Mempool) Add(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx)

	return len(mp.pool)
}

// Contains reports if the transaction is in the pool.
func (mp *Mempool) Contains(tx database.Tx) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	key := tx.Key()
	for _, poolTx := range mp.pool {
		if poolTx.Key() == key {
			return true
		}
	}

	return false
}

// ContainsAll reports if every transaction is in the pool. A transaction
// listed twice needs two copies in the pool.
func (mp *Mempool) ContainsAll(trans []database.Tx) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	counts := mp.counts()
	for _, tx := range trans {
		key := tx.Key()
		if counts[key] == 0 {
			return false
		}
		counts[key]--
	}

	return true
}

// Delete removes one copy of each specified transaction from the pool and
// returns the number of transactions removed. Transactions that are not in
// the pool are ignored.
func (mp *Mempool) Delete(trans []database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	remove := make(map[string]int)
	for _, tx := range trans {
		remove[tx.Key()]++
	}

	var removed int
	pool := make([]database.Tx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		key := tx.Key()
		if remove[key] > 0 {
			remove[key]--
			removed++
			continue
		}
		pool = append(pool, tx)
	}
	mp.pool = pool

	return removed
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
}

// Copy returns the transactions in the order they were added.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Tx, len(mp.pool))
	copy(cpy, mp.pool)

	return cpy
}

// =============================================================================

// counts returns the number of copies of each transaction in the pool.
// The caller must hold the lock.
func (mp *Mempool) counts() map[string]int {
	counts := make(map[string]int, len(mp.pool))
	for _, tx := range mp.pool {
		counts[tx.Key()]++
	}

	return counts
}
