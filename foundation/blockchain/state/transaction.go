package state

import (
	"fmt"

	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/validate"
)

// AddTransaction appends the transaction to the mempool. No balance or
// signature checks are performed.
func (s *State) AddTransaction(tx database.Tx) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.mempool.Add(tx)
	s.evHandler("state: AddTransaction: tx[%s]: hash[%s]: mempool[%d]", tx, tx.CalculateHash().Short(), n)

	return n
}

// SubmitTransaction accepts a transaction from a wallet or a peer. A
// transaction that is already pending or already recorded is ignored so
// gossip between nodes terminates. It reports if the transaction was added.
func (s *State) SubmitTransaction(tx database.Tx) (bool, error) {
	if err := validate.Check(tx); err != nil {
		return false, fmt.Errorf("validate tx: %w", err)
	}

	s.mu.Lock()
	{
		if s.mempool.Contains(tx) || s.db.ContainsTx(tx) {
			s.mu.Unlock()
			s.evHandler("state: SubmitTransaction: tx[%s]: already known", tx)
			return false, nil
		}

		n := s.mempool.Add(tx)
		s.evHandler("state: SubmitTransaction: tx[%s]: hash[%s]: mempool[%d]", tx, tx.CalculateHash().Short(), n)
	}
	s.mu.Unlock()

	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMining()

	return true, nil
}
