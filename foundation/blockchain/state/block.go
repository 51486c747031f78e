package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fluerion/node/foundation/blockchain/database"
)

// BlockToMine returns an unsolved block holding every pending transaction on
// top of the latest block. It reports false when the mempool is empty. The
// mempool is not changed and every call returns an independent template.
func (s *State) BlockToMine() (database.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trans := s.mempool.Copy()
	if len(trans) == 0 {
		return database.Block{}, false
	}

	block := database.NewTemplate(s.db.LatestBlock(), trans)
	s.evHandler("state: BlockToMine: template: prevBlk[%s]: numTrans[%d]", block.PrevBlockHash.Short(), len(block.Trans))

	return block, true
}

// MineNewBlock performs the proof of work locally for the pending
// transactions and adds the solved block to the chain. The search stops
// when the context is cancelled.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	template, ok := s.BlockToMine()
	if !ok {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW")

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, template, s.genesis.Difficulty, s.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	if err := s.validateUpdateDatabase(block, true); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// AddMinedBlock accepts a block solved by an external miner. The block must
// be built on the latest block, recompute to its hash, satisfy the
// difficulty and only hold transactions that are still pending. On success
// only the mined transactions leave the mempool.
func (s *State) AddMinedBlock(block database.Block) error {
	s.evHandler("state: AddMinedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PrevBlockHash.Short(), block.Hash.Short(), len(block.Trans))
	defer s.evHandler("state: AddMinedBlock: completed: newBlk[%s]", block.Hash.Short())

	if err := s.validateUpdateDatabase(block, true); err != nil {
		return err
	}

	// A local mining operation is now working on a stale block.
	s.Worker.SignalCancelMining()
	s.Worker.SignalShareBlock(block)
	s.Worker.SignalStartMining()

	return nil
}

// ProcessPeerBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain. The transactions
// of the block don't need to be known by this node.
func (s *State) ProcessPeerBlock(block database.Block) error {
	s.evHandler("state: ProcessPeerBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PrevBlockHash.Short(), block.Hash.Short(), len(block.Trans))
	defer s.evHandler("state: ProcessPeerBlock: completed: newBlk[%s]", block.Hash.Short())

	if err := s.validateUpdateDatabase(block, false); err != nil {
		return err
	}

	s.Worker.SignalCancelMining()
	s.Worker.SignalShareBlock(block)
	s.Worker.SignalStartMining()

	return nil
}

// =============================================================================

// validateUpdateDatabase takes the block and validates the block against the
// consensus rules. If the block passes, then the state of the node is updated
// including adding the block to storage.
func (s *State) validateUpdateDatabase(block database.Block, requirePending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: validateUpdateDatabase: validate block")

	if err := block.ValidateBlock(s.db.LatestBlock(), s.genesis.Difficulty, s.evHandler); err != nil {
		s.evHandler("state: validateUpdateDatabase: REJECTED: %s", err)
		return &RejectError{Err: err}
	}

	if requirePending && !s.mempool.ContainsAll(block.Trans) {
		s.evHandler("state: validateUpdateDatabase: REJECTED: %s", ErrUnknownTransactions)
		return &RejectError{Err: ErrUnknownTransactions}
	}

	s.evHandler("state: validateUpdateDatabase: write to storage")

	if err := s.db.Write(block); err != nil {
		return fmt.Errorf("write block: %w", err)
	}

	removed := s.mempool.Delete(block.Trans)
	s.evHandler("state: validateUpdateDatabase: removed from mempool[%d]: remaining[%d]", removed, s.mempool.Count())

	// Send an event about this new block.
	s.blockEvent(block)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockTransJSON, err := json.Marshal(block.Trans)
	if err != nil {
		blockTransJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	s.evHandler(`viewer: block: {"hash":%q,"prev_block_hash":%q,"timestamp":%d,"nonce":%d,"trans":%s}`,
		block.Hash, block.PrevBlockHash, block.TimeStamp, block.Nonce, string(blockTransJSON))
}
