// Package database handles all the lower level support for maintaining the
// chain of blocks in memory and replaying it from storage.
package database

import (
	"fmt"
	"sync"

	"github.com/fluerion/node/foundation/blockchain/genesis"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// BlockData represents what is written to storage. The genesis block is
// never stored, so numbering starts at 1.
type BlockData struct {
	Number uint64 `json:"number"`
	Block  Block  `json:"block"`
}

// =============================================================================

// Database manages the chain of blocks.
type Database struct {
	mu sync.RWMutex

	genesis genesis.Genesis
	blocks  []Block
	storage Storage
}

// New constructs a new database with the genesis block and replays any
// blocks found in storage. Every replayed block is validated against the
// block before it.
func New(gen genesis.Genesis, storage Storage, evHandler func(v string, args ...any)) (*Database, error) {
	db := Database{
		genesis: gen,
		blocks:  []Block{NewGenesisBlock(uint64(gen.Date.UTC().Unix()))},
		storage: storage,
	}

	iter := storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		latest := db.blocks[len(db.blocks)-1]
		if err := blockData.Block.ValidateBlock(latest, gen.Difficulty, evHandler); err != nil {
			return nil, fmt.Errorf("replaying block %d: %w", blockData.Number, err)
		}

		db.blocks = append(db.blocks, blockData.Block)
	}

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Reset re-initalizes the database back to the genesis block.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = db.blocks[:1]
	return db.storage.Reset()
}

// Write appends the block to the chain and storage. The caller is
// responsible for validating the block first.
func (db *Database) Write(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	blockData := BlockData{
		Number: uint64(len(db.blocks)),
		Block:  block,
	}

	if err := db.storage.Write(blockData); err != nil {
		return err
	}

	db.blocks = append(db.blocks, block)

	return nil
}

// LatestBlock returns the tip of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1]
}

// Genesis returns the first block of the chain.
func (db *Database) Genesis() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[0]
}

// Len returns the number of blocks including genesis.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// CopyBlocks returns a copy of the chain.
func (db *Database) CopyBlocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	for i, block := range db.blocks {
		block.Trans = append([]Tx{}, block.Trans...)
		blocks[i] = block
	}
	return blocks
}

// IsValid walks the chain from the first block after genesis and checks
// the hash, the link to the parent and the proof of work for every block.
// Genesis is never checked for proof of work.
func (db *Database) IsValid() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for i := 1; i < len(db.blocks); i++ {
		current := db.blocks[i]
		prev := db.blocks[i-1]

		if current.Hash != current.CalculateHashWithNonce(current.Nonce) {
			return false
		}

		if current.PrevBlockHash != prev.Hash {
			return false
		}

		if !ValidProof(current.Hash, db.genesis.Difficulty) {
			return false
		}
	}

	return true
}

// ContainsTx reports if the transaction has been recorded in any block.
func (db *Database) ContainsTx(tx Tx) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	key := tx.Key()
	for _, block := range db.blocks {
		for _, blockTx := range block.Trans {
			if blockTx.Key() == key {
				return true
			}
		}
	}

	return false
}

// Balance folds every transaction in the chain for the specified address.
// Pending transactions are not part of the chain and never count.
func (db *Database) Balance(address string) float64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var balance float64
	for _, block := range db.blocks {
		for _, tx := range block.Trans {
			if tx.Sender == address {
				balance -= tx.Amount
			}
			if tx.Receiver == address {
				balance += tx.Amount
			}
		}
	}

	return balance
}

// Balances returns the balance of every address seen in the chain.
func (db *Database) Balances() map[string]float64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	balances := make(map[string]float64)
	for _, block := range db.blocks {
		for _, tx := range block.Trans {
			balances[tx.Sender] -= tx.Amount
			balances[tx.Receiver] += tx.Amount
		}
	}

	return balances
}
