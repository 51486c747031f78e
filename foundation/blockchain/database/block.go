package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fluerion/node/foundation/blockchain/hash"
)

// Set of errors returned when a block fails the consensus rules.
var (
	ErrStaleBlock  = errors.New("previous hash does not match the latest block")
	ErrInvalidHash = errors.New("block hash does not match its contents")
	ErrProofFailed = errors.New("block hash does not satisfy the difficulty")
	ErrEmptyBlock  = errors.New("block has no transactions")
)

// =============================================================================

// Block represents a group of transactions batched together and sealed
// with a proof of work.
type Block struct {
	TimeStamp     uint64       `json:"timestamp"`
	PrevBlockHash hash.Hash256 `json:"prev_block_hash"`
	Hash          hash.Hash256 `json:"hash"`
	Trans         []Tx         `json:"transactions" validate:"dive"`
	Nonce         uint64       `json:"nonce"`
}

// NewGenesisBlock constructs the first block of the chain. Nodes that share
// the same genesis timestamp share the same genesis block.
func NewGenesisBlock(timeStamp uint64) Block {
	b := Block{
		TimeStamp:     timeStamp,
		PrevBlockHash: hash.Zero,
		Trans:         []Tx{},
	}
	b.Hash = b.CalculateHash()

	return b
}

// NewTemplate constructs an unsolved block on top of the previous block. The
// nonce is zero and the hash ignores the nonce.
func NewTemplate(prevBlock Block, trans []Tx) Block {
	cpy := make([]Tx, len(trans))
	copy(cpy, trans)

	b := Block{
		TimeStamp:     uint64(time.Now().UTC().Unix()),
		PrevBlockHash: prevBlock.Hash,
		Trans:         cpy,
	}
	b.Hash = b.CalculateHash()

	return b
}

// CalculateHash returns the hash of the block without the nonce.
func (b Block) CalculateHash() hash.Hash256 {
	return hash.Calculate(strconv.FormatUint(b.TimeStamp, 10), b.PrevBlockHash, joinTxs(b.Trans))
}

// CalculateHashWithNonce returns the hash of the block with the specified
// nonce appended to the payload.
func (b Block) CalculateHashWithNonce(nonce uint64) hash.Hash256 {
	payload := joinTxs(b.Trans) + strconv.FormatUint(nonce, 10)
	return hash.Calculate(strconv.FormatUint(b.TimeStamp, 10), b.PrevBlockHash, payload)
}

// IsGenesis reports if the block has no parent.
func (b Block) IsGenesis() bool {
	return b.PrevBlockHash.IsZero()
}

// ValidateBlock takes a block and validates it to be included into the
// blockchain on top of the previous block.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%s]: check: parent hash does match parent block", b.Hash.Short())

	if b.PrevBlockHash != previousBlock.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrStaleBlock, b.PrevBlockHash.Short(), previousBlock.Hash.Short())
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block has transactions", b.Hash.Short())

	if len(b.Trans) == 0 {
		return ErrEmptyBlock
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block hash recomputes", b.Hash.Short())

	if exp := b.CalculateHashWithNonce(b.Nonce); b.Hash != exp {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidHash, b.Hash.Short(), exp.Short())
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block hash has been solved", b.Hash.Short())

	if !ValidProof(b.Hash, difficulty) {
		return fmt.Errorf("%w: %s, difficulty %d", ErrProofFailed, hash.ToHex(b.Hash), difficulty)
	}

	return nil
}

// ValidProof checks the hash to make sure it complies with the POW rules.
// The hex form of the hash needs to start with a difficulty number of 0's.
func ValidProof(h hash.Hash256, difficulty uint) bool {
	return hash.HasZeroPrefix(h, difficulty)
}

// =============================================================================

// POW performs the work to find a nonce that solves the cryptographic POW
// puzzle for the specified block template. The search starts at nonce zero
// and only stops when a solution is found or the context is cancelled.
func POW(ctx context.Context, block Block, difficulty uint, ev func(v string, args ...any)) (Block, error) {
	ev("database: POW: MINING: started: prevBlk[%s]: numTrans[%d]", block.PrevBlockHash.Short(), len(block.Trans))
	defer ev("database: POW: MINING: completed")

	for _, tx := range block.Trans {
		ev("database: POW: MINING: tx[%s]", tx)
	}

	var attempts uint64
	for nonce := uint64(0); ; nonce++ {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: POW: MINING: attempts[%d]", attempts)
		}

		// Check for cancellation every so often, a ctx.Err call
		// takes a lock.
		if attempts%1_000 == 0 && ctx.Err() != nil {
			ev("database: POW: MINING: CANCELLED")
			return Block{}, ctx.Err()
		}

		h := block.CalculateHashWithNonce(nonce)
		if !ValidProof(h, difficulty) {
			continue
		}

		if ctx.Err() != nil {
			ev("database: POW: MINING: CANCELLED")
			return Block{}, ctx.Err()
		}

		block.Nonce = nonce
		block.Hash = h

		ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", block.PrevBlockHash.Short(), h.Short(), attempts)

		return block, nil
	}
}
