// Package ledgergrp maintains the group of command handlers for wallets,
// miners and peers working with the ledger.
package ledgergrp

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/state"
	"github.com/fluerion/node/foundation/validate"
	"github.com/fluerion/node/foundation/wire"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger commands.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// SubmitTransaction adds a new transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, payload string) (string, error) {
	v, err := wire.GetValues(ctx)
	if err != nil {
		return "", err
	}

	var tx database.Tx
	if err := wire.Decode(wire.CmdNewTransaction, payload, &tx); err != nil {
		return "", err
	}

	added, err := h.State.SubmitTransaction(tx)
	if err != nil {
		return "", err
	}

	// A transaction already pending or recorded is acknowledged like a new
	// one. Peers gossip transactions back to the node that shared them.
	if !added {
		h.Log.Warnw("add tran", "traceid", v.TraceID, "tx", tx, "hash", tx.CalculateHash(), "status", "already known, ignored")
		return wire.RespTransactionAdded, nil
	}

	h.Log.Infow("add tran", "traceid", v.TraceID, "tx", tx, "hash", tx.CalculateHash())

	return wire.RespTransactionAdded, nil
}

// BlockToMine returns an unsolved block holding the pending transactions.
func (h Handlers) BlockToMine(ctx context.Context, payload string) (string, error) {
	block, ok := h.State.BlockToMine()
	if !ok {
		return wire.RespNoBlockAvailable, nil
	}

	data, err := json.Marshal(block)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// SubmitMinedBlock takes a block solved by a miner and adds it to the
// chain when it passes validation.
func (h Handlers) SubmitMinedBlock(ctx context.Context, payload string) (string, error) {
	block, err := decodeBlock(wire.CmdMinedBlock, payload)
	if err != nil {
		return "", err
	}

	if err := h.State.AddMinedBlock(block); err != nil {
		if re := state.GetRejectError(err); re != nil {
			return wire.RespMinedRejected + re.Reason(), nil
		}
		return "", err
	}

	return wire.RespMinedBlockAdded, nil
}

// SubmitPeerBlock takes a block shared by a peer and adds it to the
// chain when it passes validation.
func (h Handlers) SubmitPeerBlock(ctx context.Context, payload string) (string, error) {
	block, err := decodeBlock(wire.CmdNewBlock, payload)
	if err != nil {
		return "", err
	}

	if err := h.State.ProcessPeerBlock(block); err != nil {
		if re := state.GetRejectError(err); re != nil {
			return wire.RespBlockRejected + re.Reason(), nil
		}
		return "", err
	}

	return wire.RespBlockAccepted, nil
}

// Balance returns the balance of the address from the recorded blocks.
func (h Handlers) Balance(ctx context.Context, payload string) (string, error) {
	if payload == "" {
		return "", &wire.DecodeError{Command: wire.CmdGetBalance, Err: errors.New("missing address")}
	}

	return strconv.FormatFloat(h.State.Balance(payload), 'f', -1, 64), nil
}

// =============================================================================

// decodeBlock unmarshals and validates a block payload.
func decodeBlock(cmd string, payload string) (database.Block, error) {
	var block database.Block
	if err := wire.Decode(cmd, payload, &block); err != nil {
		return database.Block{}, err
	}

	if err := validate.Check(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}
