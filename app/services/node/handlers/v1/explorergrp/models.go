package explorergrp

import (
	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/hash"
	"github.com/fluerion/node/foundation/blockchain/signature"
	"github.com/fluerion/node/foundation/nameservice"
)

type genesisInfo struct {
	Date       string `json:"date"`
	Difficulty uint   `json:"difficulty"`
	Hash       string `json:"hash"`
}

type tx struct {
	Sender       string  `json:"sender"`
	SenderName   string  `json:"sender_name"`
	Receiver     string  `json:"receiver"`
	ReceiverName string  `json:"receiver_name"`
	Amount       float64 `json:"amount"`
	TimeStamp    uint64  `json:"timestamp"`
	Hash         string  `json:"hash"`
	Signature    string  `json:"signature,omitempty"`
	Signer       string  `json:"signer,omitempty"`
}

type block struct {
	Number        int    `json:"number"`
	TimeStamp     uint64 `json:"timestamp"`
	PrevBlockHash string `json:"prev_block_hash"`
	Hash          string `json:"hash"`
	Nonce         uint64 `json:"nonce"`
	Transactions  []tx   `json:"transactions"`
}

type balance struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Balances    []balance `json:"balances"`
}

// =============================================================================

func toTx(ns *nameservice.NameService, dbTx database.Tx) tx {
	t := tx{
		Sender:       dbTx.Sender,
		SenderName:   ns.Lookup(dbTx.Sender),
		Receiver:     dbTx.Receiver,
		ReceiverName: ns.Lookup(dbTx.Receiver),
		Amount:       dbTx.Amount,
		TimeStamp:    dbTx.TimeStamp,
		Hash:         dbTx.CalculateHash().String(),
	}

	if dbTx.IsSigned() {
		t.Signature = *dbTx.Signature

		// The wallet signs the transaction before the signature is attached.
		unsigned := dbTx
		unsigned.Signature = nil
		if signer, err := signature.FromAddress(unsigned, t.Signature); err == nil {
			t.Signer = signer
		}
	}

	return t
}

func toTxs(ns *nameservice.NameService, dbTxs []database.Tx) []tx {
	trans := make([]tx, len(dbTxs))
	for i, dbTx := range dbTxs {
		trans[i] = toTx(ns, dbTx)
	}
	return trans
}

func toBlock(ns *nameservice.NameService, number int, dbBlock database.Block) block {
	return block{
		Number:        number,
		TimeStamp:     dbBlock.TimeStamp,
		PrevBlockHash: displayHash(dbBlock.PrevBlockHash),
		Hash:          dbBlock.Hash.String(),
		Nonce:         dbBlock.Nonce,
		Transactions:  toTxs(ns, dbBlock.Trans),
	}
}

func displayHash(h hash.Hash256) string {
	if h.IsZero() {
		return ""
	}
	return h.String()
}
