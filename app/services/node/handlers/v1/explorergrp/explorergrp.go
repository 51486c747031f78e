// Package explorergrp maintains the group of handlers for the read only
// explorer api.
package explorergrp

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/fluerion/node/business/web/errs"
	"github.com/fluerion/node/foundation/blockchain/state"
	"github.com/fluerion/node/foundation/events"
	"github.com/fluerion/node/foundation/nameservice"
	"github.com/fluerion/node/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of explorer endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
	NS    *nameservice.NameService
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()

	info := genesisInfo{
		Date:       gen.Date.UTC().Format(time.RFC3339),
		Difficulty: gen.Difficulty,
		Hash:       h.State.RetrieveGenesisBlock().Hash.String(),
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// Blocks returns the chain starting with genesis.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	dbBlocks := h.State.RetrieveBlocks()

	blocks := make([]block, len(dbBlocks))
	for i, dbBlock := range dbBlocks {
		blocks[i] = toBlock(h.NS, i, dbBlock)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlockByNumber returns a single block where genesis is block 0.
func (h Handlers) BlockByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	number, err := strconv.Atoi(web.Param(r, "number"))
	if err != nil || number < 0 {
		return errs.BadRequest(fmt.Errorf("invalid block number %q", web.Param(r, "number")))
	}

	dbBlocks := h.State.RetrieveBlocks()
	if number >= len(dbBlocks) {
		return errs.NotFound(fmt.Errorf("block %d not found", number))
	}

	return web.Respond(ctx, w, toBlock(h.NS, number, dbBlocks[number]), http.StatusOK)
}

// Balances returns the current balances for all addresses or the
// specified address.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	var bals []balance
	switch address {
	case "":
		for addr, amount := range h.State.Balances() {
			bals = append(bals, balance{Address: addr, Balance: amount})
		}
		sort.Slice(bals, func(i, j int) bool { return bals[i].Address < bals[j].Address })

	default:
		bals = []balance{{Address: address, Balance: h.State.Balance(address)}}
	}

	resp := balances{
		LatestBlock: h.State.RetrieveLatestBlock().Hash.String(),
		Uncommitted: h.State.RetrieveMempoolLength(),
		Balances:    bals,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toTxs(h.NS, h.State.RetrieveMempool()), http.StatusOK)
}

// Peers returns the known peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveKnownHosts(), http.StatusOK)
}
