// Package v1 contains the full set of handler functions and routes
// supported by the v1 command protocol and explorer api.
package v1

import (
	"net/http"

	"github.com/fluerion/node/app/services/node/handlers/v1/explorergrp"
	"github.com/fluerion/node/app/services/node/handlers/v1/ledgergrp"
	"github.com/fluerion/node/app/services/node/handlers/v1/peergrp"
	"github.com/fluerion/node/foundation/blockchain/state"
	"github.com/fluerion/node/foundation/events"
	"github.com/fluerion/node/foundation/nameservice"
	"github.com/fluerion/node/foundation/web"
	"github.com/fluerion/node/foundation/wire"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
	NS    *nameservice.NameService
}

// WireRoutes binds all the commands of the node protocol.
func WireRoutes(app *wire.App, cfg Config) {
	lgh := ledgergrp.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	pgh := peergrp.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	app.Handle(wire.CmdNewTransaction, lgh.SubmitTransaction)
	app.Handle(wire.CmdGetBlockToMine, lgh.BlockToMine)
	app.Handle(wire.CmdMinedBlock, lgh.SubmitMinedBlock)
	app.Handle(wire.CmdNewBlock, lgh.SubmitPeerBlock)
	app.Handle(wire.CmdGetBalance, lgh.Balance)
	app.Handle(wire.CmdAddPeer, pgh.AddPeer)
	app.Handle(wire.CmdGetPeers, pgh.Peers)
}

// ExplorerRoutes binds all the version 1 explorer routes.
func ExplorerRoutes(app *web.App, cfg Config) {
	egh := explorergrp.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
		NS:    cfg.NS,
	}

	app.Handle(http.MethodGet, version, "/events", egh.Events)
	app.Handle(http.MethodGet, version, "/genesis", egh.Genesis)
	app.Handle(http.MethodGet, version, "/blocks/list", egh.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/:number", egh.BlockByNumber)
	app.Handle(http.MethodGet, version, "/balances/list", egh.Balances)
	app.Handle(http.MethodGet, version, "/balances/list/:address", egh.Balances)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", egh.Mempool)
	app.Handle(http.MethodGet, version, "/peers/list", egh.Peers)
}
