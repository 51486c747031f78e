// Package peergrp maintains the group of command handlers for the peer
// directory.
package peergrp

import (
	"context"
	"errors"

	"github.com/fluerion/node/foundation/blockchain/peer"
	"github.com/fluerion/node/foundation/blockchain/state"
	"github.com/fluerion/node/foundation/wire"
	"go.uber.org/zap"
)

// Handlers manages the set of peer commands.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// AddPeer adds the node that introduced itself to the known peers.
func (h Handlers) AddPeer(ctx context.Context, payload string) (string, error) {
	v, err := wire.GetValues(ctx)
	if err != nil {
		return "", err
	}

	if payload == "" {
		return "", &wire.DecodeError{Command: wire.CmdAddPeer, Err: errors.New("missing address")}
	}

	// The reply does not depend on the outcome. Known hosts and this node's
	// own address are ignored, and the caller keeps no state on the reply.
	if !h.State.AddKnownPeer(peer.New(payload)) {
		h.Log.Debugw("add peer", "traceid", v.TraceID, "host", payload, "status", "self or already known, ignored")
		return wire.PeerAdded(payload), nil
	}

	h.Log.Infow("add peer", "traceid", v.TraceID, "host", payload)

	return wire.PeerAdded(payload), nil
}

// Peers returns the list of known peers.
func (h Handlers) Peers(ctx context.Context, payload string) (string, error) {
	return wire.FormatPeerList(h.State.RetrieveKnownHosts()), nil
}
