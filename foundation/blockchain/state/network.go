package state

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/peer"
	"github.com/fluerion/node/foundation/wire"
)

// NetSendTxToPeers shares the transaction with the known peers. A peer that
// can't be reached doesn't stop the others from being sent the transaction.
func (s *State) NetSendTxToPeers(ctx context.Context, tx database.Tx) error {
	s.evHandler("state: NetSendTxToPeers: started")
	defer s.evHandler("state: NetSendTxToPeers: completed")

	msg, err := wire.Encode(wire.CmdNewTransaction, tx)
	if err != nil {
		return err
	}

	return s.broadcast(ctx, "NetSendTxToPeers", msg)
}

// NetSendBlockToPeers takes the new block and sends it to all known peers.
func (s *State) NetSendBlockToPeers(ctx context.Context, block database.Block) error {
	s.evHandler("state: NetSendBlockToPeers: started")
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	msg, err := wire.Encode(wire.CmdNewBlock, block)
	if err != nil {
		return err
	}

	return s.broadcast(ctx, "NetSendBlockToPeers", msg)
}

// NetRequestPeers asks the node for the list of peers it knows.
func (s *State) NetRequestPeers(ctx context.Context, host string) ([]string, error) {
	s.evHandler("state: NetRequestPeers: started: %s", host)
	defer s.evHandler("state: NetRequestPeers: completed: %s", host)

	resp, err := s.client.Send(ctx, host, wire.CmdGetPeers)
	if err != nil {
		return nil, err
	}

	hosts, err := wire.ParsePeerList(resp)
	if err != nil {
		return nil, err
	}

	s.evHandler("state: NetRequestPeers: peer-node[%s]: peer-list[%s]", host, strings.Join(hosts, ","))

	return hosts, nil
}

// NetRequestBalance asks the node for the balance of the address.
func (s *State) NetRequestBalance(ctx context.Context, host string, address string) (float64, error) {
	resp, err := s.client.Send(ctx, host, wire.CmdGetBalance+address)
	if err != nil {
		return 0, err
	}

	balance, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, &wire.DecodeError{Command: wire.CmdGetBalance, Err: err}
	}

	return balance, nil
}

// AddPeer adds the host to the known peers and lets the host know about
// this node. The host stays known when the notification fails.
func (s *State) AddPeer(ctx context.Context, host string) (bool, error) {
	pr := peer.New(host)
	if !s.AddKnownPeer(pr) {
		return false, nil
	}

	s.evHandler("state: AddPeer: adding peer-node %s", pr)

	if err := s.client.Notify(ctx, host, wire.CmdAddPeer+s.host); err != nil {
		s.evHandler("state: AddPeer: notify: %s: WARNING: %s", host, err)
		return true, err
	}

	return true, nil
}

// DiscoverPeers introduces this node to the bootstrap node, then adds the
// bootstrap node and every peer it knows of.
func (s *State) DiscoverPeers(ctx context.Context, bootstrap string) error {
	s.evHandler("state: DiscoverPeers: started: %s", bootstrap)
	defer s.evHandler("state: DiscoverPeers: completed: %s", bootstrap)

	var errs []error
	if added, err := s.AddPeer(ctx, bootstrap); err != nil {
		errs = append(errs, err)
	} else if !added && bootstrap != s.host {
		if err := s.client.Notify(ctx, bootstrap, wire.CmdAddPeer+s.host); err != nil {
			errs = append(errs, err)
		}
	}

	hosts, err := s.NetRequestPeers(ctx, bootstrap)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}

	for _, host := range hosts {
		if host == s.host {
			continue
		}

		if _, err := s.AddPeer(ctx, host); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// =============================================================================

// broadcast sends the message to every known peer in turn and collects
// the failures.
func (s *State) broadcast(ctx context.Context, op string, msg string) error {
	var errs []error
	for _, pr := range s.RetrieveKnownPeers() {
		if _, err := s.client.Send(ctx, pr.Host, msg); err != nil {
			s.evHandler("state: %s: WARNING: %s", op, err)
			errs = append(errs, err)
			continue
		}

		s.evHandler("state: %s: sent to peer[%s]", op, pr)
	}

	return errors.Join(errs...)
}
