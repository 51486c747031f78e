// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"sync"

	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/genesis"
	"github.com/fluerion/node/foundation/blockchain/mempool"
	"github.com/fluerion/node/foundation/blockchain/peer"
	"github.com/fluerion/node/foundation/wire"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and transaction sharing.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalCancelMining()
	SignalShareTx(tx database.Tx)
	SignalShareBlock(block database.Block)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host       string
	Genesis    genesis.Genesis
	Storage    database.Storage
	KnownPeers *peer.PeerSet
	Client     wire.Client
	EvHandler  EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	host      string
	evHandler EventHandler

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	db         *database.Database
	client     wire.Client

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	// Access the storage for the blockchain. Any stored blocks are
	// replayed and validated on top of the genesis block.
	db, err := database.New(cfg.Genesis, cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		host:      cfg.Host,
		evHandler: ev,

		knownPeers: knownPeers,
		genesis:    cfg.Genesis,
		mempool:    mempool.New(),
		db:         db,
		client:     cfg.Client,

		// The worker.Run call will replace this with a worker that
		// performs the background operations.
		Worker: nopWorker{},
	}

	ev("state: New: genesis[%s]: blocks[%d]: difficulty[%d]", db.Genesis().Hash.Short(), db.Len(), cfg.Genesis.Difficulty)

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database file is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	return nil
}

// Truncate resets the chain both on disk and in memory back to
// the genesis block.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mempool.Truncate()

	return s.db.Reset()
}

// IsValid walks the chain and checks every block against the consensus rules.
func (s *State) IsValid() bool {
	return s.db.IsValid()
}

// Balance returns the balance of the address from the recorded blocks.
// Pending transactions are not counted.
func (s *State) Balance(address string) float64 {
	return s.db.Balance(address)
}

// Balances returns the balance of every address from the recorded blocks.
func (s *State) Balances() map[string]float64 {
	return s.db.Balances()
}

// =============================================================================

// nopWorker is used until a real worker registers itself.
type nopWorker struct{}

func (nopWorker) Shutdown()                             {}
func (nopWorker) Sync()                                 {}
func (nopWorker) SignalStartMining()                    {}
func (nopWorker) SignalCancelMining()                   {}
func (nopWorker) SignalShareTx(tx database.Tx)          {}
func (nopWorker) SignalShareBlock(block database.Block) {}
