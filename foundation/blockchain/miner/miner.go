package miner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/genesis"
	"github.com/fluerion/node/foundation/validate"
	"github.com/fluerion/node/foundation/wire"
	"github.com/jpillora/backoff"
)

// ErrRejected is returned when the node refuses a solved block.
var ErrRejected = errors.New("block rejected by node")

// Config represents the settings for a miner.
type Config struct {
	Node       string
	Difficulty uint
	Workers    int
	MinWait    time.Duration
	MaxWait    time.Duration
	Client     wire.Client
	EvHandler  func(v string, args ...any)
}

// Miner polls a single node for blocks to mine.
type Miner struct {
	cfg       Config
	evHandler func(v string, args ...any)
}

// New constructs a miner, filling in defaults for the unset settings.
func New(cfg Config) *Miner {
	if cfg.Difficulty == 0 {
		cfg.Difficulty = genesis.DefaultDifficulty
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MinWait <= 0 {
		cfg.MinWait = time.Second
	}
	if cfg.MaxWait < cfg.MinWait {
		cfg.MaxWait = 30 * cfg.MinWait
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	return &Miner{
		cfg:       cfg,
		evHandler: ev,
	}
}

// FetchBlock asks the node for a block to mine. It reports false when the
// node has no pending transactions.
func (m *Miner) FetchBlock(ctx context.Context) (database.Block, bool, error) {
	resp, err := m.cfg.Client.Send(ctx, m.cfg.Node, wire.CmdGetBlockToMine)
	if err != nil {
		return database.Block{}, false, err
	}

	if resp == wire.RespNoBlockAvailable {
		return database.Block{}, false, nil
	}

	var block database.Block
	if err := wire.Decode(wire.CmdGetBlockToMine, resp, &block); err != nil {
		return database.Block{}, false, err
	}

	if err := validate.Check(block); err != nil {
		return database.Block{}, false, &wire.DecodeError{Command: wire.CmdGetBlockToMine, Err: err}
	}

	return block, true, nil
}

// SubmitBlock hands the solved block to the node.
func (m *Miner) SubmitBlock(ctx context.Context, block database.Block) error {
	msg, err := wire.Encode(wire.CmdMinedBlock, block)
	if err != nil {
		return err
	}

	resp, err := m.cfg.Client.Send(ctx, m.cfg.Node, msg)
	if err != nil {
		return err
	}

	switch {
	case resp == wire.RespMinedBlockAdded:
		return nil

	case strings.HasPrefix(resp, wire.RespMinedRejected):
		return fmt.Errorf("%w: %s", ErrRejected, strings.TrimPrefix(resp, wire.RespMinedRejected))

	default:
		return &wire.DecodeError{Command: wire.CmdMinedBlock, Err: fmt.Errorf("unexpected response %q", resp)}
	}
}

// MineOnce performs a single fetch, search and submit cycle. It reports
// false when there was nothing to mine.
func (m *Miner) MineOnce(ctx context.Context) (bool, error) {
	template, ok, err := m.FetchBlock(ctx)
	if err != nil || !ok {
		return false, err
	}

	m.evHandler("miner: MineOnce: template: prevBlk[%s]: numTrans[%d]", template.PrevBlockHash.Short(), len(template.Trans))

	t := time.Now()
	block, err := Search(ctx, template, m.cfg.Difficulty, m.cfg.Workers, m.evHandler)
	if err != nil {
		return false, err
	}

	m.evHandler("miner: MineOnce: mining duration[%v]", time.Since(t))

	if err := m.SubmitBlock(ctx, block); err != nil {
		return false, err
	}

	m.evHandler("miner: MineOnce: ACCEPTED: blk[%s]", block.Hash.Short())

	return true, nil
}

// Run polls the node until the context is cancelled. The wait between
// polls grows while the node has nothing to mine or can't be reached.
func (m *Miner) Run(ctx context.Context) error {
	m.evHandler("miner: Run: started: node[%s]: workers[%d]: difficulty[%d]", m.cfg.Node, m.cfg.Workers, m.cfg.Difficulty)
	defer m.evHandler("miner: Run: completed")

	bo := backoff.Backoff{
		Min:    m.cfg.MinWait,
		Max:    m.cfg.MaxWait,
		Factor: 2,
		Jitter: true,
	}

	for {
		mined, err := m.MineOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		switch {
		case err == nil && mined:
			bo.Reset()
			continue

		case errors.Is(err, ErrRejected):
			m.evHandler("miner: Run: REJECTED: %s", err)
			bo.Reset()
			continue

		case wire.IsDecodeError(err):
			m.evHandler("miner: Run: no usable block: %s", err)

		case err != nil:
			m.evHandler("miner: Run: ERROR: %s", err)

		default:
			m.evHandler("miner: Run: no block available")
		}

		d := bo.Duration()
		m.evHandler("miner: Run: waiting[%v]", d)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d):
		}
	}
}
