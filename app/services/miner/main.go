package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fluerion/node/foundation/blockchain/genesis"
	"github.com/fluerion/node/foundation/blockchain/miner"
	"github.com/fluerion/node/foundation/logger"
	"github.com/fluerion/node/foundation/wire"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

var (
	nodeHost   string
	workers    int
	difficulty uint
	minWait    time.Duration
	maxWait    time.Duration
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:     "miner",
	Short:   "Mine blocks for a fluerion node",
	Version: build,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVarP(&nodeHost, "node", "n", "127.0.0.1:9000", "Command address of the node to mine for.")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Number of goroutines searching for a nonce.")
	rootCmd.Flags().UintVarP(&difficulty, "difficulty", "d", genesis.DefaultDifficulty, "Leading hex zeros the node requires.")
	rootCmd.Flags().DurationVar(&minWait, "min-wait", time.Second, "Initial wait when no block is available.")
	rootCmd.Flags().DurationVar(&maxWait, "max-wait", 30*time.Second, "Longest wait when no block is available.")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Time allowed for each exchange with the node.")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {

	// Construct the application logger.
	log, err := logger.New("MINER")
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Infow("starting service", "version", build, "node", nodeHost)
	defer log.Infow("shutdown complete")

	// Cancel the search and the poll loop on an interrupt or terminate signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := miner.New(miner.Config{
		Node:       nodeHost,
		Difficulty: difficulty,
		Workers:    workers,
		MinWait:    minWait,
		MaxWait:    maxWait,
		Client: wire.Client{
			DialTimeout: timeout,
			IOTimeout:   timeout,
		},
		EvHandler: evHandler(log),
	})

	if err := m.Run(ctx); err != nil {
		log.Errorw("shutdown", "ERROR", err)
		return err
	}

	return nil
}

// evHandler routes the miner's events into the logger.
func evHandler(log *zap.SugaredLogger) func(v string, args ...any) {
	return func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...), "traceid", "00000000-0000-0000-0000-000000000000")
	}
}
