// This program performs administrative tasks against the blocks a node
// keeps on disk. The node must not be running against the same folder.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/fluerion/node/app/tooling/admin/commands"
	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/genesis"
	"github.com/fluerion/node/foundation/blockchain/storage/disk"
	"github.com/fluerion/node/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args        conf.Args
		DBPath      string `conf:"default:zblock/blocks"`
		GenesisPath string
		Difficulty  uint `conf:"default:4"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "fluerion chain administration",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen := genesis.Default()
	gen.Difficulty = cfg.Difficulty
	if cfg.GenesisPath != "" {
		if gen, err = genesis.Load(cfg.GenesisPath); err != nil {
			return fmt.Errorf("loading genesis: %w", err)
		}
	}

	storage, err := disk.New(cfg.DBPath)
	if err != nil {
		return err
	}

	ev := func(v string, args ...any) {
		log.Debugw(fmt.Sprintf(v, args...))
	}

	db, err := database.New(gen, storage, ev)
	if err != nil {
		storage.Close()
		return err
	}
	defer db.Close()

	return processCommands(cfg.Args, db)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, db *database.Database) error {
	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(os.Stdout, db, args.Num(1)); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(os.Stdout, db, args.Num(1)); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	case "verify":
		if err := commands.Verify(os.Stdout, db); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}
	case "reset":
		if err := db.Reset(); err != nil {
			return fmt.Errorf("resetting chain: %w", err)
		}
		fmt.Println("chain reset to genesis")
	default:
		fmt.Println("usage: admin bals [address] | trans [address] | verify | reset")
	}

	return nil
}
