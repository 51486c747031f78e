package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/fluerion/node/app/services/node/handlers"
	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/genesis"
	"github.com/fluerion/node/foundation/blockchain/peer"
	"github.com/fluerion/node/foundation/blockchain/state"
	"github.com/fluerion/node/foundation/blockchain/storage/disk"
	"github.com/fluerion/node/foundation/blockchain/storage/memory"
	"github.com/fluerion/node/foundation/blockchain/worker"
	"github.com/fluerion/node/foundation/events"
	"github.com/fluerion/node/foundation/logger"
	"github.com/fluerion/node/foundation/nameservice"
	"github.com/fluerion/node/foundation/wire"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
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

	// =========================================================================
	// Configuration

	// The first positional argument is the address the node listens on for
	// commands, the optional second one is the bootstrap node.
	cfg := struct {
		conf.Version
		Args conf.Args
		Web  struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			ExplorerHost    string        `conf:"default:0.0.0.0:8080"`
			CorsOrigins     []string      `conf:"default:*"`
		}
		Wire struct {
			DialTimeout    time.Duration `conf:"default:5s"`
			ReadTimeout    time.Duration `conf:"default:5s"`
			WriteTimeout   time.Duration `conf:"default:5s"`
			MaxMessageSize int64         `conf:"default:1048576"`
		}
		State struct {
			Difficulty         uint          `conf:"default:4"`
			LocalMining        bool          `conf:"default:false"`
			DBPath             string        `conf:"help:folder for the blocks, memory only when empty"`
			GenesisPath        string        `conf:"help:genesis file, built in genesis when empty"`
			KnownPeers         []string      `conf:"help:peers to announce to at startup"`
			PeerUpdateInterval time.Duration `conf:"default:1m"`
		}
		NameService struct {
			Folder string `conf:"help:folder of wallet keys used to name addresses"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "fluerion ledger node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	host := cfg.Args.Num(0)
	if host == "" {
		return errors.New("usage: node <listen host:port> [bootstrap host:port]")
	}
	bootstrap := cfg.Args.Num(1)

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build, "host", host, "bootstrap", bootstrap)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for wallet addresses
	// shown by the explorer. The names come from the key file names.
	var ns *nameservice.NameService
	if cfg.NameService.Folder != "" {
		if ns, err = nameservice.New(cfg.NameService.Folder); err != nil {
			return fmt.Errorf("unable to load name service: %w", err)
		}

		for address, name := range ns.Copy() {
			log.Infow("startup", "status", "nameservice", "name", name, "address", address)
		}
	}

	// =========================================================================
	// Blockchain Support

	gen := genesis.Default()
	gen.Difficulty = cfg.State.Difficulty
	if cfg.State.GenesisPath != "" {
		if gen, err = genesis.Load(cfg.State.GenesisPath); err != nil {
			return fmt.Errorf("unable to load genesis: %w", err)
		}
	}

	// Blocks are kept in memory unless a folder is configured.
	var storage database.Storage = memory.New()
	if cfg.State.DBPath != "" {
		if storage, err = disk.New(cfg.State.DBPath); err != nil {
			return fmt.Errorf("unable to open storage: %w", err)
		}
	}

	// A peer set is a collection of known nodes in the network so transactions
	// and blocks can be shared.
	peerSet := peer.NewPeerSet()
	for _, kp := range cfg.State.KnownPeers {
		if kp = strings.TrimSpace(kp); kp != "" {
			peerSet.Add(peer.New(kp))
		}
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Viewer events are also sent to any
	// websocket client that is connected through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}
	expvar.Publish("events_dropped", expvar.Func(func() any { return evts.Dropped() }))

	client := wire.Client{
		DialTimeout:    cfg.Wire.DialTimeout,
		IOTimeout:      cfg.Wire.ReadTimeout,
		MaxMessageSize: cfg.Wire.MaxMessageSize,
	}

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	state, err := state.New(state.Config{
		Host:       host,
		Genesis:    gen,
		Storage:    storage,
		KnownPeers: peerSet,
		Client:     client,
		EvHandler:  ev,
	})
	if err != nil {
		return err
	}
	defer state.Shutdown()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 2)

	muxCfg := handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    state,
		Evts:     evts,
		NS:       ns,

		CorsOrigins: cfg.Web.CorsOrigins,
	}

	// =========================================================================
	// Start Command Service

	log.Infow("startup", "status", "initializing command service")

	listener, err := net.Listen("tcp", host)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", host, err)
	}

	wireApp := handlers.WireApp(muxCfg, wire.AppConfig{
		ReadTimeout:    cfg.Wire.ReadTimeout,
		WriteTimeout:   cfg.Wire.WriteTimeout,
		MaxMessageSize: cfg.Wire.MaxMessageSize,
		ErrorLog: func(v string, args ...any) {
			log.Errorw(fmt.Sprintf(v, args...))
		},
	})

	go func() {
		log.Infow("startup", "status", "command service started", "host", host)
		serverErrors <- wireApp.Serve(listener)
	}()

	// The worker package implements the different workflows such as mining,
	// transaction and block sharing, and peer updates. The worker will
	// register itself with the state. It is started once the node can
	// answer its peers.
	worker.Run(state, worker.Config{
		LocalMining:        cfg.State.LocalMining,
		Bootstrap:          bootstrap,
		PeerUpdateInterval: cfg.State.PeerUpdateInterval,
		EvHandler:          ev,
	})

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, state)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start Explorer Service

	log.Infow("startup", "status", "initializing V1 explorer API support")

	// Construct a server to service the requests against the mux.
	explorer := http.Server{
		Addr:         cfg.Web.ExplorerHost,
		Handler:      handlers.ExplorerMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "explorer api router started", "host", explorer.Addr)
		serverErrors <- explorer.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listeners to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown command service started")
		if err := wireApp.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not stop command service gracefully: %w", err)
		}

		log.Infow("shutdown", "status", "shutdown explorer API started")
		if err := explorer.Shutdown(ctx); err != nil {
			explorer.Close()
			return fmt.Errorf("could not stop explorer service gracefully: %w", err)
		}
	}

	return nil
}
