// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/fluerion/node/app/services/node/handlers/debug/checkgrp"
	v1 "github.com/fluerion/node/app/services/node/handlers/v1"
	"github.com/fluerion/node/business/web/mid"
	wiremid "github.com/fluerion/node/business/wire/mid"
	"github.com/fluerion/node/foundation/blockchain/state"
	"github.com/fluerion/node/foundation/events"
	"github.com/fluerion/node/foundation/nameservice"
	"github.com/fluerion/node/foundation/web"
	"github.com/fluerion/node/foundation/wire"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	State    *state.State
	Evts     *events.Events
	NS       *nameservice.NameService

	// CorsOrigins lists the origins allowed to call the explorer.
	CorsOrigins []string
}

// WireApp constructs the command service with all node commands defined.
func WireApp(cfg MuxConfig, appCfg wire.AppConfig) *wire.App {

	// Construct the wire.App which holds all commands as well as common Middleware.
	app := wire.NewApp(
		appCfg,
		wiremid.Logger(cfg.Log),
		wiremid.Errors(cfg.Log),
		wiremid.Panics(),
	)

	v1.WireRoutes(app, v1.Config{
		Log:   cfg.Log,
		State: cfg.State,
	})

	return app
}

// ExplorerMux constructs a http.Handler with all explorer routes defined.
func ExplorerMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Cors(cfg.CorsOrigins...),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors(cfg.CorsOrigins...))

	v1.ExplorerRoutes(app, v1.Config{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
		NS:    cfg.NS,
	})

	return app
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service.
func DebugMux(build string, log *zap.SugaredLogger, st *state.State) http.Handler {
	mux := DebugStandardLibraryMux()

	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		State: st,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}
