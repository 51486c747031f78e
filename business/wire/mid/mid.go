// Package mid contains the set of middleware functions for the node's
// command protocol.
package mid

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/fluerion/node/foundation/validate"
	"github.com/fluerion/node/foundation/wire"
	"go.uber.org/zap"
)

// ErrorInternal is the response text for failures the client can't act on.
const ErrorInternal = "internal"

// Logger writes information about the exchange to the logs.
func Logger(log *zap.SugaredLogger) wire.Middleware {
	m := func(handler wire.Handler) wire.Handler {
		h := func(ctx context.Context, payload string) (string, error) {
			v, err := wire.GetValues(ctx)
			if err != nil {
				return "", err
			}

			log.Infow("command started", "traceid", v.TraceID, "command", v.Command, "remoteaddr", v.Remote,
				"size", len(payload))

			resp, err := handler(ctx, payload)

			log.Infow("command completed", "traceid", v.TraceID, "command", v.Command, "remoteaddr", v.Remote,
				"response", abbreviate(resp), "since", time.Since(v.Now))

			return resp, err
		}

		return h
	}

	return m
}

// Errors turns the errors coming out of the call chain into the ERROR
// response. Decode and validation failures are reported to the client,
// anything else is logged and reported as internal.
func Errors(log *zap.SugaredLogger) wire.Middleware {
	m := func(handler wire.Handler) wire.Handler {
		h := func(ctx context.Context, payload string) (string, error) {
			resp, err := handler(ctx, payload)
			if err == nil {
				return resp, nil
			}

			traceID := "00000000-0000-0000-0000-000000000000"
			if v, verr := wire.GetValues(ctx); verr == nil {
				traceID = v.TraceID
			}

			log.Errorw("ERROR", "traceid", traceID, "ERROR", err)

			switch {
			case validate.IsFieldErrors(err):
				return wire.RespError + "invalid payload: " + validate.GetFieldErrors(err).Text(), nil

			case wire.IsDecodeError(err):
				return wire.RespError + err.Error(), nil

			default:
				return wire.RespError + ErrorInternal, nil
			}
		}

		return h
	}

	return m
}

// Panics recovers from panics and converts the panic to an error so it is
// handled in Errors.
func Panics() wire.Middleware {
	m := func(handler wire.Handler) wire.Handler {
		h := func(ctx context.Context, payload string) (resp string, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(trace))
				}
			}()

			return handler(ctx, payload)
		}

		return h
	}

	return m
}

// abbreviate keeps block sized responses out of the logs.
func abbreviate(resp string) string {
	const max = 64
	if len(resp) <= max {
		return resp
	}
	return resp[:max] + "..."
}
