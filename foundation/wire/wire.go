// Package wire provides the text command protocol spoken between nodes,
// miners and wallets. Every TCP connection carries exactly one command and
// one response.
package wire

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler is the signature used by all command handlers. The payload is
// the text following the command prefix with surrounding space removed.
type Handler func(ctx context.Context, payload string) (string, error)

// Middleware is a function designed to run some code before and/or after
// another Handler.
type Middleware func(Handler) Handler

// ctxKey represents the type of value for the context key.
type ctxKey int

// key is how request values are stored/retrieved.
const key ctxKey = 1

// Values represent state for each exchange.
type Values struct {
	TraceID string
	Now     time.Time
	Command string
	Remote  string
}

// GetValues returns the values from the context.
func GetValues(ctx context.Context) (*Values, error) {
	v, ok := ctx.Value(key).(*Values)
	if !ok {
		return nil, errors.New("wire value missing from context")
	}
	return v, nil
}

// SetValues stores the values in the context.
func SetValues(ctx context.Context, v *Values) context.Context {
	return context.WithValue(ctx, key, v)
}

// =============================================================================

// drainTimeout bounds the time spent discarding an oversized command.
const drainTimeout = time.Second

// AppConfig represents the connection settings for an App.
type AppConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
	ErrorLog       func(v string, args ...any)
}

type route struct {
	prefix  string
	handler Handler
}

// App is the entrypoint into the node's command service. It matches each
// command against the registered prefixes in the order they were added.
type App struct {
	cfg     AppConfig
	mw      []Middleware
	routes  []route
	unknown Handler

	wg       sync.WaitGroup
	mu       sync.Mutex
	listener net.Listener
	shut     bool
}

// NewApp creates an App value that handles a set of commands.
func NewApp(cfg AppConfig, mw ...Middleware) *App {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.ErrorLog == nil {
		cfg.ErrorLog = func(v string, args ...any) {}
	}

	unknown := func(ctx context.Context, payload string) (string, error) {
		return RespUnknownCommand, nil
	}

	return &App{
		cfg:     cfg,
		mw:      mw,
		unknown: wrapMiddleware(mw, unknown),
	}
}

// Handle sets a handler function for the specified command prefix.
func (a *App) Handle(prefix string, handler Handler, mw ...Middleware) {

	// First wrap handler specific middleware around this handler.
	handler = wrapMiddleware(mw, handler)

	// Add the application's general middleware to the handler chain.
	handler = wrapMiddleware(a.mw, handler)

	a.routes = append(a.routes, route{prefix: prefix, handler: handler})
}

// Serve accepts connections on the listener and handles each one in its
// own goroutine. It returns nil once Shutdown is called.
func (a *App) Serve(listener net.Listener) error {
	a.mu.Lock()
	if a.shut {
		a.mu.Unlock()
		listener.Close()
		return errors.New("app is shut down")
	}
	a.listener = listener
	a.mu.Unlock()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if a.isShutdown() {
				return nil
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				a.cfg.ErrorLog("wire: accept: %s", err)
				continue
			}
			return err
		}

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting connections and waits for the exchanges in
// flight to complete or for the context to be done.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.shut = true
	var err error
	if a.listener != nil {
		err = a.listener.Close()
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch finds the handler for the raw command and executes it. The
// response of a failing handler is the error text.
func (a *App) Dispatch(ctx context.Context, raw string) string {
	handler := a.unknown
	command := "UNKNOWN"
	payload := raw

	for _, r := range a.routes {
		if strings.HasPrefix(raw, r.prefix) {
			handler = r.handler
			command = strings.TrimSuffix(r.prefix, ":")
			payload = strings.TrimSpace(raw[len(r.prefix):])
			break
		}
	}

	v, err := GetValues(ctx)
	if err != nil {
		v = &Values{TraceID: uuid.NewString(), Now: time.Now().UTC()}
		ctx = SetValues(ctx, v)
	}
	v.Command = command

	resp, err := handler(ctx, payload)
	if err != nil {
		return RespError + err.Error()
	}

	return resp
}

// =============================================================================

// handleConn performs the single exchange of a connection.
func (a *App) handleConn(conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()

	if a.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(a.cfg.ReadTimeout))
	}

	raw, err := ReadCommand(conn, a.cfg.MaxMessageSize)
	if err != nil {
		a.cfg.ErrorLog("wire: read: remote[%s]: ERROR: %s", remote, err)
		if errors.Is(err, ErrMessageTooLarge) {

			// Unread input makes the close reset the connection before
			// the client sees the response.
			conn.SetReadDeadline(time.Now().Add(drainTimeout))
			io.Copy(io.Discard, conn)

			a.write(conn, RespError+err.Error())
		}
		return
	}

	v := Values{
		TraceID: uuid.NewString(),
		Now:     time.Now().UTC(),
		Remote:  remote,
	}
	ctx := SetValues(context.Background(), &v)

	a.write(conn, a.Dispatch(ctx, string(raw)))
}

// write sends the response and logs transport failures.
func (a *App) write(conn net.Conn, resp string) {
	if a.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(a.cfg.WriteTimeout))
	}

	if _, err := io.WriteString(conn, resp); err != nil {
		a.cfg.ErrorLog("wire: write: remote[%s]: ERROR: %s", conn.RemoteAddr(), err)
	}
}

// isShutdown reports if Shutdown has been called.
func (a *App) isShutdown() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.shut
}

// wrapMiddleware creates a new handler by wrapping middleware around a final
// handler. The middlewares' Handlers will be executed by requests in the order
// they are provided.
func wrapMiddleware(mw []Middleware, handler Handler) Handler {

	// Loop backwards through the middleware invoking each one. Replace the
	// handler with the new wrapped handler. Looping backwards ensures that the
	// first middleware of the slice is the first to be executed by requests.
	for i := len(mw) - 1; i >= 0; i-- {
		h := mw[i]
		if h != nil {
			handler = h(handler)
		}
	}

	return handler
}
