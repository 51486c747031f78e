package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// DefaultMaxMessageSize is the largest command or response accepted when
// no size is configured.
const DefaultMaxMessageSize = 1 << 20

// ErrMessageTooLarge is returned when a peer sends more than the configured
// maximum message size.
var ErrMessageTooLarge = errors.New("message too large")

// =============================================================================

// Client performs single command/response exchanges with a node. Every
// exchange uses its own connection.
type Client struct {
	DialTimeout    time.Duration
	IOTimeout      time.Duration
	MaxMessageSize int64
}

// Send connects to the host, writes the command, half-closes the
// connection and returns everything the node writes back.
func (c Client) Send(ctx context.Context, host string, msg string) (string, error) {
	if c.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.DialTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return "", &TransportError{Op: "dial", Host: host, Err: err}
	}
	defer conn.Close()

	if c.IOTimeout > 0 {
		conn.SetDeadline(time.Now().Add(c.IOTimeout))
	}

	if _, err := io.WriteString(conn, msg); err != nil {
		return "", &TransportError{Op: "write", Host: host, Err: err}
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			return "", &TransportError{Op: "close-write", Host: host, Err: err}
		}
	}

	resp, err := ReadMessage(conn, c.maxSize())
	if err != nil {
		return "", &TransportError{Op: "read", Host: host, Err: err}
	}

	return string(resp), nil
}

// Notify sends the command and ignores the content of the response.
func (c Client) Notify(ctx context.Context, host string, msg string) error {
	_, err := c.Send(ctx, host, msg)
	return err
}

func (c Client) maxSize() int64 {
	if c.MaxMessageSize <= 0 {
		return DefaultMaxMessageSize
	}
	return c.MaxMessageSize
}

// =============================================================================

// readChunk is the size of a single read on a connection.
const readChunk = 32 * 1024

// ReadCommand reads a command from the connection. It returns as soon as
// the bytes received form a complete command, so clients that never
// half-close are answered right away. A partial command is read until the
// other side half-closes or the read deadline expires.
func ReadCommand(r io.Reader, maxSize int64) ([]byte, error) {
	var data []byte
	chunk := make([]byte, readChunk)

	for {
		n, err := r.Read(chunk)
		data = append(data, chunk[:n]...)

		if int64(len(data)) > maxSize {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrMessageTooLarge, maxSize)
		}

		switch {
		case err == nil:
			if n > 0 && Complete(data) {
				return data, nil
			}
		case errors.Is(err, io.EOF):
			return data, nil
		case errors.Is(err, os.ErrDeadlineExceeded) && len(data) > 0:
			return data, nil
		default:
			return nil, err
		}
	}
}

// ReadMessage reads a response from the connection until the node closes
// it. A read deadline that expires after some bytes have arrived ends the
// message.
func ReadMessage(r io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))

	switch {
	case err == nil:
	case errors.Is(err, os.ErrDeadlineExceeded) && len(data) > 0:
	default:
		return nil, err
	}

	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrMessageTooLarge, maxSize)
	}

	return data, nil
}
