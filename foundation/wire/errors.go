package wire

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError is returned when a connection could not be opened, read
// from or written to.
type TransportError struct {
	Op   string
	Host string
	Err  error
}

// Error implements the error interface.
func (te *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", te.Op, te.Host, te.Err)
}

// Unwrap provides access to the wrapped error.
func (te *TransportError) Unwrap() error {
	return te.Err
}

// IsTransportError checks if an error of type TransportError exists.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// =============================================================================

// DecodeError is returned when the payload of a command or a response
// could not be understood.
type DecodeError struct {
	Command string
	Err     error
}

// Error implements the error interface.
func (de *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %s", strings.TrimSuffix(de.Command, ":"), de.Err)
}

// Unwrap provides access to the wrapped error.
func (de *DecodeError) Unwrap() error {
	return de.Err
}

// IsDecodeError checks if an error of type DecodeError exists.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
