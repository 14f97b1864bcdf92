package kafkaconn

import (
	stderr "errors"
)

// Sentinel errors returned by the connector. Callers match them with
// errors.Is; op-annotated wrappers preserve the chain.
var (
	// ErrConfig indicates a malformed or missing required option. Fatal at
	// startup, the connector does not open.
	ErrConfig = stderr.New("invalid connector configuration")

	// ErrConnection indicates that no broker from the bootstrap list was
	// reachable during Open.
	ErrConnection = stderr.New("broker unreachable")

	// ErrNotConnected indicates an operation was called before Open
	// succeeded. Programmer error, never retried.
	ErrNotConnected = stderr.New("connector is not connected")

	// ErrClosed indicates an operation was called after Close.
	ErrClosed = stderr.New("connector is closed")
)
