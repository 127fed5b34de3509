package realtime

import (
	"errors"
	"fmt"
)

// Failure taxonomy for router operations. Every handler returns one of
// these explicitly instead of panicking; the dispatch loop maps them to an
// error frame for the originating connection and nothing else. None of
// them is fatal to the connection, let alone the process.
var (
	// ErrUnauthenticated: the event requires a bound user identity.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrAlreadyAuthenticated: connect on an authenticated connection.
	// A client must open a new connection to switch identity.
	ErrAlreadyAuthenticated = errors.New("already authenticated")

	// ErrInvalidCredential: the connect token is missing or failed
	// verification. The transport is denied.
	ErrInvalidCredential = errors.New("invalid credential")
)

// ValidationError rejects a malformed or impermissible event. The
// connection stays open.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// PersistenceError wraps a durable-store failure. The operation is
// aborted (no cache write, no fan-out) and the caller is notified.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence failure: %v", e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
