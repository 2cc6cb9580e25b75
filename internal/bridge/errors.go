package bridge

import "errors"

// Domain errors for the bridge package.
//
// Every failure returned by a Conn wraps one of these:
//
//	if errors.Is(err, bridge.ErrCommand) {
//	    // the bridge refused or never acknowledged a command
//	}
var (
	// ErrConnect is returned when a bridge connection cannot be acquired.
	ErrConnect = errors.New("bridge: connect failed")

	// ErrRequest is returned when a request (such as device enumeration) fails.
	ErrRequest = errors.New("bridge: request failed")

	// ErrCommand is returned when a device command fails or is not acknowledged.
	ErrCommand = errors.New("bridge: command failed")

	// ErrClosed is returned when a closed connection is used.
	ErrClosed = errors.New("bridge: connection closed")
)
