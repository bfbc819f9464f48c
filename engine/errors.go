package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionClosed resolves every call still outstanding when the
	// connection goes away. Retrying is the caller's decision.
	ErrConnectionClosed = errors.New("rpc: connection closed")

	// ErrUnsupportedCallbackReturn is raised when a forwarding callable with
	// a non-void declared return type is invoked. There is no way to await
	// the nested reply without deadlocking the message-processing path, so
	// such callables can be constructed but never successfully invoked.
	ErrUnsupportedCallbackReturn = errors.New("rpc: remote callbacks with a non-void return type are not supported")
)

// RemoteError carries an error raised by the peer: either its handler failed
// or it rejected the request before running a handler.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string { return e.Reason }

// FaultError is a protocol-level fault not attributable to any call; the two
// peers no longer agree on the state of the stream.
type FaultError struct {
	Reason string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("rpc: protocol fault: %s", e.Reason)
}
