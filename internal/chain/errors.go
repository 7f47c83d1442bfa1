package chain

import "errors"

var (
	// ErrClosed means the client was shut down.
	ErrClosed = errors.New("client closed")
	// ErrNotConnected means no websocket connection is live.
	ErrNotConnected = errors.New("not connected")
	// ErrSubmission wraps failures to get an extrinsic accepted by the
	// node.
	ErrSubmission = errors.New("extrinsic submission failed")
	// ErrFetch wraps failures to read chain state.
	ErrFetch = errors.New("chain state fetch failed")
)
