package domain

// NodeEndpoint is one candidate RPC node.
type NodeEndpoint struct {
	URL        string
	Name       string
	IsDefault  bool // shipped with the app, as opposed to user-added
	IsSelected bool
}

// ConnectionPhase is the node manager's observable connection phase.
type ConnectionPhase int

const (
	Disconnected ConnectionPhase = iota
	Connecting
	Connected
)

// NodeConnectionState is one emission of the connection state stream.
type NodeConnectionState struct {
	Phase ConnectionPhase
	// Endpoint is set when Phase is Connecting or Connected.
	Endpoint *NodeEndpoint
}
