package chain

import (
	"context"

	"sora-wallet-engine/internal/node"
)

// NodeDialer adapts Dial to the node manager's Dialer interface.
type NodeDialer struct {
	// Config applies to every dialed connection; nil uses defaults.
	Config *Config
}

var _ node.Dialer = NodeDialer{}

func (d NodeDialer) Dial(ctx context.Context, url string) (node.Conn, error) {
	return Dial(ctx, url, d.Config)
}
