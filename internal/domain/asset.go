package domain

// AssetID is the chain-scoped asset identifier: a 32-byte code rendered
// as a 0x-prefixed hex string, e.g. the native asset
// "0x0200000000000000000000000000000000000000000000000000000000000000".
type AssetID string

// Asset describes a token registered on chain. Immutable once resolved.
type Asset struct {
	ID       AssetID
	Symbol   string
	Decimals uint8
}

// Well-known asset ids of the network.
const (
	// NativeAssetID is XOR, the asset network fees are paid in.
	NativeAssetID AssetID = "0x0200000000000000000000000000000000000000000000000000000000000000"
	ValAssetID    AssetID = "0x0200040000000000000000000000000000000000000000000000000000000000"
	PswapAssetID  AssetID = "0x0200050000000000000000000000000000000000000000000000000000000000"
)
