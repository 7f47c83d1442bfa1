package domain

import "math/big"

// TransactionStatus is the lifecycle state of a submitted extrinsic.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCommitted TransactionStatus = "COMMITTED"
	StatusRejected  TransactionStatus = "REJECTED"
)

// TransactionKind is a closed set of event kinds shown in history.
type TransactionKind string

const (
	KindTransferIn      TransactionKind = "transfer_in"
	KindTransferOut     TransactionKind = "transfer_out"
	KindSwap            TransactionKind = "swap"
	KindLiquidityAdd    TransactionKind = "liquidity_add"
	KindLiquidityRemove TransactionKind = "liquidity_remove"
	KindEthBridge       TransactionKind = "eth_bridge"
	KindReferralBond    TransactionKind = "referral_bond"
	KindReferralUnbond  TransactionKind = "referral_unbond"
	KindReward          TransactionKind = "reward"
)

// TransactionRecord is one history entry. Created locally as PENDING at
// submission time and superseded, matched by Hash, once the remote
// indexer reports the final status.
type TransactionRecord struct {
	Hash      string
	Account   string
	Kind      TransactionKind
	Status    TransactionStatus
	Timestamp int64 // unix milliseconds
	AssetID   AssetID
	Amount    *big.Int
	// Counterparty is the peer address for transfers; empty for swaps.
	Counterparty string
	// Route is the market path for swaps; empty otherwise.
	Route      []Market
	FeeAssetID AssetID
	Fee        *big.Int
}
