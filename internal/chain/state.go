package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/router"
)

// Caller is the RPC surface State needs; *Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Subscriber extends Caller with node-side subscriptions.
type Subscriber interface {
	Caller
	Subscribe(ctx context.Context, subMethod, unsubMethod string, params ...any) (<-chan json.RawMessage, func(), error)
}

// State reads chain state and submits extrinsics through a node RPC
// connection.
type State struct {
	rpc   Caller
	dexID uint32
}

// NewState wraps an RPC caller. dexID scopes liquidity source queries.
func NewState(rpc Caller, dexID uint32) *State {
	return &State{rpc: rpc, dexID: dexID}
}

var _ router.ReserveSource = (*State)(nil)

// Submit sends a signed extrinsic and returns its hash.
func (s *State) Submit(ctx context.Context, extrinsicHex string) (string, error) {
	raw, err := s.rpc.Call(ctx, "author_submitExtrinsic", extrinsicHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	var hash string
	if err := json.Unmarshal(raw, &hash); err != nil {
		return "", fmt.Errorf("%w: decode hash: %v", ErrSubmission, err)
	}
	return hash, nil
}

// Balance returns the usable balance of one asset for an account.
func (s *State) Balance(ctx context.Context, account string, asset domain.AssetID) (*big.Int, error) {
	raw, err := s.rpc.Call(ctx, "assets_usableBalance", account, string(asset))
	if err != nil {
		return nil, fmt.Errorf("%w: balance: %v", ErrFetch, err)
	}
	var info struct {
		Balance json.RawMessage `json:"balance"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("%w: decode balance: %v", ErrFetch, err)
	}
	return parseAmount(info.Balance)
}

// NetworkFee estimates the inclusion fee for an encoded extrinsic.
func (s *State) NetworkFee(ctx context.Context, extrinsicHex string) (*big.Int, error) {
	raw, err := s.rpc.Call(ctx, "payment_queryInfo", extrinsicHex)
	if err != nil {
		return nil, fmt.Errorf("%w: fee: %v", ErrFetch, err)
	}
	var info struct {
		PartialFee json.RawMessage `json:"partialFee"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("%w: decode fee: %v", ErrFetch, err)
	}
	return parseAmount(info.PartialFee)
}

// AvailableMarkets lists the liquidity sources enabled for a pair.
// Unknown source names coming from a newer runtime are skipped.
func (s *State) AvailableMarkets(ctx context.Context, from, to domain.AssetID) ([]domain.Market, error) {
	raw, err := s.rpc.Call(ctx, "liquidityProxy_listEnabledSourcesForPath", s.dexID, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("%w: sources: %v", ErrFetch, err)
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("%w: decode sources: %v", ErrFetch, err)
	}
	var markets []domain.Market
	for _, name := range names {
		if m, ok := domain.MarketFromWire(name); ok {
			markets = append(markets, m)
		}
	}
	return markets, nil
}

// Reserves reads the pool reserves of a market for the pair, input
// side first. Only XYK pools expose pair reserves; an absent storage
// entry reads as an empty pool.
func (s *State) Reserves(ctx context.Context, market domain.Market, from, to domain.AssetID) (*domain.Reserves, error) {
	if market != domain.MarketXYK {
		return nil, fmt.Errorf("%w: market %s has no pair reserves", ErrFetch, market)
	}

	// Pools are keyed (native, other); orient the result to the input
	// side.
	var baseID, targetID domain.AssetID
	nativeIsInput := from == domain.NativeAssetID
	switch {
	case nativeIsInput:
		baseID, targetID = from, to
	case to == domain.NativeAssetID:
		baseID, targetID = to, from
	default:
		return nil, fmt.Errorf("%w: pair %s/%s has no direct pool", ErrFetch, from, to)
	}

	base, err := assetCode(baseID)
	if err != nil {
		return nil, err
	}
	target, err := assetCode(targetID)
	if err != nil {
		return nil, err
	}

	key := "0x" + hex.EncodeToString(poolReservesKey(base, target))
	raw, err := s.rpc.Call(ctx, "state_getStorage", key)
	if err != nil {
		return nil, fmt.Errorf("%w: reserves: %v", ErrFetch, err)
	}

	var value *string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: decode reserves: %v", ErrFetch, err)
	}
	if value == nil {
		return &domain.Reserves{Base: new(big.Int), Target: new(big.Int)}, nil
	}

	nativeSide, otherSide, err := decodeReservesValue(*value)
	if err != nil {
		return nil, err
	}
	if nativeIsInput {
		return &domain.Reserves{Base: nativeSide, Target: otherSide}, nil
	}
	return &domain.Reserves{Base: otherSide, Target: nativeSide}, nil
}

// ExtrinsicStatus is one lifecycle update of a watched extrinsic.
type ExtrinsicStatus struct {
	Status domain.TransactionStatus
	// BlockHash is set once the extrinsic lands in a block.
	BlockHash string
}

// SubmitAndWatch submits a signed extrinsic and streams its lifecycle
// until terminal. The cancel func stops watching.
func SubmitAndWatch(ctx context.Context, rpc Subscriber, extrinsicHex string) (<-chan ExtrinsicStatus, func(), error) {
	raw, cancel, err := rpc.Subscribe(ctx, "author_submitAndWatchExtrinsic", "author_unwatchExtrinsic", extrinsicHex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	out := make(chan ExtrinsicStatus, 8)
	go func() {
		defer close(out)
		for msg := range raw {
			out <- parseExtrinsicStatus(msg)
		}
	}()
	return out, cancel, nil
}

func parseExtrinsicStatus(msg json.RawMessage) ExtrinsicStatus {
	// Terminal states arrive as single-key objects, transient ones as
	// bare strings.
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(msg, &keyed); err == nil {
		for key, v := range keyed {
			switch key {
			case "inBlock", "finalized":
				var hash string
				json.Unmarshal(v, &hash)
				return ExtrinsicStatus{Status: domain.StatusCommitted, BlockHash: hash}
			case "usurped", "dropped", "invalid", "finalityTimeout":
				return ExtrinsicStatus{Status: domain.StatusRejected}
			}
		}
	}
	return ExtrinsicStatus{Status: domain.StatusPending}
}

func assetCode(id domain.AssetID) ([32]byte, error) {
	var code [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(string(id), "0x"))
	if err != nil || len(raw) != 32 {
		return code, fmt.Errorf("%w: malformed asset id %q", ErrFetch, id)
	}
	copy(code[:], raw)
	return code, nil
}

// decodeReservesValue unpacks the stored (Balance, Balance) pair: two
// 16-byte little-endian words.
func decodeReservesValue(value string) (*big.Int, *big.Int, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil || len(raw) != 32 {
		return nil, nil, fmt.Errorf("%w: malformed reserves value", ErrFetch)
	}
	return u128LE(raw[:16]), u128LE(raw[16:]), nil
}

func u128LE(raw []byte) *big.Int {
	be := make([]byte, len(raw))
	for i, b := range raw {
		be[len(raw)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}

// parseAmount accepts the balance spellings nodes use: JSON numbers,
// decimal strings, and 0x-hex strings.
func parseAmount(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%w: unrecognized amount %s", ErrFetch, raw)
		}
		s = n.String()
	}

	v := new(big.Int)
	if strings.HasPrefix(s, "0x") {
		if _, ok := v.SetString(strings.TrimPrefix(s, "0x"), 16); !ok {
			return nil, fmt.Errorf("%w: unrecognized amount %q", ErrFetch, s)
		}
		return v, nil
	}
	if _, ok := v.SetString(s, 10); !ok {
		return nil, fmt.Errorf("%w: unrecognized amount %q", ErrFetch, s)
	}
	return v, nil
}
