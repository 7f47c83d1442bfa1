// Package router selects liquidity sources for an asset pair and merges
// calculator output across them into a single best quote.
package router

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"sora-wallet-engine/internal/amm"
	"sora-wallet-engine/internal/domain"
)

// ReserveSource supplies per-pair market availability and pool reserves.
// Implementations read chain state; the router itself performs no I/O
// beyond these calls.
type ReserveSource interface {
	// AvailableMarkets returns the liquidity sources registered for the
	// pair. An empty result means the pair cannot be traded.
	AvailableMarkets(ctx context.Context, from, to domain.AssetID) ([]domain.Market, error)

	// Reserves returns the pool reserves of one market for the pair,
	// input side first.
	Reserves(ctx context.Context, market domain.Market, from, to domain.AssetID) (*domain.Reserves, error)
}

// DefaultFees is the per-market liquidity fee in basis points.
func DefaultFees() map[domain.Market]uint32 {
	return map[domain.Market]uint32{
		domain.MarketXYK: 30,
		domain.MarketTBC: 30,
	}
}

// Router routes swap intents across the markets a pair supports.
type Router struct {
	source ReserveSource
	fees   map[domain.Market]uint32
	dexID  uint32
	logger *log.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router's logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a router over the given reserve source. dexID identifies
// the DEX instance all built quotes refer to.
func New(source ReserveSource, dexID uint32, opts ...Option) *Router {
	r := &Router{
		source: source,
		fees:   DefaultFees(),
		dexID:  dexID,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SelectMarkets returns the markets a swap between the two assets may
// use, before any user filter is applied.
func (r *Router) SelectMarkets(ctx context.Context, from, to domain.AssetID) ([]domain.Market, error) {
	markets, err := r.source.AvailableMarkets(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("available markets: %w", err)
	}
	return markets, nil
}

// RouteSwap computes the best quote for the intent under its market
// filter. A nil quote with nil error means no eligible market had
// liquidity; callers surface that as "insufficient liquidity", not as a
// failure. A market whose reserves cannot be read is treated the same
// as one without liquidity: the remaining markets still compete.
// networkFee is attached to the quote for display and validation.
// Non-positive amounts yield a nil quote without touching the source.
func (r *Router) RouteSwap(ctx context.Context, intent *domain.SwapIntent, networkFee *big.Int) (*domain.SwapQuote, error) {
	if intent.Amount == nil || intent.Amount.Sign() <= 0 {
		return nil, nil
	}

	available, err := r.SelectMarkets(ctx, intent.FromAsset.ID, intent.ToAsset.ID)
	if err != nil {
		return nil, err
	}
	eligible := applyFilter(available, intent.SelectedMarkets, intent.FilterMode)
	if len(eligible) == 0 {
		return nil, nil
	}

	var (
		best       *amm.Quote
		bestMarket domain.Market
	)
	for _, market := range eligible {
		reserves, err := r.source.Reserves(ctx, market, intent.FromAsset.ID, intent.ToAsset.ID)
		if err != nil {
			r.logger.Printf("[router] %s reserves unavailable: %v", market, err)
			continue
		}

		q := r.quoteOn(market, reserves, intent)
		if q == nil {
			continue
		}
		if best == nil || better(q, best, intent.Desired) {
			best, bestMarket = q, market
		}
	}
	if best == nil {
		return nil, nil
	}

	return r.buildQuote(intent, best, bestMarket, networkFee), nil
}

// quoteOn runs the calculator for one market with its fee rate.
func (r *Router) quoteOn(market domain.Market, reserves *domain.Reserves, intent *domain.SwapIntent) *amm.Quote {
	feeBps, ok := r.fees[market]
	if !ok {
		feeBps = r.fees[domain.MarketXYK]
	}
	if intent.Desired == domain.DesiredOutput {
		return amm.InGivenOut(reserves, intent.Amount, feeBps)
	}
	return amm.OutGivenIn(reserves, intent.Amount, feeBps)
}

// better prefers the quote that is cheaper for the recipient: more
// output when the input is fixed, less input when the output is fixed.
func better(a, b *amm.Quote, desired domain.Desired) bool {
	if desired == domain.DesiredOutput {
		return a.Amount.Cmp(b.Amount) < 0
	}
	return a.Amount.Cmp(b.Amount) > 0
}

func (r *Router) buildQuote(intent *domain.SwapIntent, q *amm.Quote, market domain.Market, networkFee *big.Int) *domain.SwapQuote {
	var limit *big.Int
	var inAmt, outAmt *big.Int
	if intent.Desired == domain.DesiredOutput {
		limit = amm.MaximumSold(q.Amount, intent.SlippageBps)
		inAmt, outAmt = q.Amount, intent.Amount
	} else {
		limit = amm.MinimumReceived(q.Amount, intent.SlippageBps)
		inAmt, outAmt = intent.Amount, q.Amount
	}

	return &domain.SwapQuote{
		Amount:       q.Amount,
		Limit:        limit,
		NetworkFee:   networkFee,
		LiquidityFee: q.LiquidityFee,
		PriceImpact:  q.PriceImpact,
		PriceFromTo:  amm.PricePerUnit(inAmt, outAmt, intent.FromAsset.Decimals, intent.ToAsset.Decimals),
		PriceToFrom:  amm.PricePerUnit(outAmt, inAmt, intent.ToAsset.Decimals, intent.FromAsset.Decimals),
		Route:        []domain.Market{market},
		DexID:        r.dexID,
	}
}

// applyFilter narrows available markets by the user's selection.
// Selecting SMART, or selecting nothing, leaves the list unrestricted
// under AllowSelected.
func applyFilter(available, selected []domain.Market, mode domain.FilterMode) []domain.Market {
	switch mode {
	case domain.FilterAllowSelected:
		if isUnrestricted(selected) {
			return available
		}
		return intersect(available, selected)
	case domain.FilterForbidSelected:
		return subtract(available, selected)
	default: // FilterDisabled and zero value: no restriction
		return available
	}
}

func isUnrestricted(selected []domain.Market) bool {
	if len(selected) == 0 {
		return true
	}
	for _, m := range selected {
		if m == domain.MarketSmart {
			return true
		}
	}
	return false
}

func intersect(available, selected []domain.Market) []domain.Market {
	keep := make(map[domain.Market]struct{}, len(selected))
	for _, m := range selected {
		keep[m] = struct{}{}
	}
	var out []domain.Market
	for _, m := range available {
		if _, ok := keep[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func subtract(available, selected []domain.Market) []domain.Market {
	drop := make(map[domain.Market]struct{}, len(selected))
	for _, m := range selected {
		drop[m] = struct{}{}
	}
	var out []domain.Market
	for _, m := range available {
		if _, ok := drop[m]; !ok {
			out = append(out, m)
		}
	}
	return out
}
