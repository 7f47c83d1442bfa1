// Package main provides an offline quote tool: given pool reserves and a
// swap intent it prints the routed quote and the SCALE-encoded call that
// would submit it.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/extrinsic"
	"sora-wallet-engine/internal/observability"
	"sora-wallet-engine/internal/router"
)

// staticSource serves one XYK pool from flag values.
type staticSource struct {
	reserves *domain.Reserves
}

func (s *staticSource) AvailableMarkets(context.Context, domain.AssetID, domain.AssetID) ([]domain.Market, error) {
	return []domain.Market{domain.MarketXYK}, nil
}

func (s *staticSource) Reserves(_ context.Context, market domain.Market, _, _ domain.AssetID) (*domain.Reserves, error) {
	if market != domain.MarketXYK {
		return nil, fmt.Errorf("no reserves for %s", market)
	}
	return s.reserves, nil
}

// quoteOutput is the JSON printed for one routed quote.
type quoteOutput struct {
	Desired      string   `json:"desired"`
	Amount       string   `json:"amount"`
	Limit        string   `json:"limit"`
	LiquidityFee string   `json:"liquidity_fee"`
	NetworkFee   string   `json:"network_fee"`
	PriceImpact  float64  `json:"price_impact"`
	PriceFromTo  float64  `json:"price_from_to"`
	PriceToFrom  float64  `json:"price_to_from"`
	Route        []string `json:"route"`
	CallHex      string   `json:"call_hex,omitempty"`
}

func main() {
	// Parse flags
	baseReserve := flag.String("base-reserve", "", "Pool reserve of the asset sold, in base units (required)")
	targetReserve := flag.String("target-reserve", "", "Pool reserve of the asset bought, in base units (required)")
	amount := flag.String("amount", "", "Fixed trade amount in base units (required)")
	desired := flag.String("desired", "in", "Which side is fixed: in (amount sold) or out (amount bought)")
	slippageBps := flag.Uint("slippage-bps", 50, "Slippage tolerance in basis points")
	networkFee := flag.String("network-fee", "700000000000000", "Network fee in base units of the native asset")
	fromID := flag.String("from", string(domain.NativeAssetID), "Asset id sold")
	toID := flag.String("to", string(domain.ValAssetID), "Asset id bought")
	decimals := flag.Uint("decimals", 18, "Decimal precision of both assets")
	dexID := flag.Uint("dex-id", 0, "DEX instance the quote refers to")
	encodeCall := flag.Bool("encode", true, "Include the SCALE-encoded swap call")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[quote] ", log.LstdFlags)

	// Validate required flags
	if *baseReserve == "" || *targetReserve == "" {
		logger.Fatal("--base-reserve and --target-reserve are required")
	}
	if *amount == "" {
		logger.Fatal("--amount is required")
	}

	reserves := &domain.Reserves{
		Base:   mustAmount(logger, "base-reserve", *baseReserve),
		Target: mustAmount(logger, "target-reserve", *targetReserve),
	}

	intent := &domain.SwapIntent{
		FromAsset:   domain.Asset{ID: domain.AssetID(*fromID), Decimals: uint8(*decimals)},
		ToAsset:     domain.Asset{ID: domain.AssetID(*toID), Decimals: uint8(*decimals)},
		Amount:      mustAmount(logger, "amount", *amount),
		Desired:     mustDesired(logger, *desired),
		SlippageBps: uint32(*slippageBps),
	}

	r := router.New(&staticSource{reserves: reserves}, uint32(*dexID), router.WithLogger(logger))
	start := time.Now()
	quote, err := r.RouteSwap(context.Background(), intent, mustAmount(logger, "network-fee", *networkFee))
	if err != nil {
		logger.Fatalf("Route swap: %v", err)
	}
	if quote == nil {
		observability.RecordEmptyQuote()
		logger.Fatal("Insufficient liquidity for the requested amount")
	}
	observability.RecordQuote(string(quote.Route[0]), time.Since(start).Seconds())

	out := quoteOutput{
		Desired:      intent.Desired.String(),
		Amount:       quote.Amount.String(),
		Limit:        quote.Limit.String(),
		LiquidityFee: quote.LiquidityFee.String(),
		NetworkFee:   quote.NetworkFee.String(),
		PriceImpact:  quote.PriceImpact,
		PriceFromTo:  quote.PriceFromTo,
		PriceToFrom:  quote.PriceToFrom,
	}
	for _, m := range quote.Route {
		out.Route = append(out.Route, string(m))
	}

	if *encodeCall {
		// Index table of a recent runtime; a connected client would read
		// it from metadata instead.
		resolver := extrinsic.StaticResolver{}.
			WithCall(extrinsic.PalletLiquidityProxy, "swap", 26, 0)

		call, err := extrinsic.Swap(uint32(*dexID), intent, quote.Limit)
		if err != nil {
			logger.Fatalf("Build swap call: %v", err)
		}
		encoded, err := extrinsic.Encode(call, resolver)
		if err != nil {
			logger.Fatalf("Encode swap call: %v", err)
		}
		out.CallHex = "0x" + hex.EncodeToString(encoded)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatalf("Write output: %v", err)
	}
}

// mustAmount parses a non-negative decimal base-unit amount.
func mustAmount(logger *log.Logger, name, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		logger.Fatalf("Invalid --%s: %q is not a non-negative decimal amount", name, s)
	}
	return v
}

func mustDesired(logger *log.Logger, s string) domain.Desired {
	switch strings.ToLower(s) {
	case "in", "input":
		return domain.DesiredInput
	case "out", "output":
		return domain.DesiredOutput
	default:
		logger.Fatalf("Invalid --desired: %q, want in or out", s)
		return domain.DesiredInput
	}
}
