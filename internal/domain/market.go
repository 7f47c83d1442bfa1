package domain

// Market tags one liquidity source a swap may be routed through.
type Market string

const (
	// MarketSmart is not a source of its own: it lets the router pick
	// freely across everything the pair supports.
	MarketSmart Market = "SMART"
	MarketXYK   Market = "XYK"
	MarketTBC   Market = "TBC"
)

// WireName is the runtime-side variant name of the liquidity source type.
// MarketSmart has no wire form: it encodes as an empty source list.
func (m Market) WireName() string {
	switch m {
	case MarketXYK:
		return "XYKPool"
	case MarketTBC:
		return "MulticollateralBondingCurvePool"
	default:
		return ""
	}
}

// MarketFromWire maps a runtime variant name back to a market tag.
func MarketFromWire(name string) (Market, bool) {
	switch name {
	case "XYKPool":
		return MarketXYK, true
	case "MulticollateralBondingCurvePool":
		return MarketTBC, true
	default:
		return "", false
	}
}

// FilterMode tells the chain how to interpret the selected source list.
type FilterMode string

const (
	FilterDisabled       FilterMode = "Disabled"
	FilterForbidSelected FilterMode = "ForbidSelected"
	FilterAllowSelected  FilterMode = "AllowSelected"
)
