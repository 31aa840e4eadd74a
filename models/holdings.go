package models

import (
	"math/big"

	"walletscope/internal/chain"
)

// NativeIdentifier marks the native coin in a NormalizedHolding.
const NativeIdentifier = "native"

// RawTokenBalance is a provider's view of one fungible token held by an
// address, before decimal conversion. Quote is a price the provider
// reported alongside the balance, if any; the oracle's listing wins.
type RawTokenBalance struct {
	Identifier string // contract address (EVM) or mint (Solana)
	Symbol     string
	Decimals   int
	RawBalance *big.Int
	Quote      *PriceQuote
}

// PriceQuote is a USD price with an optional 24h percentage change.
// The zero value means the oracle had no listing for the asset.
type PriceQuote struct {
	USDPrice         float64  `json:"usd_price"`
	Change24hPercent *float64 `json:"change_24h_percent,omitempty"`
}

// NormalizedHolding is a priced, whole-unit holding.
type NormalizedHolding struct {
	Symbol           string   `json:"symbol"`
	Amount           float64  `json:"amount"`
	USDValue         float64  `json:"usd_value"`
	Change24hPercent *float64 `json:"change_24h_percent,omitempty"`
	Decimals         int      `json:"decimals"`
	Identifier       string   `json:"identifier"`
}

// HoldingsResult is the uniform report returned for every chain and
// provider. Native is nil when the native holding is dust.
type HoldingsResult struct {
	Chain   chain.Chain         `json:"chain"`
	Address string              `json:"address"`
	Native  *NormalizedHolding  `json:"native"`
	Tokens  []NormalizedHolding `json:"tokens"`
}

// TotalUSD sums the native and token values of the report.
func (r *HoldingsResult) TotalUSD() float64 {
	if r == nil {
		return 0
	}
	total := 0.0
	if r.Native != nil {
		total += r.Native.USDValue
	}
	for _, t := range r.Tokens {
		total += t.USDValue
	}
	return total
}
