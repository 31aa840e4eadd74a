// Package oracle prices native coins and tokens in USD. Oracles never
// fail a request: a missing or unreachable price is reported as the
// zero quote (native) or an absent map entry (tokens).
package oracle

import (
	"context"

	"walletscope/internal/chain"
	"walletscope/models"
)

type NativePricer interface {
	NativePrice(ctx context.Context, c chain.Chain) models.PriceQuote
}

// TokenPricer returns quotes keyed by chain.CanonicalID. Identifiers
// without a listing are absent from the map.
type TokenPricer interface {
	TokenPrices(ctx context.Context, c chain.Chain, ids []string) map[string]models.PriceQuote
}

type PriceOracle interface {
	NativePricer
	TokenPricer
}

// Composite pairs one native price source with one token price source.
type Composite struct {
	Native NativePricer
	Tokens TokenPricer
}

// NativePrice delegates to the native source, or returns an empty quote
// when none is set.
func (o Composite) NativePrice(ctx context.Context, c chain.Chain) models.PriceQuote {
	if o.Native == nil {
		return models.PriceQuote{}
	}
	return o.Native.NativePrice(ctx, c)
}

// TokenPrices delegates to the token source, or returns an empty map when
// none is set.
func (o Composite) TokenPrices(ctx context.Context, c chain.Chain, ids []string) map[string]models.PriceQuote {
	if o.Tokens == nil {
		return map[string]models.PriceQuote{}
	}
	return o.Tokens.TokenPrices(ctx, c, ids)
}

// distinctValid canonicalises ids, dropping duplicates and identifiers
// that fail the chain's address predicate. Order is preserved.
func distinctValid(c chain.Chain, ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !chain.Valid(c, id) {
			continue
		}
		key := c.CanonicalID(id)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// ByChain routes token pricing to a per-chain source. Chains without an
// entry get no prices.
type ByChain map[chain.Chain]TokenPricer

func (b ByChain) TokenPrices(ctx context.Context, c chain.Chain, ids []string) map[string]models.PriceQuote {
	p, ok := b[c]
	if !ok || p == nil {
		return map[string]models.PriceQuote{}
	}
	return p.TokenPrices(ctx, c, ids)
}
