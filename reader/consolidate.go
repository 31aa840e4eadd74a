package reader

import (
	"math/big"
	"strings"

	"walletscope/internal/chain"
	"walletscope/models"
)

// Consolidate canonicalises a provider's token list: entries whose
// identifier fails the chain's address predicate are dropped, entries
// sharing an identifier are summed, and non-positive totals are removed.
// Output keeps first-seen order. The input is not modified.
func Consolidate(c chain.Chain, entries []models.RawTokenBalance) []models.RawTokenBalance {
	index := make(map[string]int, len(entries))
	out := make([]models.RawTokenBalance, 0, len(entries))

	for _, e := range entries {
		if !chain.Valid(c, e.Identifier) {
			continue
		}
		id := c.CanonicalID(e.Identifier)
		raw := new(big.Int)
		if e.RawBalance != nil {
			raw.Set(e.RawBalance)
		}

		if i, ok := index[id]; ok {
			out[i].RawBalance.Add(out[i].RawBalance, raw)
			if out[i].Symbol == "" {
				out[i].Symbol = e.Symbol
			}
			if out[i].Quote == nil && e.Quote != nil {
				q := *e.Quote
				out[i].Quote = &q
			}
			continue
		}
		var quote *models.PriceQuote
		if e.Quote != nil {
			q := *e.Quote
			quote = &q
		}
		index[id] = len(out)
		out = append(out, models.RawTokenBalance{
			Identifier: id,
			Symbol:     strings.TrimSpace(e.Symbol),
			Decimals:   e.Decimals,
			RawBalance: raw,
			Quote:      quote,
		})
	}

	kept := out[:0]
	for _, e := range out {
		if e.RawBalance.Sign() > 0 {
			kept = append(kept, e)
		}
	}
	return kept
}
