package processor

import (
	"context"
	"fmt"

	"walletscope/internal/chain"
	"walletscope/models"
)

// Service routes holdings requests to the aggregator of each chain.
type Service struct {
	aggregators map[chain.Chain]*Aggregator
}

// NewService indexes aggregators by chain; a later aggregator replaces an
// earlier one for the same chain.
func NewService(aggregators ...*Aggregator) *Service {
	s := &Service{aggregators: make(map[chain.Chain]*Aggregator, len(aggregators))}
	for _, a := range aggregators {
		s.aggregators[a.Chain()] = a
	}
	return s
}

// GetHoldings returns the holdings report of address on chain c, or
// ErrUnsupportedChain when no aggregator serves c.
func (s *Service) GetHoldings(ctx context.Context, c chain.Chain, address string) (*models.HoldingsResult, error) {
	a, ok := s.aggregators[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedChain, c)
	}
	return a.GetHoldings(ctx, address)
}

// Chains lists the chains with a configured aggregator.
func (s *Service) Chains() []chain.Chain {
	var out []chain.Chain
	for _, c := range chain.All() {
		if _, ok := s.aggregators[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
