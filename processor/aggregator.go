package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"walletscope/internal/chain"
	"walletscope/internal/metrics"
	"walletscope/internal/units"
	"walletscope/logger"
	"walletscope/models"
	"walletscope/oracle"
	"walletscope/reader"
)

// Aggregator builds the holdings report of one chain from a balance
// provider and a price oracle.
type Aggregator struct {
	provider reader.BalanceProvider
	oracle   oracle.PriceOracle
	dust     DustFilter
	timeout  time.Duration
	log      *logger.Log
}

// NewAggregator wires an aggregator. timeout bounds every GetHoldings
// call, including pacing delays; zero means no bound beyond ctx.
func NewAggregator(provider reader.BalanceProvider, o oracle.PriceOracle, dust DustFilter, timeout time.Duration) *Aggregator {
	return &Aggregator{
		provider: provider,
		oracle:   o,
		dust:     dust,
		timeout:  timeout,
		log:      logger.GetLogger(),
	}
}

func (a *Aggregator) Chain() chain.Chain { return a.provider.Chain() }

// GetHoldings validates address, fetches the native balance, the token
// list and the native price concurrently, prices the tokens and applies
// the dust filter. Only ErrInvalidAddress and ErrProviderUnavailable are
// returned; pricing failures degrade values to zero.
func (a *Aggregator) GetHoldings(ctx context.Context, address string) (*models.HoldingsResult, error) {
	c := a.provider.Chain()
	address = strings.TrimSpace(address)
	if err := chain.ValidateAddress(c, address); err != nil {
		metrics.IncrementHoldingsRequest(c.String(), metrics.OutcomeInvalidAddress)
		return nil, err
	}

	log := a.log.WithComponent("aggregator").WithFields(logger.Fields{
		"request_id": uuid.NewString(),
		"chain":      c.String(),
		"provider":   a.provider.Name(),
		"address":    address,
	})

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	start := time.Now()

	var (
		wg      sync.WaitGroup
		quote   models.PriceQuote
		balance float64
		balErr  error
		tokens  []models.RawTokenBalance
		tokErr  error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		quote = a.oracle.NativePrice(ctx, c)
	}()
	go func() {
		defer wg.Done()
		balance, balErr = a.provider.NativeBalance(ctx, address)
	}()
	go func() {
		defer wg.Done()
		tokens, tokErr = a.provider.TokenBalances(ctx, address)
	}()
	wg.Wait()

	if err := firstError(balErr, tokErr); err != nil {
		metrics.IncrementHoldingsRequest(c.String(), metrics.OutcomeProviderFailure)
		log.WithError(err).Error("balance provider failed")
		if !errors.Is(err, models.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrProviderUnavailable, err)
		}
		return nil, err
	}

	result := &models.HoldingsResult{
		Chain:   c,
		Address: address,
		Tokens:  []models.NormalizedHolding{},
	}

	result.Native = a.dust.Native(models.NormalizedHolding{
		Symbol:           c.NativeSymbol(),
		Amount:           balance,
		USDValue:         balance * quote.USDPrice,
		Change24hPercent: quote.Change24hPercent,
		Decimals:         c.NativeDecimals(),
		Identifier:       models.NativeIdentifier,
	})
	if result.Native == nil {
		metrics.AddDustFiltered(c.String(), "native", 1)
	}

	filtered := 0
	tokens = reader.Consolidate(c, tokens)
	if len(tokens) > 0 {
		ids := make([]string, len(tokens))
		for i, t := range tokens {
			ids[i] = t.Identifier
		}
		prices := a.oracle.TokenPrices(ctx, c, ids)

		for _, t := range tokens {
			amount, err := units.Normalize(t.RawBalance, t.Decimals)
			if err != nil {
				log.WithError(err).WithFields(logger.Fields{"token": t.Identifier}).Warn("skipping token")
				continue
			}
			if amount <= 0 {
				continue
			}

			q, listed := prices[c.CanonicalID(t.Identifier)]
			if !listed && t.Quote != nil {
				q = *t.Quote
			}
			h := models.NormalizedHolding{
				Symbol:           t.Symbol,
				Amount:           amount,
				USDValue:         amount * q.USDPrice,
				Change24hPercent: q.Change24hPercent,
				Decimals:         t.Decimals,
				Identifier:       t.Identifier,
			}
			if !a.dust.Keep(h) {
				filtered++
				continue
			}
			result.Tokens = append(result.Tokens, h)
		}
		metrics.AddDustFiltered(c.String(), "token", filtered)
	}

	metrics.IncrementHoldingsRequest(c.String(), metrics.OutcomeOK)
	fields := logger.Fields{"chain": c.String()}
	log.LogMetric("aggregator", "holdings_requests", 1, "counter", fields)
	log.LogMetric("aggregator", "holdings_total_usd", result.TotalUSD(), "gauge_usd", fields)
	logger.LogPerformanceEntry(log, "aggregator", "get_holdings", time.Since(start), nil)

	log.WithFields(logger.Fields{
		"native_reported": result.Native != nil,
		"tokens_seen":     len(tokens),
		"tokens_reported": len(result.Tokens),
		"tokens_filtered": filtered,
		"total_usd":       result.TotalUSD(),
	}).Info("holdings computed")

	return result, nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
