package processor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"walletscope/internal/chain"
	"walletscope/models"
)

const (
	ethAddr = "0x000000000000000000000000000000000000dEaD"
	tokenA  = "0x1111111111111111111111111111111111111111"
	tokenB  = "0x2222222222222222222222222222222222222222"
	tokenC  = "0x3333333333333333333333333333333333333333"
)

type fakeProvider struct {
	c         chain.Chain
	native    float64
	tokens    []models.RawTokenBalance
	nativeErr error
	tokenErr  error

	mu    sync.Mutex
	calls int
}

func (p *fakeProvider) Name() string       { return "fake" }
func (p *fakeProvider) Chain() chain.Chain { return p.c }

func (p *fakeProvider) NativeBalance(ctx context.Context, address string) (float64, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.native, p.nativeErr
}

func (p *fakeProvider) TokenBalances(ctx context.Context, address string) ([]models.RawTokenBalance, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.tokens, p.tokenErr
}

type fakeOracle struct {
	native models.PriceQuote
	tokens map[string]models.PriceQuote

	mu          sync.Mutex
	tokenCalls  int
	requestedID []string
}

func (o *fakeOracle) NativePrice(ctx context.Context, c chain.Chain) models.PriceQuote {
	return o.native
}

func (o *fakeOracle) TokenPrices(ctx context.Context, c chain.Chain, ids []string) map[string]models.PriceQuote {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tokenCalls++
	o.requestedID = append(o.requestedID, ids...)
	out := make(map[string]models.PriceQuote)
	for _, id := range ids {
		if q, ok := o.tokens[id]; ok {
			out[id] = q
		}
	}
	return out
}

func token(id, symbol string, raw int64, decimals int) models.RawTokenBalance {
	return models.RawTokenBalance{Identifier: id, Symbol: symbol, Decimals: decimals, RawBalance: big.NewInt(raw)}
}

func pct(v float64) *float64 { return &v }

func TestGetHoldingsScenario(t *testing.T) {
	provider := &fakeProvider{
		c:      chain.Ethereum,
		native: 2.5,
		tokens: []models.RawTokenBalance{
			token(tokenA, "DUST", 500, 2),
			token(tokenB, "GOOD", 1000000, 6),
		},
	}
	oracle := &fakeOracle{
		native: models.PriceQuote{USDPrice: 100, Change24hPercent: pct(1.5)},
		tokens: map[string]models.PriceQuote{
			tokenA: {USDPrice: 0.001},
			tokenB: {USDPrice: 50, Change24hPercent: pct(-3)},
		},
	}
	agg := NewAggregator(provider, oracle, DustFilter{Threshold: 1.00}, time.Second)

	res, err := agg.GetHoldings(context.Background(), "  "+ethAddr+" ")
	if err != nil {
		t.Fatalf("GetHoldings: %v", err)
	}
	if res.Address != ethAddr || res.Chain != chain.Ethereum {
		t.Errorf("unexpected header %s %s", res.Chain, res.Address)
	}
	if res.Native == nil || res.Native.Amount != 2.5 || res.Native.USDValue != 250 || res.Native.Symbol != "ETH" {
		t.Fatalf("unexpected native %+v", res.Native)
	}
	if res.Native.Change24hPercent == nil || *res.Native.Change24hPercent != 1.5 {
		t.Errorf("native change not carried: %+v", res.Native)
	}
	if len(res.Tokens) != 1 {
		t.Fatalf("expected only GOOD to survive, got %+v", res.Tokens)
	}
	got := res.Tokens[0]
	if got.Symbol != "GOOD" || got.Amount != 1.0 || got.USDValue != 50 || got.Decimals != 6 || got.Identifier != tokenB {
		t.Fatalf("unexpected token %+v", got)
	}
}

func TestGetHoldingsInvalidAddress(t *testing.T) {
	cases := []string{"", "   ", "0x123", "not-an-address"}
	for _, addr := range cases {
		provider := &fakeProvider{c: chain.Ethereum}
		agg := NewAggregator(provider, &fakeOracle{}, DustFilter{Threshold: 1}, 0)
		_, err := agg.GetHoldings(context.Background(), addr)
		if !errors.Is(err, models.ErrInvalidAddress) {
			t.Errorf("%q: expected ErrInvalidAddress, got %v", addr, err)
		}
		if provider.calls != 0 {
			t.Errorf("%q: provider called %d times", addr, provider.calls)
		}
	}
}

func TestGetHoldingsPriceOutage(t *testing.T) {
	provider := &fakeProvider{
		c:      chain.Ethereum,
		native: 3,
		tokens: []models.RawTokenBalance{token(tokenA, "A", 10, 0)},
	}
	res, err := NewAggregator(provider, &fakeOracle{}, DustFilter{Threshold: 1}, 0).GetHoldings(context.Background(), ethAddr)
	if err != nil {
		t.Fatalf("price outage must not fail the request: %v", err)
	}
	if res.Native != nil || len(res.Tokens) != 0 {
		t.Fatalf("expected empty report, got %+v", res)
	}
}

func TestGetHoldingsZeroTokensSkipsOracle(t *testing.T) {
	provider := &fakeProvider{c: chain.Ethereum, native: 1}
	oracle := &fakeOracle{native: models.PriceQuote{USDPrice: 2000}}
	res, err := NewAggregator(provider, oracle, DustFilter{Threshold: 1}, 0).GetHoldings(context.Background(), ethAddr)
	if err != nil {
		t.Fatalf("GetHoldings: %v", err)
	}
	if oracle.tokenCalls != 0 {
		t.Fatal("token prices queried for an empty token list")
	}
	if res.Native == nil || res.Native.USDValue != 2000 {
		t.Fatalf("unexpected native %+v", res.Native)
	}
	if res.Tokens == nil || len(res.Tokens) != 0 {
		t.Fatalf("tokens should be an empty list, got %#v", res.Tokens)
	}
}

func TestGetHoldingsProviderFailure(t *testing.T) {
	cases := []struct {
		name     string
		provider *fakeProvider
	}{
		{"native", &fakeProvider{c: chain.Ethereum, nativeErr: fmt.Errorf("x: %w", models.ErrProviderUnavailable)}},
		{"tokens", &fakeProvider{c: chain.Ethereum, tokenErr: errors.New("connection reset")}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewAggregator(c.provider, &fakeOracle{}, DustFilter{Threshold: 1}, 0).GetHoldings(context.Background(), ethAddr)
			if !errors.Is(err, models.ErrProviderUnavailable) {
				t.Fatalf("expected ErrProviderUnavailable, got %v", err)
			}
		})
	}
}

func TestGetHoldingsFiltersInvalidAndZeroTokens(t *testing.T) {
	provider := &fakeProvider{
		c:      chain.Ethereum,
		native: 0,
		tokens: []models.RawTokenBalance{
			token("garbage", "BAD", 100, 0),
			token(tokenA, "ZERO", 0, 0),
			token(tokenB, "NEG", 5, -1),
			token(tokenC, "OK", 5, 0),
		},
	}
	oracle := &fakeOracle{tokens: map[string]models.PriceQuote{
		tokenA: {USDPrice: 1000},
		tokenB: {USDPrice: 1000},
		tokenC: {USDPrice: 1},
	}}
	res, err := NewAggregator(provider, oracle, DustFilter{Threshold: 1}, 0).GetHoldings(context.Background(), ethAddr)
	if err != nil {
		t.Fatalf("GetHoldings: %v", err)
	}
	for _, id := range oracle.requestedID {
		if id == "garbage" {
			t.Fatal("invalid identifier reached the oracle")
		}
	}
	if len(res.Tokens) != 1 || res.Tokens[0].Symbol != "OK" || res.Tokens[0].USDValue != 5 {
		t.Fatalf("unexpected tokens %+v", res.Tokens)
	}
	if res.Native != nil {
		t.Fatalf("zero native balance should be dust, got %+v", res.Native)
	}
}

func TestGetHoldingsMissingPriceHasNilChange(t *testing.T) {
	provider := &fakeProvider{c: chain.Ethereum, tokens: []models.RawTokenBalance{token(tokenA, "A", 10, 0)}}
	res, err := NewAggregator(provider, &fakeOracle{}, DustFilter{Threshold: 0}, 0).GetHoldings(context.Background(), ethAddr)
	if err != nil {
		t.Fatalf("GetHoldings: %v", err)
	}
	if len(res.Tokens) != 1 || res.Tokens[0].USDValue != 0 || res.Tokens[0].Change24hPercent != nil {
		t.Fatalf("unexpected tokens %+v", res.Tokens)
	}
}

func TestGetHoldingsSkipsOversizedDecimals(t *testing.T) {
	provider := &fakeProvider{c: chain.Ethereum, tokens: []models.RawTokenBalance{
		token(tokenA, "SPAM", 5_000_000, 1<<32),
		token(tokenB, "OK", 2_000_000, 6),
	}}
	oracle := &fakeOracle{tokens: map[string]models.PriceQuote{
		tokenA: {USDPrice: 1},
		tokenB: {USDPrice: 1},
	}}
	res, err := NewAggregator(provider, oracle, DustFilter{Threshold: 1}, 0).GetHoldings(context.Background(), ethAddr)
	if err != nil {
		t.Fatalf("GetHoldings: %v", err)
	}
	if len(res.Tokens) != 1 || res.Tokens[0].Symbol != "OK" || res.Tokens[0].USDValue != 2 {
		t.Fatalf("unexpected tokens %+v", res.Tokens)
	}
}

func TestGetHoldingsFallsBackToProviderQuote(t *testing.T) {
	listed := token(tokenA, "LISTED", 3, 0)
	listed.Quote = &models.PriceQuote{USDPrice: 100}
	unlisted := token(tokenB, "UNLISTED", 4, 0)
	unlisted.Quote = &models.PriceQuote{USDPrice: 2.5, Change24hPercent: pct(7)}

	provider := &fakeProvider{c: chain.Ethereum, tokens: []models.RawTokenBalance{listed, unlisted}}
	oracle := &fakeOracle{tokens: map[string]models.PriceQuote{tokenA: {USDPrice: 1}}}
	res, err := NewAggregator(provider, oracle, DustFilter{Threshold: 1}, 0).GetHoldings(context.Background(), ethAddr)
	if err != nil {
		t.Fatalf("GetHoldings: %v", err)
	}
	if len(res.Tokens) != 2 {
		t.Fatalf("unexpected tokens %+v", res.Tokens)
	}
	if res.Tokens[0].USDValue != 3 {
		t.Errorf("oracle listing should win, got %v", res.Tokens[0].USDValue)
	}
	if res.Tokens[1].USDValue != 10 || res.Tokens[1].Change24hPercent == nil || *res.Tokens[1].Change24hPercent != 7 {
		t.Errorf("provider quote not used: %+v", res.Tokens[1])
	}
}

func TestDustFilterThreshold(t *testing.T) {
	f := DustFilter{Threshold: DefaultDustThreshold}
	cases := []struct {
		value float64
		keep  bool
	}{
		{1.00, true},
		{math.Nextafter(1.00, 0), false},
		{0.999, false},
		{250, true},
		{0, false},
	}
	for _, c := range cases {
		h := models.NormalizedHolding{USDValue: c.value}
		if got := f.Keep(h); got != c.keep {
			t.Errorf("Keep(%v) = %v, want %v", c.value, got, c.keep)
		}
		if got := f.Native(h); (got != nil) != c.keep {
			t.Errorf("Native(%v) = %v, want kept=%v", c.value, got, c.keep)
		}
	}
}

func TestGetHoldingsTimeout(t *testing.T) {
	provider := &blockingProvider{fakeProvider: fakeProvider{c: chain.Ethereum}}
	agg := NewAggregator(provider, &fakeOracle{}, DustFilter{Threshold: 1}, 20*time.Millisecond)

	start := time.Now()
	_, err := agg.GetHoldings(context.Background(), ethAddr)
	if !errors.Is(err, models.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("request timeout not applied")
	}
}

type blockingProvider struct {
	fakeProvider
}

func (p *blockingProvider) NativeBalance(ctx context.Context, address string) (float64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestServiceRouting(t *testing.T) {
	eth := NewAggregator(&fakeProvider{c: chain.Ethereum, native: 1}, &fakeOracle{native: models.PriceQuote{USDPrice: 5}}, DustFilter{Threshold: 1}, 0)
	svc := NewService(eth)

	if chains := svc.Chains(); len(chains) != 1 || chains[0] != chain.Ethereum {
		t.Fatalf("unexpected chains %v", chains)
	}
	res, err := svc.GetHoldings(context.Background(), chain.Ethereum, ethAddr)
	if err != nil || res.Native == nil {
		t.Fatalf("GetHoldings: %v %+v", err, res)
	}
	if _, err := svc.GetHoldings(context.Background(), chain.Solana, "86xCnPeV69n6t3DnyGvkKobf9FdN2H9oiVDdaMpo2MMY"); !errors.Is(err, models.ErrUnsupportedChain) {
		t.Fatalf("expected ErrUnsupportedChain, got %v", err)
	}
}
