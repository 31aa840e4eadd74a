package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"walletscope/config"
	"walletscope/internal/chain"
)

func TestIntervalPacer(t *testing.T) {
	p := NewIntervalPacer(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if time.Since(start) > 20*time.Millisecond {
		t.Fatal("first wait should be immediate")
	}
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("second wait returned after %v", elapsed)
	}
}

func TestIntervalPacerHonoursContext(t *testing.T) {
	p := NewIntervalPacer(time.Hour)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Wait(ctx); err == nil {
		t.Fatal("expected error when the deadline is shorter than the interval")
	}
}

func TestNoPacer(t *testing.T) {
	if NewIntervalPacer(0) != NoPacer {
		t.Fatal("non-positive interval should disable pacing")
	}
	if err := NoPacer.Wait(context.Background()); err != nil {
		t.Fatalf("NoPacer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NoPacer.Wait(ctx); err == nil {
		t.Fatal("NoPacer should report a cancelled context")
	}
}

// countingPacer records how many requests had been sent at each Wait and
// fails every Wait after the first allow calls.
type countingPacer struct {
	mu     sync.Mutex
	allow  int
	sent   func() int
	atWait []int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.atWait = append(p.atWait, p.sent())
	if p.allow >= 0 && len(p.atWait) > p.allow {
		return errors.New("rate limit budget exhausted")
	}
	return nil
}

func (p *countingPacer) waits() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.atWait...)
}

func pacedServer(t *testing.T, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestCoinGeckoWaitsBeforeEveryBatch(t *testing.T) {
	srv, rec := pacedServer(t, `{}`)
	pacer := &countingPacer{allow: -1, sent: rec.count}

	g := NewCoinGecko(config.CoinGeckoConfig{URL: srv.URL, BatchSize: 2}, oracleClient("coingecko"), pacer)
	g.TokenPrices(context.Background(), chain.Ethereum, []string{usdt, usdc, dai, link, uni})

	got := pacer.waits()
	if len(got) != 3 || rec.count() != 3 {
		t.Fatalf("expected 3 waits and 3 batches, got waits %v and %d requests", got, rec.count())
	}
	for i, sent := range got {
		if sent != i {
			t.Fatalf("wait %d happened after %d requests, want %d", i, sent, i)
		}
	}
}

func TestCoinGeckoStopsWhenPacerFails(t *testing.T) {
	srv, rec := pacedServer(t, `{"`+usdt+`":{"usd":1}}`)
	pacer := &countingPacer{allow: 1, sent: rec.count}

	g := NewCoinGecko(config.CoinGeckoConfig{URL: srv.URL, BatchSize: 2}, oracleClient("coingecko"), pacer)
	prices := g.TokenPrices(context.Background(), chain.Ethereum, []string{usdt, usdc, dai, link, uni})

	if rec.count() != 1 || len(pacer.waits()) != 2 {
		t.Fatalf("expected 1 batch before stopping, got %d requests and %d waits", rec.count(), len(pacer.waits()))
	}
	if len(prices) != 1 || prices[usdt].USDPrice != 1 {
		t.Fatalf("first batch should still be priced: %+v", prices)
	}
}

func TestChainbaseWaitsBeforeEveryRequest(t *testing.T) {
	srv, rec := pacedServer(t, `{"code":0,"data":{"price":2}}`)
	pacer := &countingPacer{allow: -1, sent: rec.count}

	b := NewChainbase(config.ChainbaseConfig{URL: srv.URL, APIKey: "cb"}, oracleClient("chainbase"), pacer)
	b.TokenPrices(context.Background(), chain.Ethereum, []string{usdt, usdc, dai})

	got := pacer.waits()
	if len(got) != 3 || rec.count() != 3 {
		t.Fatalf("expected 3 waits and 3 requests, got waits %v and %d requests", got, rec.count())
	}
	for i, sent := range got {
		if sent != i {
			t.Fatalf("wait %d happened after %d requests, want %d", i, sent, i)
		}
	}
}

func TestChainbaseStopsWhenPacerFails(t *testing.T) {
	srv, rec := pacedServer(t, `{"code":0,"data":{"price":2}}`)
	pacer := &countingPacer{allow: 2, sent: rec.count}

	b := NewChainbase(config.ChainbaseConfig{URL: srv.URL, APIKey: "cb"}, oracleClient("chainbase"), pacer)
	prices := b.TokenPrices(context.Background(), chain.Ethereum, []string{usdt, usdc, dai})

	if rec.count() != 2 || len(prices) != 2 {
		t.Fatalf("expected 2 priced tokens before stopping, got %d requests and %+v", rec.count(), prices)
	}
	if _, ok := prices[dai]; ok {
		t.Fatal("token after the failed wait should not be priced")
	}
}
