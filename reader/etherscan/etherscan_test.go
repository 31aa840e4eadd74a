package etherscan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"walletscope/config"
	"walletscope/models"
	"walletscope/reader"
)

const (
	holder = "0x000000000000000000000000000000000000dEaD"
	other  = "0x1111111111111111111111111111111111111111"
	usdt   = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	link   = "0x514910771af9ca656af840dff83e8264ecf986ca"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := reader.NewClient("etherscan", config.ReaderConfig{Timeout: time.Second})
	return New(config.EtherscanConfig{URL: srv.URL, APIKey: "key"}, client)
}

func TestNativeBalance(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("chainid") != "1" || q.Get("module") != "account" || q.Get("action") != "balance" || q.Get("apikey") != "key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"status":"1","message":"OK","result":"1500000000000000000"}`))
	})
	bal, err := p.NativeBalance(context.Background(), holder)
	if err != nil || bal != 1.5 {
		t.Fatalf("got %v, %v", bal, err)
	}
}

func TestTokenBalancesNetsTransfers(t *testing.T) {
	body := `{"status":"1","message":"OK","result":[
		{"from":"` + other + `","to":"0x000000000000000000000000000000000000dead","contractAddress":"` + usdt + `","tokenSymbol":"USDT","tokenDecimal":"6","value":"5000000"},
		{"from":"` + holder + `","to":"` + other + `","contractAddress":"` + usdt + `","tokenSymbol":"USDT","tokenDecimal":"6","value":"2000000"},
		{"from":"` + other + `","to":"` + holder + `","contractAddress":"` + link + `","tokenSymbol":"LINK","tokenDecimal":"18","value":"100"},
		{"from":"` + holder + `","to":"` + other + `","contractAddress":"` + link + `","tokenSymbol":"LINK","tokenDecimal":"18","value":"100"},
		{"from":"` + holder + `","to":"` + holder + `","contractAddress":"` + usdt + `","tokenSymbol":"USDT","tokenDecimal":"6","value":"999"}
	]}`
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "tokentx" {
			t.Errorf("unexpected action %s", r.URL.Query().Get("action"))
		}
		w.Write([]byte(body))
	})

	tokens, err := p.TokenBalances(context.Background(), holder)
	if err != nil {
		t.Fatalf("TokenBalances: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected only USDT to remain, got %+v", tokens)
	}
	if tokens[0].Identifier != usdt || tokens[0].RawBalance.String() != "3000000" || tokens[0].Decimals != 6 {
		t.Fatalf("unexpected token %+v", tokens[0])
	}
}

func TestNoTransactionsIsEmpty(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"No transactions found","result":[]}`))
	})
	tokens, err := p.TokenBalances(context.Background(), holder)
	if err != nil || len(tokens) != 0 {
		t.Fatalf("got %v, %v", tokens, err)
	}
}

func TestNotOKDegrades(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Invalid API Key"}`))
	})
	bal, err := p.NativeBalance(context.Background(), holder)
	if err != nil || bal != 0 {
		t.Fatalf("got %v, %v", bal, err)
	}
}

func TestRateLimitIsUnavailable(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`))
	})
	if _, err := p.NativeBalance(context.Background(), holder); !errors.Is(err, models.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
