package chain

import (
	"fmt"
	"strings"
)

// Chain identifies a supported blockchain.
type Chain string

const (
	Ethereum Chain = "eth"
	Solana   Chain = "sol"
)

type chainParams struct {
	nativeSymbol   string
	nativeDecimals int
	coingeckoID    string
	platform       string
	binanceSymbol  string
}

// Native precision is fixed per chain: wei -> ether, lamports -> SOL.
var params = map[Chain]chainParams{
	Ethereum: {
		nativeSymbol:   "ETH",
		nativeDecimals: 18,
		coingeckoID:    "ethereum",
		platform:       "ethereum",
		binanceSymbol:  "ETHUSDT",
	},
	Solana: {
		nativeSymbol:   "SOL",
		nativeDecimals: 9,
		coingeckoID:    "solana",
		platform:       "solana",
		binanceSymbol:  "SOLUSDT",
	},
}

var aliases = map[string]Chain{
	"eth":      Ethereum,
	"ethereum": Ethereum,
	"evm":      Ethereum,
	"sol":      Solana,
	"solana":   Solana,
}

// Parse resolves a chain name or alias.
func Parse(s string) (Chain, error) {
	c, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("chain not supported: %q", s)
	}
	return c, nil
}

// All returns the supported chains in a stable order.
func All() []Chain {
	return []Chain{Ethereum, Solana}
}

func (c Chain) String() string { return string(c) }

// Supported reports whether c is a known chain.
func (c Chain) Supported() bool {
	_, ok := params[c]
	return ok
}

// NativeSymbol returns the ticker of the chain's native coin.
func (c Chain) NativeSymbol() string { return params[c].nativeSymbol }

// NativeDecimals returns the fixed precision of the native coin.
func (c Chain) NativeDecimals() int { return params[c].nativeDecimals }

// CoinGeckoID is the CoinGecko coin id of the native coin.
func (c Chain) CoinGeckoID() string { return params[c].coingeckoID }

// Platform is the CoinGecko asset platform used for token lookups.
func (c Chain) Platform() string { return params[c].platform }

// BinanceSymbol is the USDT-quoted spot ticker of the native coin.
func (c Chain) BinanceSymbol() string { return params[c].binanceSymbol }

// CaseSensitiveIDs reports whether token identifiers must be compared
// byte for byte. EVM hex addresses are not; Solana base58 mints are.
func (c Chain) CaseSensitiveIDs() bool { return c == Solana }

// CanonicalID returns the identifier form used as a map key.
func (c Chain) CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	if c.CaseSensitiveIDs() {
		return id
	}
	return strings.ToLower(id)
}
