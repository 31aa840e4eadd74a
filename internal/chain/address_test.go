package chain

import (
	"errors"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	cases := []struct {
		chain Chain
		addr  string
		valid bool
	}{
		{Ethereum, "0xdAC17F958D2ee523a2206206994597C13D831ec7", true},
		{Ethereum, "0x000000000000000000000000000000000000dead", true},
		{Ethereum, "  0x000000000000000000000000000000000000dead  ", true},
		{Ethereum, "000000000000000000000000000000000000dead", false},
		{Ethereum, "0x1234", false},
		{Ethereum, "0xZZ0000000000000000000000000000000000dead", false},
		{Ethereum, "", false},
		{Ethereum, "   ", false},
		{Solana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", true},
		{Solana, "So11111111111111111111111111111111111111112", true},
		{Solana, "0x000000000000000000000000000000000000dead", false},
		{Solana, "abc", false},
		{Solana, "", false},
		{Chain("btc"), "bc1qexample", false},
	}
	for _, c := range cases {
		err := ValidateAddress(c.chain, c.addr)
		if (err == nil) != c.valid {
			t.Errorf("ValidateAddress(%s, %q) = %v, want valid=%v", c.chain, c.addr, err, c.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ValidateAddress(%s, %q) error %v does not wrap ErrInvalidAddress", c.chain, c.addr, err)
		}
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Chain
		ok   bool
	}{
		{"eth", Ethereum, true},
		{"Ethereum", Ethereum, true},
		{" sol ", Solana, true},
		{"solana", Solana, true},
		{"btc", "", false},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if (err == nil) != c.ok || got != c.want {
			t.Errorf("Parse(%q) = %q, %v; want %q ok=%v", c.in, got, err, c.want, c.ok)
		}
	}
}

func TestChainFacts(t *testing.T) {
	if Ethereum.NativeDecimals() != 18 || Solana.NativeDecimals() != 9 {
		t.Fatalf("unexpected native decimals: eth=%d sol=%d", Ethereum.NativeDecimals(), Solana.NativeDecimals())
	}
	if Ethereum.CanonicalID("0xABC") != "0xabc" {
		t.Errorf("evm ids should be lowercased")
	}
	if Solana.CanonicalID("AbC") != "AbC" {
		t.Errorf("solana ids must keep case")
	}
}
