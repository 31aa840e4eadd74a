package units

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"walletscope/internal/chain"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad integer %q", s)
	}
	return n
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		want     float64
	}{
		{"500", 2, 5.0},
		{"1000000", 6, 1.0},
		{"12345678", 6, 12.345678},
		{"1", 18, 1e-18},
		{"2500000000000000000", 18, 2.5},
		{"1500000000", 9, 1.5},
		{"42", 0, 42},
		{"0", 6, 0},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639935", 18, 1.157920892373162e59},
	}
	for _, c := range cases {
		got, err := Normalize(mustBig(t, c.raw), c.decimals)
		if err != nil {
			t.Fatalf("Normalize(%s, %d): %v", c.raw, c.decimals, err)
		}
		if math.Abs(got-c.want) > math.Abs(c.want)*1e-12 {
			t.Errorf("Normalize(%s, %d) = %v, want %v", c.raw, c.decimals, got, c.want)
		}
	}
}

func TestNormalizeMatchesDivision(t *testing.T) {
	for d := 0; d <= 18; d++ {
		for _, r := range []int64{0, 1, 7, 999, 123456789, 1 << 40} {
			got, err := Normalize(big.NewInt(r), d)
			if err != nil {
				t.Fatalf("Normalize(%d, %d): %v", r, d, err)
			}
			want := float64(r) / math.Pow10(d)
			if math.Abs(got-want) > math.Abs(want)*1e-12 {
				t.Errorf("Normalize(%d, %d) = %v, want %v", r, d, got, want)
			}
		}
	}
}

func TestNormalizeZeroDecimalsIsIdentity(t *testing.T) {
	got, err := Normalize(big.NewInt(987654321), 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != 987654321 {
		t.Fatalf("got %v, want 987654321", got)
	}
}

func TestNormalizeNegativeDecimals(t *testing.T) {
	if _, err := Normalize(big.NewInt(1), -1); !errors.Is(err, ErrInvalidDecimals) {
		t.Fatalf("expected ErrInvalidDecimals, got %v", err)
	}
}

func TestNormalizeOversizedDecimals(t *testing.T) {
	for _, d := range []int{MaxDecimals + 1, 1 << 31, 1 << 32} {
		if got, err := Normalize(big.NewInt(5_000_000), d); !errors.Is(err, ErrInvalidDecimals) {
			t.Fatalf("Normalize(5e6, %d) = %v, %v; want ErrInvalidDecimals", d, got, err)
		}
	}
	got, err := Normalize(big.NewInt(5_000_000), MaxDecimals)
	if err != nil {
		t.Fatalf("Normalize at MaxDecimals: %v", err)
	}
	if got >= 1e-200 {
		t.Fatalf("Normalize(5e6, %d) = %v, want a vanishing amount", MaxDecimals, got)
	}
}

func TestNormalizeNil(t *testing.T) {
	got, err := Normalize(nil, 6)
	if err != nil || got != 0 {
		t.Fatalf("Normalize(nil) = %v, %v", got, err)
	}
}

func TestNative(t *testing.T) {
	if got := Native(mustBig(t, "1000000000000000000"), chain.Ethereum); got != 1 {
		t.Errorf("1e18 wei = %v ETH, want 1", got)
	}
	if got := Native(big.NewInt(2_500_000_000), chain.Solana); got != 2.5 {
		t.Errorf("2.5e9 lamports = %v SOL, want 2.5", got)
	}
}
