package units

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"walletscope/internal/chain"
)

// MaxDecimals bounds the decimal-places count a token may declare.
const MaxDecimals = 255

// ErrInvalidDecimals is returned for a decimal-places count outside
// [0, MaxDecimals].
var ErrInvalidDecimals = errors.New("invalid decimals")

// Normalize converts a raw integer balance into a whole-unit amount:
// raw / 10^decimals. The division is exact; only the final conversion
// to float64 rounds. decimals == 0 returns raw unchanged.
func Normalize(raw *big.Int, decimals int) (float64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}
	if raw == nil || raw.Sign() == 0 {
		return 0, nil
	}
	amount, _ := decimal.NewFromBigInt(raw, int32(-decimals)).Float64()
	return amount, nil
}

// Native converts a native-coin balance (wei, lamports) using the chain's
// fixed precision.
func Native(raw *big.Int, c chain.Chain) float64 {
	amount, _ := Normalize(raw, c.NativeDecimals())
	return amount
}
