// Package reader turns third-party balance APIs into the canonical
// RawTokenBalance form. Each variant lives in its own sub-package and
// shares the retrying HTTP Client defined here.
package reader

import (
	"context"

	"walletscope/internal/chain"
	"walletscope/models"
)

// BalanceProvider enumerates the native and fungible token balances of
// one address on one chain.
type BalanceProvider interface {
	Name() string
	Chain() chain.Chain
	// NativeBalance returns the balance in whole units (ETH, SOL).
	NativeBalance(ctx context.Context, address string) (float64, error)
	// TokenBalances returns consolidated, non-zero balances with
	// identifiers that pass the chain's address predicate.
	TokenBalances(ctx context.Context, address string) ([]models.RawTokenBalance, error)
}
