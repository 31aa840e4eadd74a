package models

import (
	"errors"

	"walletscope/internal/chain"
)

var (
	// ErrInvalidAddress is returned for empty or malformed addresses. It is
	// the only validation failure surfaced to callers.
	ErrInvalidAddress = chain.ErrInvalidAddress

	// ErrProviderUnavailable is returned when a balance provider cannot be
	// reached after its retry policy is exhausted.
	ErrProviderUnavailable = errors.New("balance provider unavailable")

	// ErrPricingUnavailable marks price oracle failures. It is logged and
	// degrades values to zero; the aggregator never returns it.
	ErrPricingUnavailable = errors.New("pricing unavailable")

	// ErrUnsupportedChain is returned for chains without a configured pipeline.
	ErrUnsupportedChain = errors.New("chain not supported")
)
