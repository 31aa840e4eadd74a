package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for empty or malformed addresses.
var ErrInvalidAddress = errors.New("invalid address")

const solanaPublicKeyLen = 32

// ValidateAddress checks addr against the chain's address format.
func ValidateAddress(c Chain, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	switch c {
	case Ethereum:
		// common.IsHexAddress also accepts the bare 40-char form
		if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
			return fmt.Errorf("%w: %s address must start with 0x", ErrInvalidAddress, c)
		}
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%w: %q is not a 20-byte hex address", ErrInvalidAddress, addr)
		}
		return nil
	case Solana:
		decoded := base58.Decode(addr)
		if len(decoded) != solanaPublicKeyLen {
			return fmt.Errorf("%w: %q is not a base58 public key", ErrInvalidAddress, addr)
		}
		return nil
	default:
		return fmt.Errorf("%w: chain %q not supported", ErrInvalidAddress, c)
	}
}

// Valid is the boolean form of ValidateAddress.
func Valid(c Chain, addr string) bool {
	return ValidateAddress(c, addr) == nil
}
