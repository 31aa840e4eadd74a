package models

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexInt decodes an arbitrary-precision integer that providers encode as
// a JSON number, a decimal string or a 0x-prefixed hex string. Null and
// empty values decode to nil.
type FlexInt struct {
	*big.Int
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		f.Int = nil
		return nil
	}
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" {
		f.Int = nil
		return nil
	}
	n, err := ParseInteger(s)
	if err != nil {
		return err
	}
	f.Int = n
	return nil
}

// MarshalJSON writes the value as a decimal string, or null when unset.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if f.Int == nil {
		return []byte("null"), nil
	}
	return []byte(`"` + f.Int.String() + `"`), nil
}

// Big returns a copy of the value, or zero when unset.
func (f FlexInt) Big() *big.Int {
	if f.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(f.Int)
}

// IntOr returns the value as an int, or def when unset or out of range.
func (f FlexInt) IntOr(def int) int {
	if f.Int == nil || !f.Int.IsInt64() {
		return def
	}
	return int(f.Int.Int64())
}

// ParseInteger parses a decimal, hex or exponent-notation integer.
func ParseInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		h := s[2:]
		if h == "" {
			return new(big.Int), nil
		}
		n, ok := new(big.Int).SetString(h, 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex integer: %s", s)
		}
		return n, nil
	}

	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n, nil
	}

	// some APIs serialise large integers as 1.2e+21
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid integer: %s", s)
	}
	if !d.IsInteger() {
		return nil, fmt.Errorf("not an integer: %s", s)
	}
	return d.BigInt(), nil
}
