package main

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var weiPerEther = decimal.New(1, 18)

func formatEther(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -18).StringFixed(6)
}

// parseETH converts a decimal ETH amount to wei. Digits past 18 decimals are
// dropped.
func parseETH(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("bad ETH amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, errors.New("ETH amount must not be negative")
	}
	return d.Mul(weiPerEther).Truncate(0).BigInt(), nil
}
