// Package briber binds the on-chain consistency contract that reverts a bundle
// unless the buyer ends up holding the expected tokens, and otherwise forwards
// the attached value to the block builder.
package briber

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

// Gas is the fixed limit for the verifier call; it cannot be estimated before
// the settlements ahead of it have executed.
const Gas uint64 = 200_000

// ABIJSON is the verifier contract interface.
const ABIJSON = `[
  {"type":"constructor","stateMutability":"nonpayable","inputs":[]},
  {"type":"function","name":"verifyOwnershipAndPay721","stateMutability":"payable","outputs":[],"inputs":[
    {"name":"_nftContract","type":"address"},
    {"name":"_owner","type":"address"},
    {"name":"_nftIds","type":"uint256[]"}
  ]},
  {"type":"function","name":"verifyOwnershipAndPay1155","stateMutability":"payable","outputs":[],"inputs":[
    {"name":"_nftContract","type":"address"},
    {"name":"_owner","type":"address"},
    {"name":"_nftIds","type":"uint256[]"},
    {"name":"_expectedBalances","type":"uint256[]"}
  ]}
]`

var (
	ErrNoReceiver     = errors.New("verifier address is zero")
	ErrNoTokens       = errors.New("no token ids to verify")
	ErrMissingBalance = errors.New("expected balance missing")
	ErrNegativeBribe  = errors.New("bribe is negative")
)

var contractABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(ABIJSON))
	if err != nil {
		panic(err)
	}
	contractABI = parsed
}

// ABI returns the parsed verifier interface.
func ABI() abi.ABI { return contractABI }

// Expectation is the balance the owner must hold for one token id after the
// settlements ran. ERC721 ignores Balance: ownership is the check.
type Expectation struct {
	TokenID *big.Int
	Balance *big.Int
}

// VerifyParams describes one verifier call.
type VerifyParams struct {
	Verifier common.Address
	Standard order.Standard
	NFT      common.Address
	Owner    common.Address
	Expected []Expectation
	Bribe    *big.Int
}

// VerifierCall is the encoded, unsigned verifier call.
type VerifierCall struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	Gas   uint64
}

// Encode builds the verifier call. It performs no verification itself.
func Encode(p VerifyParams) (VerifierCall, error) {
	if p.Verifier == (common.Address{}) {
		return VerifierCall{}, ErrNoReceiver
	}
	if len(p.Expected) == 0 {
		return VerifierCall{}, ErrNoTokens
	}
	bribe := new(big.Int)
	if p.Bribe != nil {
		if p.Bribe.Sign() < 0 {
			return VerifierCall{}, ErrNegativeBribe
		}
		bribe.Set(p.Bribe)
	}

	ids := make([]*big.Int, len(p.Expected))
	for i, e := range p.Expected {
		ids[i] = e.TokenID
	}

	var (
		data []byte
		err  error
	)
	switch p.Standard {
	case order.ERC721:
		data, err = contractABI.Pack("verifyOwnershipAndPay721", p.NFT, p.Owner, ids)
	case order.ERC1155:
		balances := make([]*big.Int, len(p.Expected))
		for i, e := range p.Expected {
			if e.Balance == nil {
				return VerifierCall{}, fmt.Errorf("token %s: %w", e.TokenID, ErrMissingBalance)
			}
			balances[i] = e.Balance
		}
		data, err = contractABI.Pack("verifyOwnershipAndPay1155", p.NFT, p.Owner, ids, balances)
	default:
		return VerifierCall{}, order.ErrUnsupportedStandard
	}
	if err != nil {
		return VerifierCall{}, fmt.Errorf("pack verifier call: %w", err)
	}
	return VerifierCall{To: p.Verifier, Data: data, Value: bribe, Gas: Gas}, nil
}
