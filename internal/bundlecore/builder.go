package bundlecore

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Call is one unsigned call of the bundle.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	Gas   uint64
	Label string
}

// Fees are shared by every transaction of a bundle.
type Fees struct {
	TipCap *big.Int
	FeeCap *big.Int
}

// Bundle is the ordered, signed sequence. Txs[i] carries nonce BaseNonce+i.
type Bundle struct {
	From      common.Address
	BaseNonce uint64
	Txs       types.Transactions
	Labels    []string
}

// RawHex returns the signed transactions as 0x-prefixed hex.
func (b *Bundle) RawHex() []string {
	out := make([]string, len(b.Txs))
	for i, tx := range b.Txs {
		out[i] = txAsHex(tx)
	}
	return out
}

// TotalValue is the sum of attached values.
func (b *Bundle) TotalValue() *big.Int {
	sum := new(big.Int)
	for _, tx := range b.Txs {
		sum.Add(sum, tx.Value())
	}
	return sum
}

// MaxCost is value plus gas × fee cap over all transactions.
func (b *Bundle) MaxCost() *big.Int {
	sum := new(big.Int)
	for _, tx := range b.Txs {
		sum.Add(sum, tx.Cost())
	}
	return sum
}

// Label returns the label of tx i or "".
func (b *Bundle) Label(i int) string {
	if i < len(b.Labels) {
		return b.Labels[i]
	}
	return ""
}

// AddressFromKey derives the signer address without building anything.
func AddressFromKey(keyHex string) (common.Address, error) {
	prv, err := hexToECDSAPriv(keyHex)
	if err != nil {
		return common.Address{}, &SigningError{Index: -1, Err: err}
	}
	return gethcrypto.PubkeyToAddress(prv.PublicKey), nil
}

// BuildBundle signs calls in order with nonces baseNonce, baseNonce+1, ...
// It does no network access.
func BuildBundle(keyHex string, chainID *big.Int, baseNonce uint64, fees Fees, calls []Call) (*Bundle, error) {
	if len(calls) == 0 {
		return nil, ErrEmptyBundle
	}
	prv, err := hexToECDSAPriv(keyHex)
	if err != nil {
		return nil, &SigningError{Index: -1, Err: err}
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, &SigningError{Index: -1, Err: errors.New("chain id is not set")}
	}
	if err := fees.validate(); err != nil {
		return nil, err
	}
	return signAll(prv, chainID, baseNonce, fees, calls)
}

func signAll(prv *ecdsa.PrivateKey, chainID *big.Int, baseNonce uint64, fees Fees, calls []Call) (*Bundle, error) {
	b := &Bundle{
		From:      gethcrypto.PubkeyToAddress(prv.PublicKey),
		BaseNonce: baseNonce,
		Txs:       make(types.Transactions, 0, len(calls)),
		Labels:    make([]string, 0, len(calls)),
	}
	for i, c := range calls {
		to := c.To
		tx := buildDynamicTx(chainID, baseNonce+uint64(i), &to, c.Value, c.Gas, fees.TipCap, fees.FeeCap, c.Data)
		signed, err := signTx(tx, chainID, prv)
		if err != nil {
			return nil, &SigningError{Index: i, Err: err}
		}
		b.Txs = append(b.Txs, signed)
		b.Labels = append(b.Labels, c.Label)
	}
	return b, nil
}

func (f Fees) validate() error {
	if f.TipCap == nil || f.FeeCap == nil || f.TipCap.Sign() < 0 || f.FeeCap.Sign() <= 0 {
		return ErrInvalidFees
	}
	if f.FeeCap.Cmp(f.TipCap) < 0 {
		return ErrInvalidFees
	}
	return nil
}
