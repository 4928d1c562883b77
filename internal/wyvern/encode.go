package wyvern

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

// Default gas limits when no estimate is available.
const (
	GasERC721  uint64 = 250_000
	GasERC1155 uint64 = 300_000
)

const inverseBasisPoint = 10_000

// FillParams carries everything about the buyer side of a match. Salt and
// ListingTime are inputs so that encoding stays deterministic.
type FillParams struct {
	Buyer     common.Address
	Recipient common.Address
	// Currency is what the buyer funds the call with; zero means the native coin.
	Currency    common.Address
	ListingTime uint64
	Salt        *big.Int
	Gas         uint64
}

// SettlementCall is one encoded atomicMatch_ call, ready to be signed.
type SettlementCall struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	Gas      uint64
	TokenID  *big.Int
	Quantity uint64
}

// EncodingError reports why an order could not be turned into a call.
type EncodingError struct {
	TokenID *big.Int
	Err     error
}

func (e *EncodingError) Error() string {
	id := "?"
	if e.TokenID != nil {
		id = e.TokenID.String()
	}
	return fmt.Sprintf("encode token %s: %v", id, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Encode builds the atomicMatch_ call that fills quantity units of the sell
// order o. It never touches chain state.
func Encode(o *order.Order, quantity uint64, p FillParams) (SettlementCall, error) {
	fail := func(err error) (SettlementCall, error) {
		return SettlementCall{}, &EncodingError{TokenID: o.TokenID, Err: err}
	}
	if o.TokenID == nil || o.TokenID.Sign() < 0 {
		return fail(order.ErrInvalidTokenID)
	}
	if o.PaymentToken != p.Currency {
		return fail(order.ErrCurrencyMismatch)
	}
	if quantity == 0 {
		return fail(order.ErrInvalidQuantity)
	}

	recipient := p.Recipient
	if recipient == (common.Address{}) {
		recipient = p.Buyer
	}

	var (
		calldata []byte
		err      error
		gas      uint64
	)
	price := new(big.Int).Set(o.Price())

	switch o.Standard {
	case order.ERC721:
		if quantity != 1 {
			return fail(order.ErrInvalidQuantity)
		}
		calldata, err = transferABI.Pack("transferFrom", common.Address{}, recipient, o.TokenID)
		gas = GasERC721
	case order.ERC1155:
		available := o.Available()
		q := new(big.Int).SetUint64(quantity)
		if q.Cmp(available) > 0 {
			return fail(order.ErrInsufficientQuantity)
		}
		calldata, err = transferABI.Pack("safeTransferFrom", common.Address{}, recipient, o.TokenID, q, []byte{})
		if q.Cmp(available) < 0 {
			price.Mul(price, q)
			price.Div(price, available)
		}
		gas = GasERC1155
	default:
		return fail(order.ErrUnsupportedStandard)
	}
	if err != nil {
		return fail(fmt.Errorf("pack transfer: %w", err))
	}
	if p.Gas > 0 {
		gas = p.Gas
	}

	buy := counterOrder(o, calldata, fromMask(len(calldata)), price, p)
	data, err := packMatch(&buy, o)
	if err != nil {
		return fail(fmt.Errorf("pack atomicMatch_: %w", err))
	}

	to := o.Exchange
	if to == (common.Address{}) {
		to = ExchangeAddress
	}
	return SettlementCall{
		To:       to,
		Data:     data,
		Value:    takerValue(o, price),
		Gas:      gas,
		TokenID:  new(big.Int).Set(o.TokenID),
		Quantity: quantity,
	}, nil
}

// counterOrder builds the buy side matching sell. The buyer is msg.sender so
// the buy order carries no signature.
func counterOrder(sell *order.Order, calldata, pattern []byte, price *big.Int, p FillParams) order.Order {
	buy := *sell
	buy.Side = order.SideBuy
	buy.Maker = p.Buyer
	buy.Taker = sell.Maker
	buy.FeeRecipient = common.Address{}
	buy.Target = sell.Target
	if buy.Target == (common.Address{}) {
		buy.Target = sell.Contract
	}
	buy.BasePrice = price
	buy.Extra = new(big.Int)
	buy.ListingTime = p.ListingTime
	buy.ExpirationTime = 0
	buy.Salt = p.Salt
	if buy.Salt == nil {
		buy.Salt = new(big.Int)
	}
	buy.Calldata = calldata
	buy.ReplacementPattern = pattern
	buy.V = 0
	buy.R = common.Hash{}
	buy.S = common.Hash{}
	return buy
}

// fromMask marks the first argument word (the transfer source) as replaceable.
func fromMask(n int) []byte {
	mask := make([]byte, n)
	for i := 4; i < 36 && i < n; i++ {
		mask[i] = 0xff
	}
	return mask
}

func packMatch(buy, sell *order.Order) ([]byte, error) {
	addrs := [14]common.Address{
		exchangeOf(buy), buy.Maker, buy.Taker, buy.FeeRecipient, buy.Target, buy.StaticTarget, buy.PaymentToken,
		exchangeOf(sell), sell.Maker, sell.Taker, sell.FeeRecipient, sell.Target, sell.StaticTarget, sell.PaymentToken,
	}
	uints := [18]*big.Int{
		orZero(buy.MakerRelayerFee), orZero(buy.TakerRelayerFee), orZero(buy.MakerProtocolFee), orZero(buy.TakerProtocolFee),
		orZero(buy.BasePrice), orZero(buy.Extra), new(big.Int).SetUint64(buy.ListingTime), new(big.Int).SetUint64(buy.ExpirationTime), orZero(buy.Salt),
		orZero(sell.MakerRelayerFee), orZero(sell.TakerRelayerFee), orZero(sell.MakerProtocolFee), orZero(sell.TakerProtocolFee),
		orZero(sell.BasePrice), orZero(sell.Extra), new(big.Int).SetUint64(sell.ListingTime), new(big.Int).SetUint64(sell.ExpirationTime), orZero(sell.Salt),
	}
	kinds := [8]uint8{
		buy.FeeMethod, buy.Side, buy.SaleKind, buy.HowToCall,
		sell.FeeMethod, sell.Side, sell.SaleKind, sell.HowToCall,
	}
	vs := [2]uint8{buy.V, sell.V}
	rss := [5][32]byte{buy.R, buy.S, sell.R, sell.S, {}}

	return exchangeABI.Pack("atomicMatch_",
		addrs, uints, kinds,
		nonNil(buy.Calldata), nonNil(sell.Calldata),
		nonNil(buy.ReplacementPattern), nonNil(sell.ReplacementPattern),
		nonNil(buy.StaticExtradata), nonNil(sell.StaticExtradata),
		vs, rss,
	)
}

// takerValue is the native amount to attach: price plus split taker fees.
func takerValue(o *order.Order, price *big.Int) *big.Int {
	v := new(big.Int).Set(price)
	for _, fee := range []*big.Int{o.TakerRelayerFee, o.TakerProtocolFee} {
		if fee == nil || fee.Sign() == 0 {
			continue
		}
		f := new(big.Int).Mul(price, fee)
		f.Div(f, big.NewInt(inverseBasisPoint))
		v.Add(v, f)
	}
	return v
}

func exchangeOf(o *order.Order) common.Address {
	if o.Exchange == (common.Address{}) {
		return ExchangeAddress
	}
	return o.Exchange
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
