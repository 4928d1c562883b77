package opensea

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

type ordersResponse struct {
	Count  uint64      `json:"count"`
	Orders []wireOrder `json:"orders"`
}

type user struct {
	Address common.Address `json:"address"`
}

type assetID struct {
	ID      decimal.Decimal `json:"id"`
	Address common.Address  `json:"address"`
}

type metadata struct {
	Asset  assetID `json:"asset"`
	Schema string  `json:"schema"`
}

// wireOrder is an orderbook listing as served by /wyvern/v1/orders. Amounts
// arrive as decimal strings.
type wireOrder struct {
	ID           uint64         `json:"id"`
	Exchange     common.Address `json:"exchange"`
	Maker        user           `json:"maker"`
	Taker        user           `json:"taker"`
	FeeRecipient user           `json:"fee_recipient"`
	Target       common.Address `json:"target"`
	StaticTarget common.Address `json:"static_target"`
	PaymentToken common.Address `json:"payment_token"`

	MakerRelayerFee  decimal.Decimal `json:"maker_relayer_fee"`
	TakerRelayerFee  decimal.Decimal `json:"taker_relayer_fee"`
	MakerProtocolFee decimal.Decimal `json:"maker_protocol_fee"`
	TakerProtocolFee decimal.Decimal `json:"taker_protocol_fee"`

	BasePrice    decimal.Decimal `json:"base_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Extra        decimal.Decimal `json:"extra"`
	Salt         decimal.Decimal `json:"salt"`
	Quantity     decimal.Decimal `json:"quantity"`

	ListingTime    uint64 `json:"listing_time"`
	ExpirationTime uint64 `json:"expiration_time"`

	FeeMethod uint8 `json:"fee_method"`
	Side      uint8 `json:"side"`
	SaleKind  uint8 `json:"sale_kind"`
	HowToCall uint8 `json:"how_to_call"`

	Calldata           hexutil.Bytes `json:"calldata"`
	ReplacementPattern hexutil.Bytes `json:"replacement_pattern"`
	StaticExtradata    hexutil.Bytes `json:"static_extradata"`

	V uint8       `json:"v"`
	R common.Hash `json:"r"`
	S common.Hash `json:"s"`

	Cancelled     bool `json:"cancelled"`
	Finalized     bool `json:"finalized"`
	MarkedInvalid bool `json:"marked_invalid"`

	Metadata metadata `json:"metadata"`
}

// toOrder converts the listing. Fractional amounts are truncated to wei.
func (w *wireOrder) toOrder() (order.Order, error) {
	std, err := order.ParseStandard(w.Metadata.Schema)
	if err != nil {
		return order.Order{}, fmt.Errorf("order %d: %w", w.ID, err)
	}
	for name, d := range map[string]decimal.Decimal{
		"base_price": w.BasePrice, "current_price": w.CurrentPrice, "quantity": w.Quantity, "asset id": w.Metadata.Asset.ID,
	} {
		if d.IsNegative() {
			return order.Order{}, fmt.Errorf("order %d: negative %s", w.ID, name)
		}
	}
	return order.Order{
		Exchange:           w.Exchange,
		Maker:              w.Maker.Address,
		Taker:              w.Taker.Address,
		FeeRecipient:       w.FeeRecipient.Address,
		Target:             w.Target,
		StaticTarget:       w.StaticTarget,
		PaymentToken:       w.PaymentToken,
		MakerRelayerFee:    wei(w.MakerRelayerFee),
		TakerRelayerFee:    wei(w.TakerRelayerFee),
		MakerProtocolFee:   wei(w.MakerProtocolFee),
		TakerProtocolFee:   wei(w.TakerProtocolFee),
		BasePrice:          wei(w.BasePrice),
		CurrentPrice:       wei(w.CurrentPrice),
		Extra:              wei(w.Extra),
		ListingTime:        w.ListingTime,
		ExpirationTime:     w.ExpirationTime,
		Salt:               wei(w.Salt),
		FeeMethod:          w.FeeMethod,
		Side:               w.Side,
		SaleKind:           w.SaleKind,
		HowToCall:          w.HowToCall,
		Calldata:           w.Calldata,
		ReplacementPattern: w.ReplacementPattern,
		StaticExtradata:    w.StaticExtradata,
		V:                  w.V,
		R:                  w.R,
		S:                  w.S,
		Contract:           w.Metadata.Asset.Address,
		TokenID:            wei(w.Metadata.Asset.ID),
		Standard:           std,
		Quantity:           wei(w.Quantity),
		Cancelled:          w.Cancelled,
		Finalized:          w.Finalized,
		MarkedInvalid:      w.MarkedInvalid,
	}, nil
}

func wei(d decimal.Decimal) *big.Int {
	return d.Truncate(0).BigInt()
}
