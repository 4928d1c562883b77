package mocks

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

// OrderSource is an in-memory order.Source.
type OrderSource struct {
	FetchSellOrderFunc func(ctx context.Context, contract common.Address, tokenID *big.Int, standard order.Standard) (*order.Order, error)

	calls atomic.Int64
	mu    sync.Mutex
	seen  []string
}

var _ order.Source = &OrderSource{}

func (m *OrderSource) FetchSellOrder(ctx context.Context, contract common.Address, tokenID *big.Int, standard order.Standard) (*order.Order, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.seen = append(m.seen, tokenID.String())
	m.mu.Unlock()
	if m.FetchSellOrderFunc != nil {
		return m.FetchSellOrderFunc(ctx, contract, tokenID, standard)
	}
	return nil, fmt.Errorf("token %s: %w", tokenID, order.ErrOrderNotFound)
}

// WithOrders serves the given orders keyed by token id.
func (m *OrderSource) WithOrders(orders ...order.Order) {
	byID := make(map[string]order.Order, len(orders))
	for _, o := range orders {
		byID[o.TokenID.String()] = o
	}
	m.FetchSellOrderFunc = func(_ context.Context, _ common.Address, tokenID *big.Int, _ order.Standard) (*order.Order, error) {
		o, ok := byID[tokenID.String()]
		if !ok {
			return nil, fmt.Errorf("token %s: %w", tokenID, order.ErrOrderNotFound)
		}
		return &o, nil
	}
}

// Calls returns how many times FetchSellOrder was invoked.
func (m *OrderSource) Calls() int { return int(m.calls.Load()) }

// SellOrder returns a fillable fixed-price native-currency sell order.
func SellOrder(contract common.Address, tokenID int64, standard order.Standard, quantity int64, priceWei int64) order.Order {
	seller := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	return order.Order{
		Exchange:           common.HexToAddress("0x7be8076f4ea4a4ad08075c2508e481d6c946d12b"),
		Maker:              seller,
		FeeRecipient:       common.HexToAddress("0x5b3256965e7c3cf26e11fcaf296dfc8807c01073"),
		Target:             contract,
		MakerRelayerFee:    big.NewInt(250),
		TakerRelayerFee:    big.NewInt(0),
		MakerProtocolFee:   big.NewInt(0),
		TakerProtocolFee:   big.NewInt(0),
		BasePrice:          big.NewInt(priceWei),
		CurrentPrice:       big.NewInt(priceWei),
		Extra:              big.NewInt(0),
		ListingTime:        1_600_000_000,
		Salt:               big.NewInt(42 + tokenID),
		FeeMethod:          order.FeeMethodSplitFee,
		Side:               order.SideSell,
		SaleKind:           order.SaleKindFixedPrice,
		Calldata:           common.FromHex("0x23b872dd00000000000000000000000000000000000000000000000000000000000000a10000000000000000000000000000000000000000000000000000000000000000"),
		ReplacementPattern: common.FromHex("0x000000000000000000000000000000000000000000000000000000000000000000000000ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"),
		V:                  27,
		R:                  common.HexToHash("0x01"),
		S:                  common.HexToHash("0x02"),
		Contract:           contract,
		TokenID:            big.NewInt(tokenID),
		Standard:           standard,
		Quantity:           big.NewInt(quantity),
	}
}
