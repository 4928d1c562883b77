package order_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/nft-bundle-buy/internal/mocks"
	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

func fixedNow() time.Time { return time.Unix(1_700_000_000, 0) }

func TestResolvePreservesRequestOrder(t *testing.T) {
	src := &mocks.OrderSource{}
	src.FetchSellOrderFunc = func(_ context.Context, contract common.Address, tokenID *big.Int, standard order.Standard) (*order.Order, error) {
		// later ids answer first
		time.Sleep(time.Duration(10-tokenID.Int64()) * time.Millisecond)
		o := mocks.SellOrder(contract, tokenID.Int64(), standard, 5, 1000*tokenID.Int64())
		return &o, nil
	}
	r := &order.Resolver{Source: src, Now: fixedNow}

	req := order.PurchaseRequest{
		Standard: order.ERC1155,
		Contract: nft,
		Items: []order.Item{
			{TokenID: big.NewInt(3), Quantity: 1},
			{TokenID: big.NewInt(1), Quantity: 2},
			{TokenID: big.NewInt(7), Quantity: 5},
		},
	}
	orders, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, int64(3), orders[0].TokenID.Int64())
	assert.Equal(t, int64(1), orders[1].TokenID.Int64())
	assert.Equal(t, int64(7), orders[2].TokenID.Int64())
	assert.Equal(t, 3, src.Calls())
}

func TestResolveRejections(t *testing.T) {
	weth := common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")

	tests := []struct {
		name     string
		standard order.Standard
		quantity uint64
		currency common.Address
		mutate   func(o *order.Order)
		missing  bool
		wantErr  error
	}{
		{name: "not found", standard: order.ERC721, quantity: 1, missing: true, wantErr: order.ErrOrderNotFound},
		{name: "cancelled", standard: order.ERC721, quantity: 1, mutate: func(o *order.Order) { o.Cancelled = true }, wantErr: order.ErrOrderNotFound},
		{name: "finalized", standard: order.ERC721, quantity: 1, mutate: func(o *order.Order) { o.Finalized = true }, wantErr: order.ErrOrderNotFound},
		{name: "expired", standard: order.ERC721, quantity: 1, mutate: func(o *order.Order) { o.ExpirationTime = 1_600_000_001 }, wantErr: order.ErrOrderNotFound},
		{name: "other asset", standard: order.ERC721, quantity: 1, mutate: func(o *order.Order) { o.TokenID = big.NewInt(99) }, wantErr: order.ErrOrderNotFound},
		{name: "insufficient 1155", standard: order.ERC1155, quantity: 6, wantErr: order.ErrInsufficientQuantity},
		{name: "standard mismatch", standard: order.ERC721, quantity: 1, mutate: func(o *order.Order) { o.Standard = order.ERC1155 }, wantErr: order.ErrUnsupportedOrderKind},
		{name: "dutch auction", standard: order.ERC721, quantity: 1, mutate: func(o *order.Order) { o.SaleKind = order.SaleKindDutchAuction }, wantErr: order.ErrUnsupportedOrderKind},
		{name: "protocol fee method", standard: order.ERC721, quantity: 1, mutate: func(o *order.Order) { o.FeeMethod = order.FeeMethodProtocolFee }, wantErr: order.ErrUnsupportedOrderKind},
		{name: "erc20 payment", standard: order.ERC721, quantity: 1, mutate: func(o *order.Order) { o.PaymentToken = weth }, wantErr: order.ErrUnsupportedOrderKind},
		{name: "buyer funds weth", standard: order.ERC721, quantity: 1, currency: weth, wantErr: order.ErrCurrencyMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := mocks.SellOrder(nft, 1, tt.standard, 5, 1000)
			if tt.mutate != nil {
				tt.mutate(&o)
			}
			src := &mocks.OrderSource{}
			if !tt.missing {
				src.WithOrders(o)
			}
			r := &order.Resolver{Source: src, Currency: tt.currency, Now: fixedNow}

			_, err := r.Resolve(context.Background(), order.PurchaseRequest{
				Standard: tt.standard,
				Contract: nft,
				Items:    []order.Item{{TokenID: big.NewInt(1), Quantity: tt.quantity}},
			})
			require.ErrorIs(t, err, tt.wantErr)
			var resErr *order.ResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, 0, resErr.Index)
		})
	}
}

func TestResolveReportsEveryFailedItem(t *testing.T) {
	src := &mocks.OrderSource{}
	src.WithOrders(mocks.SellOrder(nft, 2, order.ERC1155, 1, 1000))
	r := &order.Resolver{Source: src, Now: fixedNow}

	_, err := r.Resolve(context.Background(), order.PurchaseRequest{
		Standard: order.ERC1155,
		Contract: nft,
		Items: []order.Item{
			{TokenID: big.NewInt(1), Quantity: 1},
			{TokenID: big.NewInt(2), Quantity: 3},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.ErrorIs(t, err, order.ErrInsufficientQuantity)
	assert.Contains(t, err.Error(), "item 0")
	assert.Contains(t, err.Error(), "item 1")
}

func TestResolveInvalidRequestMakesNoCalls(t *testing.T) {
	src := &mocks.OrderSource{}
	r := &order.Resolver{Source: src}

	_, err := r.Resolve(context.Background(), order.PurchaseRequest{
		Standard: order.ERC721,
		Contract: nft,
		Items:    []order.Item{{TokenID: big.NewInt(1), Quantity: 2}},
	})
	require.ErrorIs(t, err, order.ErrInvalidQuantity)
	assert.Zero(t, src.Calls())
}

func TestResolveSourceError(t *testing.T) {
	src := &mocks.OrderSource{}
	src.FetchSellOrderFunc = func(context.Context, common.Address, *big.Int, order.Standard) (*order.Order, error) {
		return nil, fmt.Errorf("orderbook: %w", assert.AnError)
	}
	r := &order.Resolver{Source: src}

	_, err := r.Resolve(context.Background(), order.PurchaseRequest{
		Standard: order.ERC721,
		Contract: nft,
		Items:    []order.Item{{TokenID: big.NewInt(1), Quantity: 1}},
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestResolveFillsMissingAsset(t *testing.T) {
	listed := mocks.SellOrder(common.Address{}, 1, order.ERC721, 1, 1000)
	listed.TokenID = nil
	src := &mocks.OrderSource{}
	src.FetchSellOrderFunc = func(context.Context, common.Address, *big.Int, order.Standard) (*order.Order, error) {
		return &listed, nil
	}
	r := &order.Resolver{Source: src, Now: fixedNow}

	req := order.PurchaseRequest{Standard: order.ERC721, Contract: nft, Items: []order.Item{{TokenID: big.NewInt(42), Quantity: 1}}}
	orders, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].TokenID)
	assert.Equal(t, "42", orders[0].TokenID.String())
	assert.Equal(t, nft, orders[0].Contract)
	assert.Nil(t, listed.TokenID)
}
