package order_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

var nft = common.HexToAddress("0x00000000000000000000000000000000000000ff")

func TestParseStandard(t *testing.T) {
	tests := []struct {
		in      string
		want    order.Standard
		wantErr bool
	}{
		{in: "erc721", want: order.ERC721},
		{in: "721", want: order.ERC721},
		{in: " ERC1155 ", want: order.ERC1155},
		{in: "1155", want: order.ERC1155},
		{in: "erc20", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := order.ParseStandard(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, order.ErrUnsupportedStandard)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPurchaseRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		req       order.PurchaseRequest
		wantErr   error
		wantIndex int
	}{
		{
			name: "erc721 single",
			req:  order.PurchaseRequest{Standard: order.ERC721, Contract: nft, Items: []order.Item{{TokenID: big.NewInt(1), Quantity: 1}}},
		},
		{
			name:      "erc721 quantity two",
			req:       order.PurchaseRequest{Standard: order.ERC721, Contract: nft, Items: []order.Item{{TokenID: big.NewInt(1), Quantity: 1}, {TokenID: big.NewInt(2), Quantity: 2}}},
			wantErr:   order.ErrInvalidQuantity,
			wantIndex: 1,
		},
		{
			name:      "erc721 quantity zero",
			req:       order.PurchaseRequest{Standard: order.ERC721, Contract: nft, Items: []order.Item{{TokenID: big.NewInt(1), Quantity: 0}}},
			wantErr:   order.ErrInvalidQuantity,
			wantIndex: 0,
		},
		{
			name: "erc1155 multiple",
			req:  order.PurchaseRequest{Standard: order.ERC1155, Contract: nft, Items: []order.Item{{TokenID: big.NewInt(1), Quantity: 5}}},
		},
		{
			name:      "erc1155 zero",
			req:       order.PurchaseRequest{Standard: order.ERC1155, Contract: nft, Items: []order.Item{{TokenID: big.NewInt(1), Quantity: 0}}},
			wantErr:   order.ErrInvalidQuantity,
			wantIndex: 0,
		},
		{
			name:      "erc1155 repeated id",
			req:       order.PurchaseRequest{Standard: order.ERC1155, Contract: nft, Items: []order.Item{{TokenID: big.NewInt(1), Quantity: 2}, {TokenID: big.NewInt(1), Quantity: 1}}},
			wantErr:   order.ErrDuplicateTokenID,
			wantIndex: 1,
		},
		{
			name:      "erc721 repeated id",
			req:       order.PurchaseRequest{Standard: order.ERC721, Contract: nft, Items: []order.Item{{TokenID: big.NewInt(7), Quantity: 1}, {TokenID: big.NewInt(8), Quantity: 1}, {TokenID: big.NewInt(7), Quantity: 1}}},
			wantErr:   order.ErrDuplicateTokenID,
			wantIndex: 2,
		},
		{
			name:      "empty",
			req:       order.PurchaseRequest{Standard: order.ERC1155, Contract: nft},
			wantErr:   order.ErrEmptyRequest,
			wantIndex: -1,
		},
		{
			name:      "no contract",
			req:       order.PurchaseRequest{Standard: order.ERC721, Items: []order.Item{{TokenID: big.NewInt(1), Quantity: 1}}},
			wantErr:   order.ErrZeroContract,
			wantIndex: -1,
		},
		{
			name:      "unknown standard",
			req:       order.PurchaseRequest{Contract: nft, Items: []order.Item{{TokenID: big.NewInt(1), Quantity: 1}}},
			wantErr:   order.ErrUnsupportedStandard,
			wantIndex: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			var reqErr *order.RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.wantIndex, reqErr.Index)
		})
	}
}

func TestOrderAvailableAndPrice(t *testing.T) {
	o := order.Order{Standard: order.ERC721, Quantity: big.NewInt(7), BasePrice: big.NewInt(10)}
	assert.Equal(t, int64(1), o.Available().Int64())
	assert.Equal(t, int64(10), o.Price().Int64())

	o = order.Order{Standard: order.ERC1155, Quantity: big.NewInt(7), BasePrice: big.NewInt(10), CurrentPrice: big.NewInt(12)}
	assert.Equal(t, int64(7), o.Available().Int64())
	assert.Equal(t, int64(12), o.Price().Int64())

	assert.True(t, o.Active())
	o.Cancelled = true
	assert.False(t, o.Active())
}
