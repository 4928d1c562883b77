package briber_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/nft-bundle-buy/internal/briber"
	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

var (
	verifier = common.HexToAddress("0x000000000000000000000000000000000000b41b")
	nft      = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestEncode721(t *testing.T) {
	call, err := briber.Encode(briber.VerifyParams{
		Verifier: verifier,
		Standard: order.ERC721,
		NFT:      nft,
		Owner:    owner,
		Expected: []briber.Expectation{{TokenID: big.NewInt(1)}, {TokenID: big.NewInt(2)}},
		Bribe:    big.NewInt(1e18),
	})
	require.NoError(t, err)
	assert.Equal(t, verifier, call.To)
	assert.Equal(t, big.NewInt(1e18), call.Value)
	assert.Equal(t, briber.Gas, call.Gas)

	method := briber.ABI().Methods["verifyOwnershipAndPay721"]
	require.Equal(t, method.ID, call.Data[:4])
	args, err := method.Inputs.Unpack(call.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, nft, args[0])
	assert.Equal(t, owner, args[1])
	assert.Equal(t, []*big.Int{big.NewInt(1), big.NewInt(2)}, args[2])
}

func TestEncode1155(t *testing.T) {
	call, err := briber.Encode(briber.VerifyParams{
		Verifier: verifier,
		Standard: order.ERC1155,
		NFT:      nft,
		Owner:    owner,
		Expected: []briber.Expectation{
			{TokenID: big.NewInt(1), Balance: big.NewInt(2)},
			{TokenID: big.NewInt(2), Balance: big.NewInt(4)},
		},
	})
	require.NoError(t, err)
	assert.Zero(t, call.Value.Sign())

	method := briber.ABI().Methods["verifyOwnershipAndPay1155"]
	require.Equal(t, method.ID, call.Data[:4])
	args, err := method.Inputs.Unpack(call.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, []*big.Int{big.NewInt(1), big.NewInt(2)}, args[2])
	assert.Equal(t, []*big.Int{big.NewInt(2), big.NewInt(4)}, args[3])
}

func TestEncodeErrors(t *testing.T) {
	base := briber.VerifyParams{
		Verifier: verifier,
		Standard: order.ERC1155,
		NFT:      nft,
		Owner:    owner,
		Expected: []briber.Expectation{{TokenID: big.NewInt(1), Balance: big.NewInt(1)}},
	}
	tests := []struct {
		name    string
		mutate  func(p *briber.VerifyParams)
		wantErr error
	}{
		{name: "no verifier", mutate: func(p *briber.VerifyParams) { p.Verifier = common.Address{} }, wantErr: briber.ErrNoReceiver},
		{name: "no tokens", mutate: func(p *briber.VerifyParams) { p.Expected = nil }, wantErr: briber.ErrNoTokens},
		{name: "missing balance", mutate: func(p *briber.VerifyParams) { p.Expected[0].Balance = nil }, wantErr: briber.ErrMissingBalance},
		{name: "negative bribe", mutate: func(p *briber.VerifyParams) { p.Bribe = big.NewInt(-1) }, wantErr: briber.ErrNegativeBribe},
		{name: "unknown standard", mutate: func(p *briber.VerifyParams) { p.Standard = 0 }, wantErr: order.ErrUnsupportedStandard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.Expected = append([]briber.Expectation(nil), base.Expected...)
			tt.mutate(&p)
			_, err := briber.Encode(p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseBytecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{name: "hex", in: "0x6080", want: []byte{0x60, 0x80}},
		{name: "bare hex", in: "6080\n", want: []byte{0x60, 0x80}},
		{name: "artifact string", in: `{"bytecode":"0x6080"}`, want: []byte{0x60, 0x80}},
		{name: "artifact object", in: `{"bytecode":{"object":"0x6080"}}`, want: []byte{0x60, 0x80}},
		{name: "empty", in: "0x", wantErr: true},
		{name: "garbage", in: "zz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := briber.ParseBytecode([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
