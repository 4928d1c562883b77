package bundlecore

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var testFees = Fees{TipCap: gweiToWei(2), FeeCap: gweiToWei(30)}

func testCalls(labels ...string) []Call {
	calls := make([]Call, len(labels))
	for i, l := range labels {
		calls[i] = Call{
			To:    common.BigToAddress(big.NewInt(int64(0x1000 + i))),
			Data:  []byte{byte(i)},
			Value: big.NewInt(int64(i) * 1_000),
			Gas:   100_000,
			Label: l,
		}
	}
	return calls
}

func TestBuildBundleAssignsConsecutiveNonces(t *testing.T) {
	chainID := big.NewInt(1)
	calls := testCalls("a", "b", "c")

	b, err := BuildBundle(testKey, chainID, 7, testFees, calls)
	require.NoError(t, err)
	require.Len(t, b.Txs, 3)

	from, err := AddressFromKey(testKey)
	require.NoError(t, err)
	assert.Equal(t, from, b.From)
	assert.Equal(t, uint64(7), b.BaseNonce)

	signer := types.LatestSignerForChainID(chainID)
	for i, tx := range b.Txs {
		assert.Equal(t, uint64(7+i), tx.Nonce())
		assert.Equal(t, calls[i].To, *tx.To())
		assert.Equal(t, calls[i].Label, b.Label(i))
		assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
		sender, err := types.Sender(signer, tx)
		require.NoError(t, err)
		assert.Equal(t, from, sender)
	}
	assert.Equal(t, big.NewInt(3_000), b.TotalValue())
	assert.Len(t, b.RawHex(), 3)
	assert.Equal(t, "", b.Label(9))
}

func TestBuildBundleNoncesFollowPosition(t *testing.T) {
	calls := testCalls("a", "b")
	swapped := []Call{calls[1], calls[0]}

	b, err := BuildBundle(testKey, big.NewInt(1), 0, testFees, swapped)
	require.NoError(t, err)
	assert.Equal(t, calls[1].To, *b.Txs[0].To())
	assert.Equal(t, uint64(0), b.Txs[0].Nonce())
	assert.Equal(t, calls[0].To, *b.Txs[1].To())
	assert.Equal(t, uint64(1), b.Txs[1].Nonce())
}

func TestBuildBundleIsDeterministic(t *testing.T) {
	b1, err := BuildBundle(testKey, big.NewInt(1), 3, testFees, testCalls("a", "b"))
	require.NoError(t, err)
	b2, err := BuildBundle(testKey, big.NewInt(1), 3, testFees, testCalls("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, b1.RawHex(), b2.RawHex())
}

func TestBuildBundleErrors(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		chainID    *big.Int
		fees       Fees
		calls      []Call
		wantErr    error
		wantSigner bool
	}{
		{"empty", testKey, big.NewInt(1), testFees, nil, ErrEmptyBundle, false},
		{"bad key", "0xnothex", big.NewInt(1), testFees, testCalls("a"), nil, true},
		{"empty key", "", big.NewInt(1), testFees, testCalls("a"), nil, true},
		{"no chain id", testKey, nil, testFees, testCalls("a"), nil, true},
		{"nil fees", testKey, big.NewInt(1), Fees{}, testCalls("a"), ErrInvalidFees, false},
		{"cap below tip", testKey, big.NewInt(1), Fees{TipCap: gweiToWei(5), FeeCap: gweiToWei(1)}, testCalls("a"), ErrInvalidFees, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := BuildBundle(tt.key, tt.chainID, 0, tt.fees, tt.calls)
			require.Error(t, err)
			assert.Nil(t, b)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			var se *SigningError
			assert.Equal(t, tt.wantSigner, errors.As(err, &se))
			if tt.wantSigner {
				assert.Equal(t, -1, se.Index)
			}
		})
	}
}

func TestBundleMaxCost(t *testing.T) {
	b, err := BuildBundle(testKey, big.NewInt(1), 0, testFees, testCalls("a", "b"))
	require.NoError(t, err)
	// value (0 + 1000) + 2 * 100k gas * 30 gwei
	want := new(big.Int).Mul(big.NewInt(200_000), gweiToWei(30))
	want.Add(want, big.NewInt(1_000))
	assert.Equal(t, want, b.MaxCost())
}
