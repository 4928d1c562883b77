package bundlecore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/nft-bundle-buy/internal/mocks"
)

func publicStrategy(chain Chain) *PublicStrategy {
	return &PublicStrategy{Chain: chain, ReceiptTimeout: time.Second, PollInterval: time.Millisecond}
}

func TestPublicStrategy(t *testing.T) {
	errSend := errors.New("replacement transaction underpriced")

	tests := []struct {
		name        string
		txs         int
		onBroadcast func(i int, tx *types.Transaction) (uint64, bool, error)
		timeout     time.Duration
		want        []TxStatus
		outcome     Outcome
		sent        int
		failedIndex int
		wantErr     error
	}{
		{
			name:        "all mined",
			txs:         2,
			want:        []TxStatus{TxMined, TxMined},
			outcome:     OutcomeFullyIncluded,
			sent:        2,
			failedIndex: -1,
		},
		{
			name: "revert stops the sequence",
			txs:  3,
			onBroadcast: func(i int, _ *types.Transaction) (uint64, bool, error) {
				if i == 1 {
					return types.ReceiptStatusFailed, true, nil
				}
				return types.ReceiptStatusSuccessful, true, nil
			},
			want:        []TxStatus{TxMined, TxReverted, TxNotAttempted},
			outcome:     OutcomePartiallyIncluded,
			sent:        2,
			failedIndex: 1,
			wantErr:     ErrReverted,
		},
		{
			name: "broadcast failure",
			txs:  2,
			onBroadcast: func(int, *types.Transaction) (uint64, bool, error) {
				return 0, false, errSend
			},
			want:        []TxStatus{TxFailed, TxNotAttempted},
			outcome:     OutcomeNotIncluded,
			sent:        1,
			failedIndex: 0,
			wantErr:     errSend,
		},
		{
			name: "receipt wait times out",
			txs:  2,
			onBroadcast: func(int, *types.Transaction) (uint64, bool, error) {
				return 0, false, nil
			},
			timeout:     20 * time.Millisecond,
			want:        []TxStatus{TxPending, TxNotAttempted},
			outcome:     OutcomeTimedOut,
			sent:        1,
			failedIndex: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := mocks.NewChain()
			chain.OnBroadcast = tt.onBroadcast
			s := publicStrategy(chain)
			if tt.timeout > 0 {
				s.ReceiptTimeout = tt.timeout
			}
			b := testBundle(t, tt.txs)

			rep, err := s.Submit(context.Background(), b)
			require.NotNil(t, rep)
			assert.False(t, rep.Atomic)
			assert.Equal(t, PathPublic, rep.Path)
			assert.Equal(t, tt.want, statuses(rep))
			assert.Equal(t, tt.outcome, rep.Outcome)

			sent := chain.Sent()
			require.Len(t, sent, tt.sent)
			for i, tx := range sent {
				assert.Equal(t, b.BaseNonce+uint64(i), tx.Nonce())
				assert.Equal(t, b.Txs[i].Hash(), tx.Hash())
			}

			if tt.failedIndex < 0 {
				require.NoError(t, err)
				return
			}
			var se *SubmissionError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, StagePublicBroadcast, se.Stage)
			assert.Equal(t, tt.failedIndex, se.Index)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPublicStrategyEmptyBundle(t *testing.T) {
	_, err := publicStrategy(mocks.NewChain()).Submit(context.Background(), &Bundle{})
	assert.ErrorIs(t, err, ErrEmptyBundle)
}
