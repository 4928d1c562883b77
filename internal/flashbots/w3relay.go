package flashbots

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/flashbots"
	w3 "github.com/lmittmann/w3"

	"github.com/ligun0805/nft-bundle-buy/internal/bundlecore"
)

// W3Relay is a Flashbots-compatible relay dialed via w3 + flashbots.
type W3Relay struct {
	url string
	c   *w3.Client
}

func NewW3Relay(url string, authKey *ecdsa.PrivateKey) *W3Relay {
	return &W3Relay{url: url, c: flashbots.MustDial(url, authKey)}
}

func (r *W3Relay) Name() string { return relayName(r.url) }

func (r *W3Relay) SendBundle(ctx context.Context, txs types.Transactions, targetBlock uint64) (common.Hash, error) {
	var hash common.Hash
	err := r.c.CallCtx(ctx,
		flashbots.SendBundle(&flashbots.SendBundleRequest{
			Transactions: txs,
			BlockNumber:  new(big.Int).SetUint64(targetBlock),
		}).Returns(&hash),
	)
	if err != nil {
		return common.Hash{}, classify(err)
	}
	return hash, nil
}

func (r *W3Relay) SimulateBundle(ctx context.Context, txs types.Transactions, targetBlock uint64) error {
	resp := new(flashbots.CallBundleResponse)
	err := r.c.CallCtx(ctx,
		flashbots.CallBundle(&flashbots.CallBundleRequest{
			Transactions: txs,
			BlockNumber:  new(big.Int).SetUint64(targetBlock),
		}).Returns(resp),
	)
	if err != nil {
		return fmt.Errorf("eth_callBundle: %s", Friendly(err))
	}
	if resp == nil {
		return nil
	}
	for i, res := range resp.Results {
		switch {
		case res.Error != nil:
			return fmt.Errorf("%w: tx %d: %v", bundlecore.ErrSimulationReverted, i, res.Error)
		case len(res.Revert) > 0:
			return fmt.Errorf("%w: tx %d: %s", bundlecore.ErrSimulationReverted, i, res.Revert)
		}
	}
	return nil
}

func (r *W3Relay) Close() error { return r.c.Close() }
