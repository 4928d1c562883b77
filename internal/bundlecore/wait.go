package bundlecore

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	defaultPollInterval     = time.Second
	defaultInclusionTimeout = 2 * time.Minute
)

// waitForBlock polls the head until it reaches target.
func waitForBlock(ctx context.Context, c Chain, target uint64, poll time.Duration) error {
	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		n, err := c.BlockNumber(ctx)
		if err == nil && n >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// waitMined polls for the receipt of hash until it shows up or ctx ends.
func waitMined(ctx context.Context, c Chain, hash common.Hash, poll time.Duration) (*types.Receipt, error) {
	t := time.NewTicker(poll)
	defer t.Stop()
	var lastErr error
	for {
		rcpt, err := c.TransactionReceipt(ctx, hash)
		if err == nil && rcpt != nil {
			return rcpt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, errors.Join(ctx.Err(), lastErr)
			}
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// lookupReceipts returns the receipts that exist for txs, nil where missing.
func lookupReceipts(ctx context.Context, c Chain, txs types.Transactions) ([]*types.Receipt, int) {
	out := make([]*types.Receipt, len(txs))
	found := 0
	for i, tx := range txs {
		rcpt, err := c.TransactionReceipt(ctx, tx.Hash())
		if err == nil && rcpt != nil {
			out[i] = rcpt
			found++
		}
	}
	return out, found
}
