package bundlecore

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

const (
	rpcMaxAttempts = 3
	rpcBackoff     = 200 * time.Millisecond
)

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "Too Many Requests") || strings.Contains(s, "-32005")
}

// retry runs fn up to rpcMaxAttempts times, doubling the backoff on rate limits.
func retry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	backoff := rpcBackoff
	var zero T
	var lastErr error
	for attempt := 1; attempt <= rpcMaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == rpcMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		if isRateLimitError(err) {
			backoff *= 2
		}
	}
	return zero, lastErr
}

// callWithRetry performs eth_call with small exponential backoff.
func callWithRetry(ctx context.Context, prov Provider, msg ethereum.CallMsg) ([]byte, error) {
	return retry(ctx, func(ctx context.Context) ([]byte, error) {
		return prov.CallContract(ctx, msg, nil)
	})
}

func estimateGasWithRetry(ctx context.Context, prov Provider, msg ethereum.CallMsg) (uint64, error) {
	return retry(ctx, func(ctx context.Context) (uint64, error) {
		return prov.EstimateGas(ctx, msg)
	})
}

func balanceWithRetry(ctx context.Context, prov Provider, account common.Address) (*big.Int, error) {
	return retry(ctx, func(ctx context.Context) (*big.Int, error) {
		return prov.BalanceAt(ctx, account, nil)
	})
}
