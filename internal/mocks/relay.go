package mocks

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Relay records every submission. SendBundleFunc and SimulateFunc override
// the default behaviour of accepting everything.
type Relay struct {
	RelayName      string
	SendBundleFunc func(ctx context.Context, txs types.Transactions, targetBlock uint64) (common.Hash, error)
	SimulateFunc   func(ctx context.Context, txs types.Transactions, targetBlock uint64) error

	mu        sync.Mutex
	targets   []uint64
	payloads  [][]string
	simulated int
}

// IncludingAt returns a relay whose bundle lands on chain at block.
func IncludingAt(name string, chain *Chain, block uint64) *Relay {
	return &Relay{
		RelayName: name,
		SendBundleFunc: func(ctx context.Context, txs types.Transactions, targetBlock uint64) (common.Hash, error) {
			if targetBlock == block {
				chain.Include(txs, block)
			}
			return common.BigToHash(new(big.Int).SetUint64(targetBlock)), nil
		},
	}
}

func (r *Relay) Name() string { return r.RelayName }

func (r *Relay) SendBundle(ctx context.Context, txs types.Transactions, targetBlock uint64) (common.Hash, error) {
	raw := make([]string, len(txs))
	for i, tx := range txs {
		b, _ := tx.MarshalBinary()
		raw[i] = common.Bytes2Hex(b)
	}
	r.mu.Lock()
	r.targets = append(r.targets, targetBlock)
	r.payloads = append(r.payloads, raw)
	r.mu.Unlock()
	if r.SendBundleFunc != nil {
		return r.SendBundleFunc(ctx, txs, targetBlock)
	}
	return common.Hash{}, nil
}

func (r *Relay) SimulateBundle(ctx context.Context, txs types.Transactions, targetBlock uint64) error {
	r.mu.Lock()
	r.simulated++
	r.mu.Unlock()
	if r.SimulateFunc != nil {
		return r.SimulateFunc(ctx, txs, targetBlock)
	}
	return nil
}

// Targets returns the target blocks submitted so far, in call order.
func (r *Relay) Targets() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.targets...)
}

// Payloads returns the raw transactions of each submission.
func (r *Relay) Payloads() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.payloads...)
}

func (r *Relay) Simulated() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.simulated
}
