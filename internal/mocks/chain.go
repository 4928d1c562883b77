package mocks

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	selOwnerOf   = []byte{0x63, 0x52, 0x21, 0x1e}
	selBalanceOf = []byte{0x00, 0xfd, 0xd5, 0x8e}
)

// Chain is an in-memory node. Every BlockNumber call advances the head by
// one block when AutoAdvance is set, so polling loops make progress.
type Chain struct {
	mu sync.Mutex

	Head        uint64
	AutoAdvance bool
	ChainIDv    *big.Int
	BaseFee     *big.Int
	Timestamp   uint64
	Nonce       uint64
	Balance     *big.Int
	TipCap      *big.Int
	Rewards     [][]*big.Int
	Estimate    uint64
	EstimateErr error

	// OnBroadcast decides the fate of a publicly sent transaction: the
	// receipt status, whether it is mined at all, and the send error.
	// Nil mines every transaction successfully.
	OnBroadcast func(i int, tx *types.Transaction) (status uint64, mined bool, err error)

	// Owners and Balances answer ownerOf(id) and balanceOf(_, id), keyed by
	// decimal token id.
	Owners   map[string]common.Address
	Balances map[string]*big.Int

	receipts map[common.Hash]*types.Receipt
	sent     []*types.Transaction
}

func NewChain() *Chain {
	return &Chain{
		Head:        100,
		AutoAdvance: true,
		ChainIDv:    big.NewInt(1),
		BaseFee:     big.NewInt(10_000_000_000),
		Timestamp:   1_700_000_000,
		Balance:     new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
		Owners:      map[string]common.Address{},
		Balances:    map[string]*big.Int{},
		receipts:    map[common.Hash]*types.Receipt{},
	}
}

// Include records successful receipts for txs at block.
func (c *Chain) Include(txs types.Transactions, block uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tx := range txs {
		c.receipts[tx.Hash()] = receipt(tx, types.ReceiptStatusSuccessful, block)
	}
}

// Sent returns the publicly broadcast transactions in order.
func (c *Chain) Sent() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Transaction(nil), c.sent...)
}

func receipt(tx *types.Transaction, status uint64, block uint64) *types.Receipt {
	return &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas() / 2,
		BlockNumber: new(big.Int).SetUint64(block),
	}
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AutoAdvance {
		c.Head++
	}
	return c.Head, nil
}

func (c *Chain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := len(c.sent)
	c.sent = append(c.sent, tx)
	status, mined := types.ReceiptStatusSuccessful, true
	if c.OnBroadcast != nil {
		var err error
		status, mined, err = c.OnBroadcast(i, tx)
		if err != nil {
			return err
		}
	}
	if mined {
		c.receipts[tx.Hash()] = receipt(tx, status, c.Head+1)
	}
	return nil
}

func (c *Chain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.ChainIDv), nil
}

func (c *Chain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.Nonce, nil
}

func (c *Chain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &types.Header{
		Number:  new(big.Int).SetUint64(c.Head),
		Time:    c.Timestamp,
		BaseFee: c.BaseFee,
	}, nil
}

func (c *Chain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return new(big.Int).Set(c.Balance), nil
}

func (c *Chain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if c.TipCap == nil {
		return big.NewInt(1_000_000_000), nil
	}
	return c.TipCap, nil
}

func (c *Chain) FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error) {
	if len(c.Rewards) == 0 {
		return nil, errors.New("feeHistory unavailable")
	}
	return &ethereum.FeeHistory{Reward: c.Rewards}, nil
}

func (c *Chain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if c.EstimateErr != nil {
		return 0, c.EstimateErr
	}
	return c.Estimate, nil
}

func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := msg.Data
	switch {
	case len(data) == 36 && bytes.Equal(data[:4], selOwnerOf):
		id := new(big.Int).SetBytes(data[4:36]).String()
		return common.LeftPadBytes(c.Owners[id].Bytes(), 32), nil
	case len(data) == 68 && bytes.Equal(data[:4], selBalanceOf):
		id := new(big.Int).SetBytes(data[36:68]).String()
		bal := c.Balances[id]
		if bal == nil {
			bal = new(big.Int)
		}
		return common.LeftPadBytes(bal.Bytes(), 32), nil
	}
	return nil, errors.New("execution reverted")
}
