package bundlecore

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Chain is what the submission strategies need from a node.
type Chain interface {
	BlockNumber(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Provider is the full node surface used by Run. *ethclient.Client satisfies it.
type Provider interface {
	Chain
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var _ Provider = (*ethclient.Client)(nil)

// Relay submits a signed bundle for one target block. Errors wrapping
// ErrPermanentRejection mean resubmitting the same bytes cannot succeed.
type Relay interface {
	Name() string
	SendBundle(ctx context.Context, txs types.Transactions, targetBlock uint64) (common.Hash, error)
}

// Simulator is implemented by relays supporting eth_callBundle. A revert is
// reported as an error wrapping ErrSimulationReverted.
type Simulator interface {
	SimulateBundle(ctx context.Context, txs types.Transactions, targetBlock uint64) error
}
