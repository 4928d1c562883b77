package bundlecore

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

type Params struct {
	PrivateKeyHex string
	// ChainID is read from the node when nil.
	ChainID *big.Int
	Request order.PurchaseRequest
	// Recipient receives the NFTs; the signer when zero.
	Recipient common.Address

	Fees FeeConfig
	// Optional bribe. Paid by the verifier call when Verifier is set,
	// otherwise spread over the bundle as priority fee on the relay path.
	Bribe    *big.Int
	Verifier common.Address

	EstimateGas bool
	BufferPct   int64
	DryRun      bool

	// Relays selects the atomic path; empty means public broadcast.
	Relays           []Relay
	Blocks           int
	MaxInFlight      int
	InclusionTimeout time.Duration
	ReceiptTimeout   time.Duration
	PollInterval     time.Duration
	Simulate         bool

	ResolveConcurrency int
	Logger             *zap.Logger
}

type Result struct {
	Orders []order.Order
	Bundle *Bundle
	// Report is nil on a dry run.
	Report *Report
	Before []Holding
	After  []Holding
}

func (p *Params) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
