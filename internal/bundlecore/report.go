package bundlecore

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ligun0805/nft-bundle-buy/internal/telemetry"
)

// TxStatus is the final state of one bundle transaction.
type TxStatus int

const (
	TxNotAttempted TxStatus = iota
	TxPending
	TxMined
	TxReverted
	TxNotIncluded
	TxFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxNotAttempted:
		return "not-attempted"
	case TxPending:
		return "pending"
	case TxMined:
		return "mined"
	case TxReverted:
		return "reverted"
	case TxNotIncluded:
		return "not-included"
	case TxFailed:
		return "failed"
	default:
		return fmt.Sprintf("TxStatus(%d)", int(s))
	}
}

// Outcome is the bundle-level result.
type Outcome int

const (
	OutcomeNotIncluded Outcome = iota
	OutcomeFullyIncluded
	// OutcomePartiallyIncluded only happens on the public path.
	OutcomePartiallyIncluded
	// OutcomeTimedOut means the wait gave up; transactions may still land.
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotIncluded:
		return "not-included"
	case OutcomeFullyIncluded:
		return "fully-included"
	case OutcomePartiallyIncluded:
		return "partially-included"
	case OutcomeTimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Path is the submission route.
type Path string

const (
	PathRelay  Path = "relay"
	PathPublic Path = "public"
)

type TxReport struct {
	Index  int
	Label  string
	Hash   common.Hash
	Nonce  uint64
	Status TxStatus
	Block  uint64
	Err    error
}

// Attempt records one target block on the relay path.
type Attempt struct {
	TargetBlock uint64
	Accepted    []string
	Rejected    map[string]error
	Permanent   bool
	Included    bool
	TimedOut    bool
	skipped     bool
}

type Report struct {
	Path Path
	// Atomic is false on the public path: earlier transactions may be final
	// even when a later one fails.
	Atomic        bool
	Outcome       Outcome
	Txs           []TxReport
	Attempts      []Attempt
	IncludedBlock uint64
	Reason        string
}

func newReport(path Path, b *Bundle) *Report {
	r := &Report{
		Path:   path,
		Atomic: path == PathRelay,
		Txs:    make([]TxReport, len(b.Txs)),
	}
	for i, tx := range b.Txs {
		r.Txs[i] = TxReport{
			Index:  i,
			Label:  b.Label(i),
			Hash:   tx.Hash(),
			Nonce:  tx.Nonce(),
			Status: TxNotAttempted,
		}
	}
	return r
}

// Mined returns the indices of mined transactions.
func (r *Report) Mined() []int {
	var out []int
	for _, t := range r.Txs {
		if t.Status == TxMined {
			out = append(out, t.Index)
		}
	}
	return out
}

// publicOutcome derives the outcome from per-tx statuses.
func (r *Report) publicOutcome(timedOut bool) Outcome {
	if timedOut {
		return OutcomeTimedOut
	}
	mined := len(r.Mined())
	switch {
	case mined == len(r.Txs):
		return OutcomeFullyIncluded
	case mined == 0:
		return OutcomeNotIncluded
	default:
		return OutcomePartiallyIncluded
	}
}

// finishRelay fills per-tx statuses from rcpts (nil entries did not land)
// and records the report. r.Outcome must already be set.
func (r *Report) finishRelay(rcpts []*types.Receipt) {
	for i := range r.Txs {
		var rc *types.Receipt
		if i < len(rcpts) {
			rc = rcpts[i]
		}
		t := &r.Txs[i]
		switch {
		case rc == nil && r.Outcome == OutcomeTimedOut:
			t.Status = TxPending
		case rc == nil:
			t.Status = TxNotIncluded
		case rc.Status == types.ReceiptStatusSuccessful:
			t.Status = TxMined
		default:
			t.Status = TxReverted
			t.Err = ErrReverted
		}
		if rc != nil && rc.BlockNumber != nil {
			t.Block = rc.BlockNumber.Uint64()
			if r.IncludedBlock == 0 {
				r.IncludedBlock = t.Block
			}
		}
	}
	r.record()
}

func (r *Report) record() {
	telemetry.SubmissionsCounter.WithLabelValues(string(r.Path), r.Outcome.String()).Inc()
	for _, t := range r.Txs {
		telemetry.TransactionsCounter.WithLabelValues(t.Status.String()).Inc()
	}
}
