package bundlecore

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBundle        = errors.New("empty bundle")
	ErrInvalidFees        = errors.New("invalid fee parameters")
	ErrNoRelay            = errors.New("no relay configured")
	ErrPermanentRejection = errors.New("relay rejected bundle permanently")
	ErrSimulationReverted = errors.New("bundle simulation reverted")
	ErrReverted           = errors.New("transaction reverted")
	ErrNonceConsumed      = errors.New("bundle nonce consumed outside the bundle")
	ErrInsufficientFunds  = errors.New("insufficient funds for bundle")
)

// SigningError aborts a run before any network call.
type SigningError struct {
	Index int
	Err   error
}

func (e *SigningError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("signing: %v", e.Err)
	}
	return fmt.Sprintf("signing tx %d: %v", e.Index, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Stage names where a submission failed.
type Stage string

const (
	StageSimulation      Stage = "simulation"
	StageRelayRejected   Stage = "relay-rejected"
	StagePublicBroadcast Stage = "public-broadcast-failed"
)

// SubmissionError names the stage and, on the public path, the transaction
// index that failed. Index is -1 for bundle-wide failures.
type SubmissionError struct {
	Stage       Stage
	Index       int
	TargetBlock uint64
	Err         error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Index >= 0:
		return fmt.Sprintf("%s at tx %d: %v", e.Stage, e.Index, e.Err)
	case e.TargetBlock > 0:
		return fmt.Sprintf("%s for block %d: %v", e.Stage, e.TargetBlock, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
}

func (e *SubmissionError) Unwrap() error { return e.Err }
