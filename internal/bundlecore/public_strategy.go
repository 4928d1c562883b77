package bundlecore

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const defaultReceiptTimeout = 3 * time.Minute

// PublicStrategy broadcasts the bundle transactions one by one through the
// node and waits for each receipt before sending the next. It is not atomic.
type PublicStrategy struct {
	Chain          Chain
	ReceiptTimeout time.Duration
	PollInterval   time.Duration
	Logger         *zap.Logger
}

func (s *PublicStrategy) Submit(ctx context.Context, b *Bundle) (*Report, error) {
	if b == nil || len(b.Txs) == 0 {
		return nil, ErrEmptyBundle
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := s.ReceiptTimeout
	if timeout <= 0 {
		timeout = defaultReceiptTimeout
	}
	poll := s.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	rep := newReport(PathPublic, b)
	finish := func(timedOut bool, err error) (*Report, error) {
		rep.Outcome = rep.publicOutcome(timedOut)
		if err != nil {
			rep.Reason = err.Error()
		}
		rep.record()
		return rep, err
	}

	for i, tx := range b.Txs {
		t := &rep.Txs[i]
		l := logger.With(zap.Int("index", i), zap.String("label", t.Label), zap.String("tx", tx.Hash().Hex()))

		if err := s.Chain.SendTransaction(ctx, tx); err != nil {
			t.Status = TxFailed
			t.Err = err
			l.Error("broadcast failed", zap.Error(err))
			return finish(false, &SubmissionError{Stage: StagePublicBroadcast, Index: i, Err: err})
		}
		t.Status = TxPending
		l.Info("transaction sent", zap.Uint64("nonce", tx.Nonce()))

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		rcpt, err := waitMined(waitCtx, s.Chain, tx.Hash(), poll)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return finish(false, ctx.Err())
			}
			if errors.Is(err, context.DeadlineExceeded) {
				l.Warn("receipt wait timed out", zap.Duration("timeout", timeout))
				rep.Reason = "timed out waiting for receipt"
				rep.Outcome = OutcomeTimedOut
				rep.record()
				return rep, nil
			}
			t.Status = TxFailed
			t.Err = err
			return finish(false, &SubmissionError{Stage: StagePublicBroadcast, Index: i, Err: err})
		}

		if rcpt.BlockNumber != nil {
			t.Block = rcpt.BlockNumber.Uint64()
		}
		if rcpt.Status != types.ReceiptStatusSuccessful {
			t.Status = TxReverted
			t.Err = ErrReverted
			l.Error("transaction reverted", zap.Uint64("block", t.Block))
			return finish(false, &SubmissionError{Stage: StagePublicBroadcast, Index: i, Err: ErrReverted})
		}
		t.Status = TxMined
		if rep.IncludedBlock == 0 {
			rep.IncludedBlock = t.Block
		}
		l.Info("transaction mined", zap.Uint64("block", t.Block), zap.Uint64("gas_used", rcpt.GasUsed))
	}
	return finish(false, nil)
}
