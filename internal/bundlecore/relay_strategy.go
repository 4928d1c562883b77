package bundlecore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ligun0805/nft-bundle-buy/internal/telemetry"
)

// errors used to stop the attempt group; never returned to callers.
var (
	errIncluded         = errors.New("bundle included")
	errInclusionTimeout = errors.New("inclusion wait timed out")
)

// RelayStrategy submits the same signed bundle for head+1 ... head+Blocks,
// stopping at the first target block where it lands.
type RelayStrategy struct {
	Relays []Relay
	Chain  Chain
	// Blocks is the attempt budget, one attempt per target block.
	Blocks int
	// MaxInFlight bounds overlapping attempts. 1 submits block N+1 only after
	// block N was checked.
	MaxInFlight      int
	InclusionTimeout time.Duration
	PollInterval     time.Duration
	Simulate         bool
	Logger           *zap.Logger
}

func (s *RelayStrategy) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Submit never re-signs: every attempt carries the bytes in b.
func (s *RelayStrategy) Submit(ctx context.Context, b *Bundle) (*Report, error) {
	if len(s.Relays) == 0 {
		return nil, ErrNoRelay
	}
	if b == nil || len(b.Txs) == 0 {
		return nil, ErrEmptyBundle
	}
	logger := s.logger()
	rep := newReport(PathRelay, b)

	head, err := s.Chain.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("head block: %w", err)
	}
	if s.Simulate {
		if err := s.simulate(ctx, b, head+1); err != nil {
			rep.Reason = err.Error()
			rep.finishRelay(nil)
			return rep, err
		}
	}

	blocks := s.Blocks
	if blocks <= 0 {
		blocks = 1
	}
	inFlight := s.MaxInFlight
	if inFlight <= 0 {
		inFlight = 1
	}

	attempts := make([]Attempt, blocks)
	var included atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inFlight)
	issued := 0
	for i := 0; i < blocks; i++ {
		if included.Load() || gctx.Err() != nil {
			break
		}
		a := &attempts[i]
		a.TargetBlock = head + 1 + uint64(i)
		issued++
		g.Go(func() error {
			return s.attempt(gctx, b, a, &included)
		})
	}
	groupErr := g.Wait()

	for _, a := range attempts[:issued] {
		if !a.skipped {
			rep.Attempts = append(rep.Attempts, a)
		}
	}

	switch {
	case included.Load():
		rcpts, _ := lookupReceipts(ctx, s.Chain, b.Txs)
		rep.Outcome = OutcomeFullyIncluded
		rep.finishRelay(rcpts)
		logger.Info("bundle included", zap.Uint64("block", rep.IncludedBlock))
		return rep, nil
	case errors.Is(groupErr, errInclusionTimeout):
		rep.Outcome = OutcomeTimedOut
		rep.Reason = "timed out waiting for inclusion"
		rep.finishRelay(nil)
		return rep, nil
	case errors.Is(groupErr, ErrNonceConsumed):
		rep.Reason = ErrNonceConsumed.Error()
		rcpts, _ := lookupReceipts(ctx, s.Chain, b.Txs)
		rep.finishRelay(rcpts)
		return rep, &SubmissionError{Stage: StageRelayRejected, Index: -1, Err: ErrNonceConsumed}
	case groupErr != nil && !errors.Is(groupErr, context.Canceled):
		rep.Reason = groupErr.Error()
		rep.finishRelay(nil)
		var subErr *SubmissionError
		if errors.As(groupErr, &subErr) {
			return rep, subErr
		}
		return rep, groupErr
	case ctx.Err() != nil:
		rep.Reason = ctx.Err().Error()
		rep.finishRelay(nil)
		return rep, ctx.Err()
	default:
		rep.Reason = fmt.Sprintf("not included after %d blocks", len(rep.Attempts))
		rep.finishRelay(nil)
		return rep, nil
	}
}

// attempt submits b for a.TargetBlock, waits for that block and checks
// whether the bundle landed.
func (s *RelayStrategy) attempt(ctx context.Context, b *Bundle, a *Attempt, included *atomic.Bool) error {
	if included.Load() || ctx.Err() != nil {
		a.skipped = true
		return nil
	}
	logger := s.logger().With(zap.Uint64("target_block", a.TargetBlock))

	s.broadcast(ctx, b, a, logger)
	if len(a.Accepted) == 0 && a.Permanent {
		return &SubmissionError{Stage: StageRelayRejected, Index: -1, TargetBlock: a.TargetBlock, Err: joinRejections(a.Rejected)}
	}

	timeout := s.InclusionTimeout
	if timeout <= 0 {
		timeout = defaultInclusionTimeout
	}
	poll := s.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := waitForBlock(waitCtx, s.Chain, a.TargetBlock, poll); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.TimedOut = true
		logger.Warn("gave up waiting for target block", zap.Duration("timeout", timeout))
		return errInclusionTimeout
	}

	_, found := lookupReceipts(ctx, s.Chain, b.Txs)
	switch {
	case found == len(b.Txs):
		a.Included = true
		included.Store(true)
		return errIncluded
	case found > 0:
		logger.Warn("bundle nonce consumed by another transaction", zap.Int("found", found))
		return ErrNonceConsumed
	}
	logger.Info("bundle not included", zap.Strings("accepted_by", a.Accepted))
	return nil
}

type relayAnswer struct {
	name string
	hash common.Hash
	err  error
}

// broadcast sends the bundle to every relay in parallel.
func (s *RelayStrategy) broadcast(ctx context.Context, b *Bundle, a *Attempt, logger *zap.Logger) {
	answers := make(chan relayAnswer, len(s.Relays))
	for _, r := range s.Relays {
		r := r
		go func() {
			h, err := r.SendBundle(ctx, b.Txs, a.TargetBlock)
			answers <- relayAnswer{name: r.Name(), hash: h, err: err}
		}()
	}

	permanent := 0
	for range s.Relays {
		ans := <-answers
		switch {
		case ans.err == nil:
			a.Accepted = append(a.Accepted, ans.name)
			telemetry.RelayAttemptsCounter.WithLabelValues(ans.name, "accepted").Inc()
			logger.Info("bundle submitted", zap.String("relay", ans.name), zap.String("bundle_hash", ans.hash.Hex()))
		case errors.Is(ans.err, ErrPermanentRejection):
			permanent++
			if a.Rejected == nil {
				a.Rejected = make(map[string]error)
			}
			a.Rejected[ans.name] = ans.err
			telemetry.RelayAttemptsCounter.WithLabelValues(ans.name, "permanent").Inc()
			logger.Error("bundle rejected permanently", zap.String("relay", ans.name), zap.Error(ans.err))
		default:
			if a.Rejected == nil {
				a.Rejected = make(map[string]error)
			}
			a.Rejected[ans.name] = ans.err
			telemetry.RelayAttemptsCounter.WithLabelValues(ans.name, "rejected").Inc()
			logger.Warn("bundle rejected", zap.String("relay", ans.name), zap.Error(ans.err))
		}
	}
	a.Permanent = permanent == len(s.Relays)
}

// simulate asks the first relay that can answer. Only a revert is fatal.
func (s *RelayStrategy) simulate(ctx context.Context, b *Bundle, target uint64) error {
	logger := s.logger()
	for _, r := range s.Relays {
		sim, ok := r.(Simulator)
		if !ok {
			continue
		}
		err := sim.SimulateBundle(ctx, b.Txs, target)
		switch {
		case err == nil:
			logger.Info("bundle simulation ok", zap.String("relay", r.Name()), zap.Uint64("block", target))
			return nil
		case errors.Is(err, ErrSimulationReverted):
			return &SubmissionError{Stage: StageSimulation, Index: -1, TargetBlock: target, Err: err}
		default:
			logger.Warn("bundle simulation unavailable", zap.String("relay", r.Name()), zap.Error(err))
		}
	}
	logger.Warn("no relay could simulate the bundle, sending anyway")
	return nil
}

func joinRejections(rejected map[string]error) error {
	names := make([]string, 0, len(rejected))
	for name := range rejected {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, rejected[name]))
	}
	return errors.Join(errs...)
}
