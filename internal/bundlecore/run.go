package bundlecore

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ligun0805/nft-bundle-buy/internal/briber"
	"github.com/ligun0805/nft-bundle-buy/internal/order"
	"github.com/ligun0805/nft-bundle-buy/internal/wyvern"
)

// listingTimeSkew keeps the counter-order listing time safely in the past.
const listingTimeSkew = 100

// Run resolves the requested orders, encodes one settlement per item plus the
// optional verifier call, signs them with consecutive nonces and submits the
// bundle: through p.Relays when set, otherwise to the public pool.
func Run(ctx context.Context, prov Provider, src order.Source, p Params) (*Result, error) {
	logger := p.logger()
	if err := p.Request.Validate(); err != nil {
		return nil, err
	}
	buyer, err := AddressFromKey(p.PrivateKeyHex)
	if err != nil {
		return nil, err
	}
	recipient := p.Recipient
	if recipient == (common.Address{}) {
		recipient = buyer
	}
	if p.Bribe != nil && p.Bribe.Sign() < 0 {
		return nil, briber.ErrNegativeBribe
	}
	chainID := p.ChainID
	if chainID == nil {
		if chainID, err = prov.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
	}
	logger = logger.With(zap.String("buyer", buyer.Hex()), zap.String("contract", p.Request.Contract.Hex()))

	resolver := &order.Resolver{Source: src, Concurrency: p.ResolveConcurrency, Logger: logger}
	orders, err := resolver.Resolve(ctx, p.Request)
	if err != nil {
		return nil, err
	}
	res := &Result{Orders: orders}

	head, err := prov.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("head header: %w", err)
	}
	fees, err := SuggestFees(ctx, prov, head.BaseFee, p.Fees, logger)
	if err != nil {
		return nil, err
	}
	listingTime := head.Time
	if listingTime > listingTimeSkew {
		listingTime -= listingTimeSkew
	}

	calls, totalGas, err := settlementCalls(ctx, prov, orders, p, buyer, recipient, listingTime, logger)
	if err != nil {
		return nil, err
	}

	res.Before, err = Holdings(ctx, prov, p.Request.Standard, p.Request.Contract, recipient, p.Request.TokenIDs())
	if err != nil {
		logger.Warn("could not read holdings", zap.Error(err))
	} else {
		logHoldings(logger, "holdings before", res.Before)
	}

	hasBribe := p.Bribe != nil && p.Bribe.Sign() > 0
	switch {
	case hasBribe && p.Verifier != (common.Address{}):
		vc, err := verifierCall(p, recipient, res.Before)
		if err != nil {
			return nil, err
		}
		calls = append(calls, Call{To: vc.To, Data: vc.Data, Value: vc.Value, Gas: vc.Gas, Label: "verifier"})
	case hasBribe && len(p.Relays) > 0:
		fees = splitBribe(fees, p.Bribe, totalGas)
		logger.Info("bribe paid as priority fee", zap.String("tip_gwei", fmtGwei(fees.TipCap)))
	case hasBribe:
		logger.Warn("bribe ignored: no verifier and no relay")
	}

	nonce, err := prov.PendingNonceAt(ctx, buyer)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	b, err := BuildBundle(p.PrivateKeyHex, chainID, nonce, fees, calls)
	if err != nil {
		return nil, err
	}
	res.Bundle = b
	logger.Info("bundle signed",
		zap.Int("txs", len(b.Txs)),
		zap.Uint64("base_nonce", b.BaseNonce),
		zap.String("value_eth", fmtETH(b.TotalValue())),
		zap.String("max_cost_eth", fmtETH(b.MaxCost())),
	)

	bal, err := balanceWithRetry(ctx, prov, buyer)
	switch {
	case err != nil:
		logger.Warn("could not read buyer balance", zap.Error(err))
	case bal.Cmp(b.MaxCost()) < 0:
		if !p.DryRun {
			return res, fmt.Errorf("%w: need %s ETH, have %s ETH", ErrInsufficientFunds, fmtETH(b.MaxCost()), fmtETH(bal))
		}
		logger.Warn("balance below max cost", zap.String("balance_eth", fmtETH(bal)))
	}

	if p.DryRun {
		for i, raw := range b.RawHex() {
			logger.Info("dry run tx", zap.Int("index", i), zap.String("label", b.Label(i)), zap.String("raw", raw))
		}
		return res, nil
	}

	var rep *Report
	if len(p.Relays) > 0 {
		s := &RelayStrategy{
			Relays:           p.Relays,
			Chain:            prov,
			Blocks:           p.Blocks,
			MaxInFlight:      p.MaxInFlight,
			InclusionTimeout: p.InclusionTimeout,
			PollInterval:     p.PollInterval,
			Simulate:         p.Simulate,
			Logger:           logger,
		}
		rep, err = s.Submit(ctx, b)
	} else {
		logger.Warn("no relay configured, broadcasting publicly without atomicity")
		s := &PublicStrategy{Chain: prov, ReceiptTimeout: p.ReceiptTimeout, PollInterval: p.PollInterval, Logger: logger}
		rep, err = s.Submit(ctx, b)
	}
	res.Report = rep
	if rep != nil {
		logger.Info("submission finished", zap.String("path", string(rep.Path)), zap.Stringer("outcome", rep.Outcome))
	}

	if after, herr := Holdings(ctx, prov, p.Request.Standard, p.Request.Contract, recipient, p.Request.TokenIDs()); herr == nil {
		res.After = after
		logHoldings(logger, "holdings after", after)
	}
	return res, err
}

// settlementCalls encodes one call per resolved order, in request order.
func settlementCalls(ctx context.Context, prov Provider, orders []order.Order, p Params, buyer, recipient common.Address, listingTime uint64, logger *zap.Logger) ([]Call, uint64, error) {
	calls := make([]Call, 0, len(orders)+1)
	var total uint64
	for i := range orders {
		o := &orders[i]
		qty := p.Request.Items[i].Quantity
		if avail := o.Available(); o.Standard == order.ERC1155 && avail.IsUint64() && qty < avail.Uint64() {
			logger.Warn("partial fill of listing",
				zap.Stringer("token_id", o.TokenID),
				zap.Uint64("quantity", qty),
				zap.Stringer("available", avail),
			)
		}
		salt, err := randomSalt()
		if err != nil {
			return nil, 0, &wyvern.EncodingError{TokenID: o.TokenID, Err: err}
		}
		fp := wyvern.FillParams{Buyer: buyer, Recipient: recipient, ListingTime: listingTime, Salt: salt}
		sc, err := wyvern.Encode(o, qty, fp)
		if err != nil {
			return nil, 0, err
		}
		if p.EstimateGas {
			to := sc.To
			est, err := estimateGasWithRetry(ctx, prov, ethereum.CallMsg{From: buyer, To: &to, Value: sc.Value, Data: sc.Data})
			if err != nil || est == 0 {
				logger.Warn("estimateGas failed, using default", zap.Stringer("token_id", sc.TokenID), zap.Uint64("gas", sc.Gas), zap.Error(err))
			} else {
				sc.Gas = withBuffer(est, p.BufferPct)
			}
		}
		calls = append(calls, Call{
			To:    sc.To,
			Data:  sc.Data,
			Value: sc.Value,
			Gas:   sc.Gas,
			Label: fmt.Sprintf("settle %s x%d", sc.TokenID, sc.Quantity),
		})
		total += sc.Gas
		logger.Info("settlement encoded",
			zap.Int("index", i),
			zap.Stringer("token_id", sc.TokenID),
			zap.Uint64("quantity", sc.Quantity),
			zap.String("value_eth", fmtETH(sc.Value)),
			zap.Uint64("gas", sc.Gas),
		)
	}
	return calls, total, nil
}

// verifierCall expects the recipient to own every ERC721 id, or to hold its
// previous ERC1155 balance plus the bought quantity.
func verifierCall(p Params, recipient common.Address, before []Holding) (briber.VerifierCall, error) {
	is1155 := p.Request.Standard == order.ERC1155
	if is1155 && len(before) != len(p.Request.Items) {
		return briber.VerifierCall{}, errors.New("pre-purchase balances unavailable for verifier")
	}
	exp := make([]briber.Expectation, len(p.Request.Items))
	for i, it := range p.Request.Items {
		exp[i] = briber.Expectation{TokenID: it.TokenID}
		if is1155 {
			prev := before[i].Balance
			if prev == nil {
				prev = new(big.Int)
			}
			exp[i].Balance = new(big.Int).Add(prev, new(big.Int).SetUint64(it.Quantity))
		}
	}
	return briber.Encode(briber.VerifyParams{
		Verifier: p.Verifier,
		Standard: p.Request.Standard,
		NFT:      p.Request.Contract,
		Owner:    recipient,
		Expected: exp,
		Bribe:    p.Bribe,
	})
}

func logHoldings(logger *zap.Logger, msg string, hs []Holding) {
	for _, h := range hs {
		fields := []zap.Field{zap.Stringer("token_id", h.TokenID)}
		if h.Balance != nil {
			fields = append(fields, zap.Stringer("balance", h.Balance))
		} else {
			fields = append(fields, zap.String("owner", h.Owner.Hex()))
		}
		logger.Info(msg, fields...)
	}
}
