package bundlecore

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"
)

const (
	TipModeFixed   = "fixed"
	TipModeFeeHist = "feehist"

	defaultTipGwei      = 3
	defaultBaseFeeBumps = 5
	defaultTipWindow    = 20
	defaultPercentile   = 90
)

// FeeConfig selects the EIP-1559 fees for every bundle transaction.
type FeeConfig struct {
	TipGwei int64
	// TipMode is "fixed" (TipGwei, raised to the node suggestion) or
	// "feehist" (max reward percentile over the last TipWindow blocks).
	TipMode       string
	TipWindow     int
	TipPercentile int
	// BaseFeeBumps is how many full base-fee increases (12.5% each) the
	// fee cap absorbs.
	BaseFeeBumps int
}

func (c FeeConfig) withDefaults() FeeConfig {
	if c.TipGwei <= 0 {
		c.TipGwei = defaultTipGwei
	}
	if c.TipMode == "" {
		c.TipMode = TipModeFixed
	}
	if c.TipWindow <= 0 {
		c.TipWindow = defaultTipWindow
	}
	if c.TipPercentile <= 0 || c.TipPercentile > 99 {
		c.TipPercentile = defaultPercentile
	}
	if c.BaseFeeBumps <= 0 {
		c.BaseFeeBumps = defaultBaseFeeBumps
	}
	return c
}

// maxBaseFee is base * (1125/1000)^bumps, the highest base fee reachable after
// bumps consecutive full blocks.
func maxBaseFee(base *big.Int, bumps int) *big.Int {
	out := new(big.Int).Set(base)
	for i := 0; i < bumps; i++ {
		out.Mul(out, big.NewInt(1125))
		out.Div(out, big.NewInt(1000))
	}
	return out
}

// SuggestFees picks the tip according to cfg and caps the fee at
// maxBaseFee(base) + tip.
func SuggestFees(ctx context.Context, prov Provider, base *big.Int, cfg FeeConfig, logger *zap.Logger) (Fees, error) {
	if base == nil {
		return Fees{}, errors.New("no baseFee (pre-1559?)")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	var tip *big.Int
	switch strings.ToLower(cfg.TipMode) {
	case TipModeFeeHist:
		t, err := TipFromFeeHistory(ctx, prov, cfg.TipWindow, cfg.TipPercentile)
		if err != nil {
			logger.Warn("fee history tip unavailable, using fixed tip", zap.Error(err))
			tip = fixedTip(ctx, prov, cfg.TipGwei)
		} else {
			tip = t
		}
	case TipModeFixed:
		tip = fixedTip(ctx, prov, cfg.TipGwei)
	default:
		return Fees{}, fmt.Errorf("%w: unknown tip mode %q", ErrInvalidFees, cfg.TipMode)
	}

	fees := Fees{TipCap: tip, FeeCap: addBig(maxBaseFee(base, cfg.BaseFeeBumps), tip)}
	logger.Info("fees selected",
		zap.String("base_fee_gwei", fmtGwei(base)),
		zap.String("tip_gwei", fmtGwei(fees.TipCap)),
		zap.String("fee_cap_gwei", fmtGwei(fees.FeeCap)),
	)
	return fees, nil
}

// fixedTip is tipGwei, raised to the node's suggestion when that is higher.
func fixedTip(ctx context.Context, prov Provider, tipGwei int64) *big.Int {
	tip := gweiToWei(tipGwei)
	if s, err := prov.SuggestGasTipCap(ctx); err == nil && s != nil && s.Cmp(tip) > 0 {
		return s
	}
	return tip
}

// TipFromFeeHistory returns MAX reward[percentile] over last N blocks.
func TipFromFeeHistory(ctx context.Context, prov Provider, blocks int, percentile int) (*big.Int, error) {
	if blocks <= 0 {
		blocks = defaultTipWindow
	}
	if percentile <= 0 || percentile > 99 {
		percentile = 99
	}
	fh, err := prov.FeeHistory(ctx, uint64(blocks), nil, []float64{float64(percentile)})
	if err != nil {
		return nil, err
	}
	max := big.NewInt(0)
	for _, row := range fh.Reward {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		if row[0].Cmp(max) > 0 {
			max = row[0]
		}
	}
	if max.Sign() == 0 {
		return nil, errors.New("feeHistory: empty reward")
	}
	return new(big.Int).Set(max), nil
}

// splitBribe spreads bribe over totalGas as extra priority fee per gas.
func splitBribe(fees Fees, bribe *big.Int, totalGas uint64) Fees {
	if bribe == nil || bribe.Sign() <= 0 || totalGas == 0 {
		return fees
	}
	perGas := new(big.Int).Div(bribe, new(big.Int).SetUint64(totalGas))
	return Fees{
		TipCap: addBig(fees.TipCap, perGas),
		FeeCap: addBig(fees.FeeCap, perGas),
	}
}
