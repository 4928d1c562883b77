package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/nft-bundle-buy/internal/bundlecore"
	"github.com/ligun0805/nft-bundle-buy/internal/config"
	"github.com/ligun0805/nft-bundle-buy/internal/ingest"
	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

// applyFlags lets non-zero command flags override env settings.
func (x *Buy) applyFlags(st *config.Settings) {
	if len(x.Relays) > 0 {
		st.Relays = x.Relays
	}
	if x.Public {
		st.Relays = nil
	}
	if x.Blocks > 0 {
		st.Blocks = x.Blocks
	}
	if x.MaxInFlight > 0 {
		st.MaxInFlight = x.MaxInFlight
	}
	if x.TipGwei > 0 {
		st.TipGwei = x.TipGwei
	}
	if x.TipMode != "" {
		st.TipMode = strings.ToLower(x.TipMode)
	}
	if x.EstimateGas {
		st.EstimateGas = true
	}
	if x.NoSimulate {
		st.Simulate = false
	}
	if x.Verifier != "" {
		st.BriberAddress = x.Verifier
	}
}

// request assembles the purchase request from flags and the optional file.
func (x *Buy) request() (order.PurchaseRequest, error) {
	std, err := order.ParseStandard(x.Standard)
	if err != nil {
		return order.PurchaseRequest{}, err
	}
	if !common.IsHexAddress(x.Contract) {
		return order.PurchaseRequest{}, fmt.Errorf("bad contract address %q", x.Contract)
	}
	var items []order.Item
	if x.File != "" {
		if items, err = ingest.ReadFile(x.File); err != nil {
			return order.PurchaseRequest{}, err
		}
	}
	if len(x.IDs) > 0 {
		more, err := ingest.ParseArgs(x.IDs)
		if err != nil {
			return order.PurchaseRequest{}, err
		}
		items = append(items, more...)
	}
	if len(items) == 0 {
		return order.PurchaseRequest{}, errors.New("no token ids: use --id or --file")
	}
	return order.PurchaseRequest{Standard: std, Contract: common.HexToAddress(x.Contract), Items: items}, nil
}

func buildParams(st config.Settings, keyHex string, req order.PurchaseRequest, recipient string, bribeETH string, dryRun bool) (bundlecore.Params, error) {
	p := bundlecore.Params{
		PrivateKeyHex: keyHex,
		Request:       req,
		Fees: bundlecore.FeeConfig{
			TipGwei:       st.TipGwei,
			TipMode:       st.TipMode,
			TipWindow:     st.TipWindow,
			TipPercentile: st.TipPercentile,
			BaseFeeBumps:  st.BaseFeeBumps,
		},
		EstimateGas:      st.EstimateGas,
		BufferPct:        st.BufferPct,
		DryRun:           dryRun,
		Blocks:           st.Blocks,
		MaxInFlight:      st.MaxInFlight,
		InclusionTimeout: st.InclusionTimeout,
		ReceiptTimeout:   st.ReceiptTimeout,
		PollInterval:     st.PollInterval,
		Simulate:         st.Simulate,
	}
	if recipient != "" {
		if !common.IsHexAddress(recipient) {
			return p, fmt.Errorf("bad recipient address %q", recipient)
		}
		p.Recipient = common.HexToAddress(recipient)
	}
	if st.BriberAddress != "" {
		if !common.IsHexAddress(st.BriberAddress) {
			return p, fmt.Errorf("bad BRIBER_ADDRESS %q", st.BriberAddress)
		}
		p.Verifier = common.HexToAddress(st.BriberAddress)
	}
	bribe, err := parseETH(bribeETH)
	if err != nil {
		return p, fmt.Errorf("--bribe: %w", err)
	}
	if bribe.Sign() > 0 {
		p.Bribe = bribe
	}
	return p, nil
}
