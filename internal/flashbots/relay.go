package flashbots

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/ligun0805/nft-bundle-buy/internal/bundlecore"
)

const defaultHTTPTimeout = 12 * time.Second

// Client speaks the bundle JSON-RPC dialect directly over HTTP. It is used for
// matchmakers and builders that the w3 client does not cover.
type Client struct {
	url             string
	name            string
	authKey         *ecdsa.PrivateKey
	httpc           *http.Client
	headers         map[string]string
	replacementUUID string
	logger          *zap.Logger
	// blxr selects the bloXroute blxr_* methods and body format.
	blxr bool
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpc = h } }

func WithHeaders(h map[string]string) Option { return func(c *Client) { c.headers = h } }

// WithReplacementUUID tags every bundle so a later submission replaces the
// earlier one at the relay.
func WithReplacementUUID(id string) Option { return func(c *Client) { c.replacementUUID = id } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient signs requests with authKey, which only identifies the searcher.
func NewClient(url string, authKey *ecdsa.PrivateKey, opts ...Option) *Client {
	c := &Client{
		url:     strings.TrimSpace(url),
		name:    relayName(url),
		authKey: authKey,
		httpc:   &http.Client{Timeout: defaultHTTPTimeout},
		logger:  zap.NewNop(),
		blxr:    isBloxroute(url),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

func (c *Client) signBody(b []byte) (string, error) {
	addr := crypto.PubkeyToAddress(c.authKey.PublicKey)
	sig, err := crypto.Sign(crypto.Keccak256(b), c.authKey)
	if err != nil {
		return "", err
	}
	return addr.Hex() + ":" + hexutil.Encode(sig), nil
}

// rpc posts one JSON-RPC call. params is sent as is, so callers wrap
// positional params in a slice.
func (c *Client) rpc(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcReq{Jsonrpc: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.authKey != nil {
		sig, err := c.signBody(body)
		if err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
		req.Header.Set("X-Flashbots-Signature", sig)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out rpcResp
	decErr := json.Unmarshal(rb, &out)
	switch {
	case decErr == nil && out.Error != nil:
		return nil, out.Error
	case resp.StatusCode != http.StatusOK:
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(rb))}
	case decErr != nil:
		return nil, decErr
	}
	return out.Result, nil
}

func (c *Client) params(txs types.Transactions, targetBlock uint64) (bundleParams, error) {
	p := bundleParams{
		Txs:             make([]string, len(txs)),
		BlockNumber:     hexutil.EncodeUint64(targetBlock),
		ReplacementUUID: c.replacementUUID,
	}
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return p, err
		}
		p.Txs[i] = hexutil.Encode(raw)
	}
	return p, nil
}

// SendBundle tries eth_sendBundle and falls back to mev_sendBundle for
// relays that only know the latter. bloXroute hosts get blxr_submit_bundle.
func (c *Client) SendBundle(ctx context.Context, txs types.Transactions, targetBlock uint64) (common.Hash, error) {
	p, err := c.params(txs, targetBlock)
	if err != nil {
		return common.Hash{}, err
	}
	var res json.RawMessage
	if c.blxr {
		res, err = c.rpc(ctx, "blxr_submit_bundle", blxrParams(p))
	} else {
		res, err = c.rpc(ctx, "eth_sendBundle", []any{p})
		if err != nil && isMethodNotFound(err) {
			c.logger.Debug("eth_sendBundle unsupported, trying mev_sendBundle", zap.String("relay", c.name))
			res, err = c.rpc(ctx, "mev_sendBundle", []any{p})
		}
	}
	if err != nil {
		return common.Hash{}, classify(err)
	}
	return parseBundleHash(res), nil
}

// SimulateBundle runs eth_callBundle (blxr_simulate_bundle on bloXroute)
// against the latest state.
func (c *Client) SimulateBundle(ctx context.Context, txs types.Transactions, targetBlock uint64) error {
	p, err := c.params(txs, targetBlock)
	if err != nil {
		return err
	}
	p.StateBlockNumber = "latest"
	p.ReplacementUUID = ""
	method, params := "eth_callBundle", any([]any{p})
	if c.blxr {
		method, params = "blxr_simulate_bundle", blxrParams(p)
	}
	res, err := c.rpc(ctx, method, params)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "revert") {
			return fmt.Errorf("%w: %v", bundlecore.ErrSimulationReverted, err)
		}
		return Explain(err)
	}
	var out callBundleResult
	if err := json.Unmarshal(res, &out); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	for i, r := range out.Results {
		if r.Error != "" || r.Revert != "" {
			msg := r.Revert
			if msg == "" {
				msg = r.Error
			}
			return fmt.Errorf("%w: tx %d: %s", bundlecore.ErrSimulationReverted, i, msg)
		}
	}
	c.logger.Debug("bundle simulated", zap.String("relay", c.name), zap.Uint64("gas_used", out.TotalGasUsed))
	return nil
}

func blxrParams(p bundleParams) blxrBundleParams {
	out := blxrBundleParams{
		Transaction:      make([]string, len(p.Txs)),
		BlockNumber:      p.BlockNumber,
		StateBlockNumber: p.StateBlockNumber,
	}
	for i, raw := range p.Txs {
		out.Transaction[i] = strings.TrimPrefix(raw, "0x")
	}
	return out
}

func isBloxroute(url string) bool {
	low := strings.ToLower(url)
	return strings.Contains(low, "blxrbdn.com") || strings.Contains(low, "bloxroute")
}

// parseBundleHash accepts {"bundleHash": "0x.."} or a bare hash string.
func parseBundleHash(raw json.RawMessage) common.Hash {
	var obj sendBundleResult
	if err := json.Unmarshal(raw, &obj); err == nil && obj.BundleHash != "" {
		return common.HexToHash(obj.BundleHash)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return common.HexToHash(s)
	}
	return common.Hash{}
}

// relayName is the host of url, used in logs and metric labels.
func relayName(url string) string {
	u := strings.TrimSpace(url)
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.IndexAny(u, "/?"); i >= 0 {
		u = u[:i]
	}
	return u
}
