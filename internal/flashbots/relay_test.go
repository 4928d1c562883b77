package flashbots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/nft-bundle-buy/internal/bundlecore"
)

const relayURL = "https://relay.example.org/rpc"

func signedTxs(t *testing.T, n int) types.Transactions {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	chainID := big.NewInt(1)
	to := common.HexToAddress("0x7be8076f4ea4a4ad08075c2508e481d6c946d12b")
	out := make(types.Transactions, n)
	for i := 0; i < n; i++ {
		tx := types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     uint64(i),
			Gas:       21_000,
			GasTipCap: big.NewInt(1),
			GasFeeCap: big.NewInt(2),
			To:        &to,
			Value:     big.NewInt(0),
		})
		signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
		require.NoError(t, err)
		out[i] = signed
	}
	return out
}

func newMockedClient(t *testing.T, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: mt})}, opts...)
	return NewClient(relayURL, key, opts...), mt
}

func decodeReq(t *testing.T, req *http.Request) (rpcReq, bundleParams) {
	t.Helper()
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var raw struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	require.NoError(t, json.Unmarshal(body, &raw))
	require.Len(t, raw.Params, 1)
	var p bundleParams
	require.NoError(t, json.Unmarshal(raw.Params[0], &p))
	return rpcReq{Method: raw.Method}, p
}

func TestClientSendBundle(t *testing.T) {
	c, mt := newMockedClient(t, WithReplacementUUID("4b1b0f8e-7c0b-4b8c-9d6c-0c1b2a3d4e5f"))
	txs := signedTxs(t, 2)

	mt.RegisterResponder(http.MethodPost, relayURL, func(req *http.Request) (*http.Response, error) {
		sig := req.Header.Get("X-Flashbots-Signature")
		parts := strings.Split(sig, ":")
		assert.Len(t, parts, 2)
		assert.True(t, common.IsHexAddress(parts[0]))

		r, p := decodeReq(t, req)
		assert.Equal(t, "eth_sendBundle", r.Method)
		assert.Equal(t, hexutil.EncodeUint64(101), p.BlockNumber)
		assert.Len(t, p.Txs, 2)
		assert.Equal(t, "4b1b0f8e-7c0b-4b8c-9d6c-0c1b2a3d4e5f", p.ReplacementUUID)
		return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"result":{"bundleHash":"0x00000000000000000000000000000000000000000000000000000000000000ab"}}`), nil
	})

	hash, err := c.SendBundle(context.Background(), txs, 101)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xab"), hash)
	assert.Equal(t, "relay.example.org", c.Name())
}

func TestClientSendBundleFallsBackToMevSendBundle(t *testing.T) {
	c, mt := newMockedClient(t)
	var methods []string
	mt.RegisterResponder(http.MethodPost, relayURL, func(req *http.Request) (*http.Response, error) {
		r, _ := decodeReq(t, req)
		methods = append(methods, r.Method)
		if r.Method == "eth_sendBundle" {
			return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`), nil
		}
		return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"result":"0x00000000000000000000000000000000000000000000000000000000000000cd"}`), nil
	})

	hash, err := c.SendBundle(context.Background(), signedTxs(t, 1), 7)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xcd"), hash)
	assert.Equal(t, []string{"eth_sendBundle", "mev_sendBundle"}, methods)
}

func TestClientSendBundleRejections(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
	}{
		{"nonce too low", 200, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"nonce too low"}}`, true},
		{"bad request", 400, `bad request`, true},
		{"rate limited", 429, `Too Many Requests`, false},
		{"busy", 200, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"relay busy, try later"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt := newMockedClient(t)
			mt.RegisterResponder(http.MethodPost, relayURL, httpmock.NewStringResponder(tt.status, tt.body))

			_, err := c.SendBundle(context.Background(), signedTxs(t, 1), 7)
			require.Error(t, err)
			assert.Equal(t, tt.permanent, errorsIsPermanent(err))
		})
	}
}

func errorsIsPermanent(err error) bool {
	return errors.Is(err, bundlecore.ErrPermanentRejection)
}

func TestClientSimulateBundle(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		reverted bool
		wantErr  bool
	}{
		{"ok", `{"jsonrpc":"2.0","id":1,"result":{"totalGasUsed":42000,"results":[{"txHash":"0x01"},{"txHash":"0x02"}]}}`, false, false},
		{"revert", `{"jsonrpc":"2.0","id":1,"result":{"results":[{"txHash":"0x01"},{"txHash":"0x02","revert":"not owner"}]}}`, true, true},
		{"unsupported", `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt := newMockedClient(t)
			mt.RegisterResponder(http.MethodPost, relayURL, func(req *http.Request) (*http.Response, error) {
				r, p := decodeReq(t, req)
				assert.Equal(t, "eth_callBundle", r.Method)
				assert.Equal(t, "latest", p.StateBlockNumber)
				return httpmock.NewStringResponse(200, tt.body), nil
			})

			err := c.SimulateBundle(context.Background(), signedTxs(t, 2), 9)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.reverted, isReverted(err))
		})
	}
}

func TestClientBloxrouteBody(t *testing.T) {
	const blxrURL = "https://api.blxrbdn.com"
	mt := httpmock.NewMockTransport()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	c := NewClient(blxrURL, key, WithHTTPClient(&http.Client{Transport: mt}))
	txs := signedTxs(t, 2)

	var methods []string
	mt.RegisterResponder(http.MethodPost, blxrURL, func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		var raw struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.Unmarshal(body, &raw))
		methods = append(methods, raw.Method)
		var p blxrBundleParams
		require.NoError(t, json.Unmarshal(raw.Params, &p), "params must be a single object")
		require.Len(t, p.Transaction, 2)
		for i, tx := range p.Transaction {
			assert.False(t, strings.HasPrefix(tx, "0x"))
			want, err := txs[i].MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, common.Bytes2Hex(want), tx)
		}
		assert.Equal(t, "0x11", p.BlockNumber)
		if raw.Method == "blxr_simulate_bundle" {
			assert.Equal(t, "latest", p.StateBlockNumber)
			return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"result":{"results":[{"txHash":"0x01"},{"txHash":"0x02"}]}}`), nil
		}
		assert.Empty(t, p.StateBlockNumber)
		return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"result":{"bundleHash":"0x`+strings.Repeat("ab", 32)+`"}}`), nil
	})

	require.NoError(t, c.SimulateBundle(context.Background(), txs, 17))
	h, err := c.SendBundle(context.Background(), txs, 17)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x"+strings.Repeat("ab", 32)), h)
	assert.Equal(t, []string{"blxr_simulate_bundle", "blxr_submit_bundle"}, methods)
}

func isReverted(err error) bool {
	return errors.Is(err, bundlecore.ErrSimulationReverted)
}

func TestDialClassifiesRelays(t *testing.T) {
	relays, err := Dial([]string{
		" ",
		"mm:https://mm.example.org",
		"mev:https://mev-share.example.org",
		"https://cloud-api.blxrbdn.com",
	}, DialOptions{})
	require.NoError(t, err)
	require.Len(t, relays, 3)
	for _, r := range relays {
		_, ok := r.(*Client)
		assert.True(t, ok, r.Name())
	}
	assert.False(t, relays[0].(*Client).blxr)
	assert.True(t, relays[2].(*Client).blxr)
	assert.Equal(t, "mm.example.org", relays[0].Name())

	_, err = Dial(nil, DialOptions{})
	assert.ErrorIs(t, err, bundlecore.ErrNoRelay)

	_, err = Dial([]string{"mm:https://x"}, DialOptions{ReplacementUUID: "not-a-uuid"})
	assert.Error(t, err)
}

func TestFriendly(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"400 Bad Request: method not found", "simulation not supported by relay"},
		{"insufficient funds for gas * price + value", "insufficient ETH for simulation"},
		{"invalid character '<' looking for beginning of value", "non-JSON/HTML response (proxy/cf?)"},
		{"dial tcp 1.2.3.4:443: i/o timeout", "network/DNS error"},
		{"something else", "something else"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Friendly(errString(tt.in)))
	}
	assert.Empty(t, Friendly(nil))
}

func TestExplainKeepsChain(t *testing.T) {
	assert.NoError(t, Explain(nil))

	inner := &bundlecore.SubmissionError{Stage: bundlecore.StageSimulation, Index: -1, Err: &RPCError{Code: -32601, Message: "method not found"}}
	err := fmt.Errorf("run: %w", inner)
	got := Explain(err)
	assert.True(t, strings.HasPrefix(got.Error(), "simulation not supported by relay: "))
	var se *bundlecore.SubmissionError
	require.True(t, errors.As(got, &se))
	assert.Equal(t, bundlecore.StageSimulation, se.Stage)
	var rpcErr *RPCError
	require.True(t, errors.As(got, &rpcErr))
	assert.Equal(t, -32601, rpcErr.Code)

	plain := errString("something else")
	assert.Equal(t, error(plain), Explain(plain))
}

type errString string

func (e errString) Error() string { return string(e) }
