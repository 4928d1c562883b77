package flashbots

import (
	"encoding/json"
	"fmt"
)

type rpcReq struct {
	Jsonrpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

type rpcResp struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object returned by a relay.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// HTTPError is a non-200 reply without a JSON-RPC error body.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

type bundleParams struct {
	Txs              []string `json:"txs"`
	BlockNumber      string   `json:"blockNumber"`
	StateBlockNumber string   `json:"stateBlockNumber,omitempty"`
	ReplacementUUID  string   `json:"replacementUuid,omitempty"`
}

// blxrBundleParams is the bloXroute Cloud-API bundle shape: raw txs without
// 0x and snake_case keys, sent as a single params object.
type blxrBundleParams struct {
	Transaction      []string `json:"transaction"`
	BlockNumber      string   `json:"block_number"`
	StateBlockNumber string   `json:"state_block_number,omitempty"`
}

type sendBundleResult struct {
	BundleHash string `json:"bundleHash"`
}

type callBundleTx struct {
	TxHash string `json:"txHash"`
	Error  string `json:"error,omitempty"`
	Revert string `json:"revert,omitempty"`
}

type callBundleResult struct {
	BundleHash   string         `json:"bundleHash"`
	TotalGasUsed uint64         `json:"totalGasUsed"`
	Results      []callBundleTx `json:"results"`
}
