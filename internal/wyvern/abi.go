package wyvern

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ExchangeAddress is the OpenSea Wyvern v2 exchange on mainnet.
	ExchangeAddress = common.HexToAddress("0x7be8076f4ea4a4ad08075c2508e481d6c946d12b")
	// FeeRecipient is the OpenSea fee recipient used on sell orders.
	FeeRecipient = common.HexToAddress("0x5b3256965e7c3cf26e11fcaf296dfc8807c01073")
)

const exchangeABIJSON = `[
  {"type":"function","name":"atomicMatch_","stateMutability":"payable","outputs":[],"inputs":[
    {"name":"addrs","type":"address[14]"},
    {"name":"uints","type":"uint256[18]"},
    {"name":"feeMethodsSidesKindsHowToCalls","type":"uint8[8]"},
    {"name":"calldataBuy","type":"bytes"},
    {"name":"calldataSell","type":"bytes"},
    {"name":"replacementPatternBuy","type":"bytes"},
    {"name":"replacementPatternSell","type":"bytes"},
    {"name":"staticExtradataBuy","type":"bytes"},
    {"name":"staticExtradataSell","type":"bytes"},
    {"name":"vs","type":"uint8[2]"},
    {"name":"rssMetadata","type":"bytes32[5]"}
  ]}
]`

const transferABIJSON = `[
  {"type":"function","name":"transferFrom","stateMutability":"nonpayable","outputs":[],"inputs":[
    {"name":"from","type":"address"},
    {"name":"to","type":"address"},
    {"name":"tokenId","type":"uint256"}
  ]},
  {"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable","outputs":[],"inputs":[
    {"name":"from","type":"address"},
    {"name":"to","type":"address"},
    {"name":"id","type":"uint256"},
    {"name":"amount","type":"uint256"},
    {"name":"data","type":"bytes"}
  ]}
]`

var (
	exchangeABI abi.ABI
	transferABI abi.ABI
)

func init() {
	exchangeABI = mustParseABI(exchangeABIJSON)
	transferABI = mustParseABI(transferABIJSON)
}

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
