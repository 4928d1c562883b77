package briber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Backend is what deploying and waiting for the contract needs.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

var ErrEmptyBytecode = errors.New("empty bytecode")

// Deploy publishes the verifier contract and waits until its code is on chain.
func Deploy(ctx context.Context, backend Backend, keyHex string, chainID *big.Int, bytecode []byte, logger *zap.Logger) (common.Address, *types.Transaction, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(bytecode) == 0 {
		return common.Address{}, nil, ErrEmptyBytecode
	}
	opts, err := newTransactor(keyHex, chainID)
	if err != nil {
		return common.Address{}, nil, err
	}
	opts.Context = ctx

	addr, tx, _, err := bind.DeployContract(opts, contractABI, bytecode, backend)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("deploy verifier: %w", err)
	}
	logger.Info("verifier deployment sent",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("address", addr.Hex()),
		zap.Uint64("nonce", tx.Nonce()))

	deployed, err := bind.WaitDeployed(ctx, backend, tx)
	if err != nil {
		return addr, tx, fmt.Errorf("wait deployed: %w", err)
	}
	return deployed, tx, nil
}

func newTransactor(keyHex string, chainID *big.Int) (*bind.TransactOpts, error) {
	h := strings.TrimSpace(strings.TrimPrefix(keyHex, "0x"))
	if h == "" {
		return nil, errors.New("empty private key")
	}
	prv, err := gethcrypto.HexToECDSA(h)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	return bind.NewKeyedTransactorWithChainID(prv, chainID)
}

// ReadBytecode loads creation bytecode from a file holding either raw hex or a
// compiler artifact with a "bytecode" string or {"object": ...} field.
func ReadBytecode(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytecode(raw)
}

// ParseBytecode is ReadBytecode without the file.
func ParseBytecode(raw []byte) ([]byte, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "{") {
		var artifact struct {
			Bytecode json.RawMessage `json:"bytecode"`
		}
		if err := json.Unmarshal([]byte(s), &artifact); err != nil {
			return nil, fmt.Errorf("artifact: %w", err)
		}
		var str string
		if err := json.Unmarshal(artifact.Bytecode, &str); err != nil {
			var obj struct {
				Object string `json:"object"`
			}
			if err := json.Unmarshal(artifact.Bytecode, &obj); err != nil {
				return nil, fmt.Errorf("artifact bytecode: %w", err)
			}
			str = obj.Object
		}
		s = str
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	if len(code) == 0 {
		return nil, ErrEmptyBytecode
	}
	return code, nil
}
