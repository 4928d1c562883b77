package bundlecore

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

var (
	selOwnerOf       = common.FromHex("0x6352211e") // ownerOf(uint256)
	selBalanceOf1155 = common.FromHex("0x00fdd58e") // balanceOf(address,uint256)
)

var errShortReturn = errors.New("short return data")

// Holding is what an account holds of one token id before or after a run.
type Holding struct {
	TokenID *big.Int
	// Owner is set for ERC721.
	Owner common.Address
	// Balance is set for ERC1155.
	Balance *big.Int
}

// OwnerOf reads ERC721 ownerOf(id).
func OwnerOf(ctx context.Context, prov Provider, nft common.Address, id *big.Int) (common.Address, error) {
	data := append(append([]byte{}, selOwnerOf...), common.LeftPadBytes(id.Bytes(), 32)...)
	ret, err := callWithRetry(ctx, prov, ethereum.CallMsg{To: &nft, Data: data})
	if err != nil {
		return common.Address{}, err
	}
	if len(ret) < 32 {
		return common.Address{}, errShortReturn
	}
	return common.BytesToAddress(ret[len(ret)-20:]), nil
}

// BalanceOf reads ERC1155 balanceOf(account, id).
func BalanceOf(ctx context.Context, prov Provider, nft, account common.Address, id *big.Int) (*big.Int, error) {
	data := append(append([]byte{}, selBalanceOf1155...), common.LeftPadBytes(account.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(id.Bytes(), 32)...)
	ret, err := callWithRetry(ctx, prov, ethereum.CallMsg{To: &nft, Data: data})
	if err != nil {
		return nil, err
	}
	if len(ret) < 32 {
		return nil, errShortReturn
	}
	return new(big.Int).SetBytes(ret[len(ret)-32:]), nil
}

// Holdings reads the current holding of account for every requested id.
func Holdings(ctx context.Context, prov Provider, std order.Standard, nft, account common.Address, ids []*big.Int) ([]Holding, error) {
	out := make([]Holding, len(ids))
	for i, id := range ids {
		out[i].TokenID = id
		switch std {
		case order.ERC721:
			owner, err := OwnerOf(ctx, prov, nft, id)
			if err != nil {
				return nil, fmt.Errorf("ownerOf(%s): %w", id, err)
			}
			out[i].Owner = owner
		case order.ERC1155:
			bal, err := BalanceOf(ctx, prov, nft, account, id)
			if err != nil {
				return nil, fmt.Errorf("balanceOf(%s): %w", id, err)
			}
			out[i].Balance = bal
		default:
			return nil, order.ErrUnsupportedStandard
		}
	}
	return out, nil
}
