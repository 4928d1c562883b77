package order

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Standard is the token standard of the NFT contract being bought.
type Standard int

const (
	ERC721 Standard = iota + 1
	ERC1155
)

func (s Standard) String() string {
	switch s {
	case ERC721:
		return "ERC721"
	case ERC1155:
		return "ERC1155"
	default:
		return fmt.Sprintf("Standard(%d)", int(s))
	}
}

// ParseStandard accepts "erc721", "721", "erc1155" or "1155" in any case.
func ParseStandard(s string) (Standard, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERC721", "721":
		return ERC721, nil
	case "ERC1155", "1155":
		return ERC1155, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedStandard, s)
}

// Wyvern enum values.
const (
	SideBuy  uint8 = 0
	SideSell uint8 = 1

	SaleKindFixedPrice   uint8 = 0
	SaleKindDutchAuction uint8 = 1

	FeeMethodProtocolFee uint8 = 0
	FeeMethodSplitFee    uint8 = 1
)

// Order is one active marketplace sell listing. Values are never mutated
// after the orderbook client builds them.
type Order struct {
	Exchange     common.Address
	Maker        common.Address
	Taker        common.Address
	FeeRecipient common.Address
	Target       common.Address
	StaticTarget common.Address
	PaymentToken common.Address

	MakerRelayerFee  *big.Int
	TakerRelayerFee  *big.Int
	MakerProtocolFee *big.Int
	TakerProtocolFee *big.Int

	BasePrice      *big.Int
	CurrentPrice   *big.Int
	Extra          *big.Int
	ListingTime    uint64
	ExpirationTime uint64
	Salt           *big.Int

	FeeMethod uint8
	Side      uint8
	SaleKind  uint8
	HowToCall uint8

	Calldata           []byte
	ReplacementPattern []byte
	StaticExtradata    []byte

	V uint8
	R common.Hash
	S common.Hash

	// Asset being sold.
	Contract common.Address
	TokenID  *big.Int
	Standard Standard
	Quantity *big.Int

	Cancelled     bool
	Finalized     bool
	MarkedInvalid bool
}

// Price is what the taker pays for the whole order before taker fees.
func (o *Order) Price() *big.Int {
	if o.CurrentPrice != nil && o.CurrentPrice.Sign() > 0 {
		return o.CurrentPrice
	}
	if o.BasePrice != nil {
		return o.BasePrice
	}
	return new(big.Int)
}

// Available returns the listed quantity; ERC721 listings always carry one token.
func (o *Order) Available() *big.Int {
	if o.Standard == ERC721 {
		return big.NewInt(1)
	}
	if o.Quantity == nil || o.Quantity.Sign() <= 0 {
		return big.NewInt(1)
	}
	return o.Quantity
}

// Active reports whether the orderbook still considers the listing fillable.
func (o *Order) Active() bool {
	return !o.Cancelled && !o.Finalized && !o.MarkedInvalid
}

// Item is one (token id, quantity) entry of a purchase.
type Item struct {
	TokenID  *big.Int
	Quantity uint64
}

// PurchaseRequest is the buyer's intent for one contract.
type PurchaseRequest struct {
	Standard Standard
	Contract common.Address
	Items    []Item
}

// TokenIDs returns the ids in request order.
func (r PurchaseRequest) TokenIDs() []*big.Int {
	ids := make([]*big.Int, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.TokenID
	}
	return ids
}

// Validate checks the request shape without touching the network.
func (r PurchaseRequest) Validate() error {
	if r.Standard != ERC721 && r.Standard != ERC1155 {
		return &RequestError{Index: -1, Err: ErrUnsupportedStandard}
	}
	if r.Contract == (common.Address{}) {
		return &RequestError{Index: -1, Err: ErrZeroContract}
	}
	if len(r.Items) == 0 {
		return &RequestError{Index: -1, Err: ErrEmptyRequest}
	}
	seen := make(map[string]int, len(r.Items))
	for i, it := range r.Items {
		if it.TokenID == nil || it.TokenID.Sign() < 0 {
			return &RequestError{Index: i, Err: ErrInvalidTokenID}
		}
		if _, dup := seen[it.TokenID.String()]; dup {
			return &RequestError{Index: i, TokenID: it.TokenID, Err: ErrDuplicateTokenID}
		}
		seen[it.TokenID.String()] = i
		if it.Quantity == 0 {
			return &RequestError{Index: i, TokenID: it.TokenID, Err: ErrInvalidQuantity}
		}
		if r.Standard == ERC721 && it.Quantity != 1 {
			return &RequestError{Index: i, TokenID: it.TokenID, Err: ErrInvalidQuantity}
		}
	}
	return nil
}
