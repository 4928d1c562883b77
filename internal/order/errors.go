package order

import (
	"errors"
	"fmt"
	"math/big"
)

// Resolution failures.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrUnsupportedOrderKind = errors.New("unsupported order kind")
	ErrCurrencyMismatch     = errors.New("currency mismatch")
)

// Request and encoding failures.
var (
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrUnsupportedStandard = errors.New("unsupported token standard")
	ErrEmptyRequest        = errors.New("purchase request has no items")
	ErrZeroContract        = errors.New("purchase request has no contract address")
	ErrInvalidTokenID      = errors.New("invalid token id")
	ErrDuplicateTokenID    = errors.New("token id listed more than once")
)

// ResolutionError ties a resolution failure to the request item it affects.
type ResolutionError struct {
	Index   int
	TokenID *big.Int
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve item %d (token %s): %v", e.Index, tokenString(e.TokenID), e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// RequestError reports a malformed purchase request. Index is -1 when the
// problem is not tied to a single item.
type RequestError struct {
	Index   int
	TokenID *big.Int
	Err     error
}

func (e *RequestError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("purchase request: %v", e.Err)
	}
	return fmt.Sprintf("purchase request item %d (token %s): %v", e.Index, tokenString(e.TokenID), e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func tokenString(id *big.Int) string {
	if id == nil {
		return "?"
	}
	return id.String()
}
