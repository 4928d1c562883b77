package order

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ligun0805/nft-bundle-buy/internal/telemetry"
)

// Source is the orderbook collaborator. FetchSellOrder returns the best active
// sell order for the token, or an error wrapping ErrOrderNotFound.
type Source interface {
	FetchSellOrder(ctx context.Context, contract common.Address, tokenID *big.Int, standard Standard) (*Order, error)
}

const defaultConcurrency = 4

// Resolver turns a PurchaseRequest into one validated Order per item.
type Resolver struct {
	Source Source
	// Currency is what the buyer funds the purchase with; zero means the native coin.
	Currency    common.Address
	Concurrency int
	Now         func() time.Time
	Logger      *zap.Logger
}

// Resolve fetches every item of req concurrently and returns the orders in
// request order. All failing items are reported, joined in request order.
func (r *Resolver) Resolve(ctx context.Context, req PurchaseRequest) ([]Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := r.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	orders := make([]Order, len(req.Items))
	errs := make([]error, len(req.Items))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range req.Items {
		i, item := i, item
		g.Go(func() error {
			o, err := r.resolveOne(ctx, req, item)
			if err != nil {
				errs[i] = &ResolutionError{Index: i, TokenID: item.TokenID, Err: err}
				telemetry.OrdersResolvedCounter.WithLabelValues(resultLabel(err)).Inc()
				logger.Warn("order rejected",
					zap.Int("index", i),
					zap.String("token_id", item.TokenID.String()),
					zap.Error(err))
				return nil
			}
			orders[i] = *o
			telemetry.OrdersResolvedCounter.WithLabelValues("ok").Inc()
			logger.Debug("order resolved",
				zap.Int("index", i),
				zap.String("token_id", item.TokenID.String()),
				zap.String("price", o.Price().String()),
				zap.String("available", o.Available().String()))
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Resolver) resolveOne(ctx context.Context, req PurchaseRequest, item Item) (*Order, error) {
	o, err := r.Source.FetchSellOrder(ctx, req.Contract, item.TokenID, req.Standard)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if err := r.check(o, req, item); err != nil {
		return nil, err
	}
	// Listings that omit the asset are taken to be the one asked for.
	filled := *o
	if filled.TokenID == nil {
		filled.TokenID = new(big.Int).Set(item.TokenID)
	}
	if filled.Contract == (common.Address{}) {
		filled.Contract = req.Contract
	}
	return &filled, nil
}

// check validates one fetched order against the item it should fill.
func (r *Resolver) check(o *Order, req PurchaseRequest, item Item) error {
	if !o.Active() {
		return ErrOrderNotFound
	}
	if o.ExpirationTime != 0 {
		now := time.Now
		if r.Now != nil {
			now = r.Now
		}
		if o.ExpirationTime <= uint64(now().Unix()) {
			return ErrOrderNotFound
		}
	}
	if o.Contract != (common.Address{}) && o.Contract != req.Contract {
		return ErrOrderNotFound
	}
	if o.TokenID != nil && o.TokenID.Cmp(item.TokenID) != 0 {
		return ErrOrderNotFound
	}
	if o.Standard != req.Standard {
		return ErrUnsupportedOrderKind
	}
	if o.Side != SideSell || o.SaleKind != SaleKindFixedPrice || o.FeeMethod != FeeMethodSplitFee {
		return ErrUnsupportedOrderKind
	}
	if o.PaymentToken != (common.Address{}) {
		return ErrUnsupportedOrderKind
	}
	if o.PaymentToken != r.Currency {
		return ErrCurrencyMismatch
	}
	if new(big.Int).SetUint64(item.Quantity).Cmp(o.Available()) > 0 {
		return ErrInsufficientQuantity
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientQuantity):
		return "insufficient_quantity"
	case errors.Is(err, ErrUnsupportedOrderKind):
		return "unsupported"
	case errors.Is(err, ErrCurrencyMismatch):
		return "currency_mismatch"
	default:
		return "error"
	}
}
