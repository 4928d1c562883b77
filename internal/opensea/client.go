package opensea

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

const (
	BaseMainnet = "https://api.opensea.io"
	BaseRinkeby = "https://rinkeby-api.opensea.io"

	ordersPath     = "/wyvern/v1/orders"
	defaultLimit   = 50
	defaultTimeout = 15 * time.Second
)

// BaseURL maps a network name to the orderbook host.
func BaseURL(network string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(network)) {
	case "", "mainnet":
		return BaseMainnet, nil
	case "rinkeby":
		return BaseRinkeby, nil
	}
	return "", fmt.Errorf("unknown opensea network %q", network)
}

type Config struct {
	Network string
	// BaseURL overrides Network.
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zap.Logger
	// Now is the clock used for expiry checks; time.Now when nil.
	Now func() time.Time
}

// APIError is a non-200 reply from the orderbook.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("opensea: http %d: %s", e.Status, e.Body)
}

// Client reads sell orders from the OpenSea Wyvern orderbook. It implements
// order.Source.
type Client struct {
	base   string
	apiKey string
	httpc  *http.Client
	logger *zap.Logger
	now    func() time.Time
}

var _ order.Source = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		b, err := BaseURL(cfg.Network)
		if err != nil {
			return nil, err
		}
		base = b
	}
	c := &Client{base: base, apiKey: cfg.APIKey, httpc: cfg.HTTPClient, logger: cfg.Logger, now: cfg.Now}
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: defaultTimeout}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Orders returns up to limit sell orders for one token, as listed.
func (c *Client) Orders(ctx context.Context, contract common.Address, tokenID *big.Int, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	q := url.Values{}
	q.Set("side", strconv.Itoa(int(order.SideSell)))
	q.Set("token_id", tokenID.String())
	q.Set("asset_contract_address", strings.ToLower(contract.Hex()))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+ordersPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opensea orders: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out ordersResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode opensea orders: %w", err)
	}
	orders := make([]order.Order, 0, len(out.Orders))
	for i := range out.Orders {
		o, err := out.Orders[i].toOrder()
		if err != nil {
			c.logger.Warn("skipping malformed order", zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}
	c.logger.Debug("orders fetched",
		zap.String("contract", contract.Hex()),
		zap.Stringer("token_id", tokenID),
		zap.Int("count", len(orders)),
	)
	return orders, nil
}

// CheapestOrders returns the n cheapest active orders, cheapest first.
func (c *Client) CheapestOrders(ctx context.Context, contract common.Address, tokenID *big.Int, n int) ([]order.Order, error) {
	orders, err := c.Orders(ctx, contract, tokenID, defaultLimit)
	if err != nil {
		return nil, err
	}
	active := orders[:0]
	for _, o := range orders {
		if o.Active() {
			active = append(active, o)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Price().Cmp(active[j].Price()) < 0
	})
	if n > 0 && len(active) > n {
		active = active[:n]
	}
	return active, nil
}

// FetchSellOrder returns the cheapest listing that can be filled with the
// native coin: active, unexpired, fixed price, split fee and of the given
// standard.
func (c *Client) FetchSellOrder(ctx context.Context, contract common.Address, tokenID *big.Int, standard order.Standard) (*order.Order, error) {
	orders, err := c.CheapestOrders(ctx, contract, tokenID, 0)
	if err != nil {
		return nil, err
	}
	now := uint64(c.now().Unix())
	for i := range orders {
		if fillable(&orders[i], standard, now) {
			return &orders[i], nil
		}
	}
	c.logger.Debug("no fillable listing",
		zap.String("contract", contract.Hex()),
		zap.Stringer("token_id", tokenID),
		zap.Int("active", len(orders)))
	return nil, fmt.Errorf("token %s: %w", tokenID, order.ErrOrderNotFound)
}

func fillable(o *order.Order, standard order.Standard, now uint64) bool {
	switch {
	case o.Standard != standard:
		return false
	case o.PaymentToken != (common.Address{}):
		return false
	case o.ExpirationTime != 0 && o.ExpirationTime <= now:
		return false
	case o.Side != order.SideSell || o.SaleKind != order.SaleKindFixedPrice || o.FeeMethod != order.FeeMethodSplitFee:
		return false
	}
	return true
}
