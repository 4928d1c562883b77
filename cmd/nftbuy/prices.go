package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/nft-bundle-buy/internal/config"
	"github.com/ligun0805/nft-bundle-buy/internal/ingest"
	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

// Prices prints the cheapest listings per token id.
type Prices struct {
	Contract string   `short:"c" long:"contract" required:"true" description:"NFT contract address"`
	IDs      []string `short:"i" long:"id" description:"Token id; repeatable and comma separated"`
	File     string   `short:"f" long:"file" description:"CSV file with one token id per row"`
	Count    int      `short:"n" long:"count" default:"1" description:"Orders to print per token id"`
	Wei      bool     `long:"wei" description:"Print prices in wei instead of ETH"`
}

type cheapestSource interface {
	CheapestOrders(ctx context.Context, contract common.Address, tokenID *big.Int, n int) ([]order.Order, error)
}

// Execute fetches and prints the prices.
func (x *Prices) Execute(args []string) error {
	st := config.Load()
	logger, err := newLogger(st)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if !common.IsHexAddress(x.Contract) {
		return fmt.Errorf("bad contract address %q", x.Contract)
	}
	var items []order.Item
	if x.File != "" {
		if items, err = ingest.ReadFile(x.File); err != nil {
			return err
		}
	}
	if len(x.IDs) > 0 {
		more, err := ingest.ParseArgs(x.IDs)
		if err != nil {
			return err
		}
		items = append(items, more...)
	}
	if len(items) == 0 {
		return ingest.ErrNoItems
	}

	src, err := openseaClient(st, logger)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(len(items))*15*time.Second)
	defer cancel()
	return x.write(ctx, os.Stdout, src, common.HexToAddress(x.Contract), items)
}

func (x *Prices) write(ctx context.Context, out io.Writer, src cheapestSource, contract common.Address, items []order.Item) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"token_id", "price", "quantity"}); err != nil {
		return err
	}
	for _, it := range items {
		orders, err := src.CheapestOrders(ctx, contract, it.TokenID, x.Count)
		if err != nil {
			return fmt.Errorf("token %s: %w", it.TokenID, err)
		}
		for i := range orders {
			price := formatEther(orders[i].Price())
			if x.Wei {
				price = orders[i].Price().String()
			}
			if err := w.Write([]string{it.TokenID.String(), price, orders[i].Available().String()}); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
