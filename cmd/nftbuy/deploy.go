package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ligun0805/nft-bundle-buy/internal/briber"
	"github.com/ligun0805/nft-bundle-buy/internal/config"
)

// Deploy publishes the ownership verifier contract.
type Deploy struct {
	Bytecode string `short:"b" long:"bytecode" required:"true" description:"File with creation bytecode (hex or compiler JSON artifact)"`
}

// Execute deploys and waits for the contract code.
func (x *Deploy) Execute(args []string) error {
	st := config.Load()
	logger, err := newLogger(st)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	code, err := briber.ReadBytecode(x.Bytecode)
	if err != nil {
		return fmt.Errorf("read bytecode: %w", err)
	}
	keyHex, err := privateKey(st)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ec, err := newEthClientWithTimeout(st.RPCURL)
	if err != nil {
		return fmt.Errorf("dial RPC: %w", err)
	}
	defer ec.Close()
	chainID, err := chainIDFrom(ctx, ec, st.ChainID)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	addr, tx, err := briber.Deploy(ctx, ec, keyHex, chainID, code, logger)
	if err != nil {
		return err
	}
	fmt.Println("tx            :", tx.Hash().Hex())
	fmt.Println("BRIBER_ADDRESS=" + addr.Hex())
	return nil
}
