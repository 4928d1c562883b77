package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/ligun0805/nft-bundle-buy/internal/bundlecore"
	"github.com/ligun0805/nft-bundle-buy/internal/config"
	"github.com/ligun0805/nft-bundle-buy/internal/flashbots"
)

// Buy purchases the cheapest listing of every requested token.
type Buy struct {
	Contract    string   `short:"c" long:"contract" required:"true" description:"NFT contract address"`
	Standard    string   `short:"s" long:"standard" default:"erc721" description:"Token standard: erc721 or erc1155"`
	IDs         []string `short:"i" long:"id" description:"Token id, optionally id:quantity; repeatable and comma separated"`
	File        string   `short:"f" long:"file" description:"CSV file with rows id[,quantity]"`
	Recipient   string   `short:"r" long:"recipient" description:"Address receiving the NFTs (defaults to the buyer)"`
	Bribe       string   `short:"b" long:"bribe" description:"Bribe in ETH paid to the block builder"`
	Verifier    string   `long:"verifier" description:"Ownership verifier contract paying the bribe (overrides BRIBER_ADDRESS)"`
	Relays      []string `long:"relay" description:"Relay URL (overrides RELAYS); prefix mm: or mev: for matchmakers"`
	Public      bool     `long:"public" description:"Broadcast to the public mempool even if relays are configured"`
	Blocks      int      `long:"blocks" description:"Number of target blocks (overrides TARGET_BLOCKS)"`
	MaxInFlight int      `long:"max-in-flight" description:"Target blocks submitted concurrently"`
	TipGwei     int64    `long:"tip-gwei" description:"Priority fee in gwei"`
	TipMode     string   `long:"tip-mode" description:"fixed or feehist"`
	EstimateGas bool     `long:"estimate-gas" description:"Estimate settlement gas instead of using defaults"`
	NoSimulate  bool     `long:"no-simulate" description:"Skip eth_callBundle before submitting"`
	DryRun      bool     `short:"n" long:"dry-run" description:"Sign and print the bundle without submitting"`
	Yes         bool     `short:"y" long:"yes" description:"Do not ask for confirmation"`
}

// Execute runs the purchase.
func (x *Buy) Execute(args []string) error {
	st := config.Load()
	x.applyFlags(&st)

	logger, err := newLogger(st)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	req, err := x.request()
	if err != nil {
		return err
	}
	keyHex, err := privateKey(st)
	if err != nil {
		return err
	}
	p, err := buildParams(st, keyHex, req, x.Recipient, x.Bribe, x.DryRun)
	if err != nil {
		return err
	}
	p.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ec, err := newEthClientWithTimeout(st.RPCURL)
	if err != nil {
		return fmt.Errorf("dial RPC: %w", err)
	}
	defer ec.Close()
	if p.ChainID, err = chainIDFrom(ctx, ec, st.ChainID); err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	if len(st.Relays) > 0 {
		relays, err := dialRelays(st, logger)
		if err != nil {
			return err
		}
		defer closeRelays(relays)
		p.Relays = relays
	}

	src, err := openseaClient(st, logger)
	if err != nil {
		return err
	}

	printBanner(st, p, keyHex)
	if !x.DryRun && !x.Yes && !confirm(os.Stdin, "Submit? [y/N]: ") {
		return errors.New("aborted")
	}

	res, runErr := bundlecore.Run(ctx, ec, src, p)
	if res != nil && res.Report != nil {
		printReport(res.Report)
	}
	writeMetrics(st.MetricsTextfile, logger)
	if runErr != nil {
		return flashbots.Explain(runErr)
	}
	if res.Report != nil && res.Report.Outcome != bundlecore.OutcomeFullyIncluded {
		return fmt.Errorf("bundle %s", res.Report.Outcome)
	}
	return nil
}

func dialRelays(st config.Settings, logger *zap.Logger) ([]bundlecore.Relay, error) {
	opts := flashbots.DialOptions{ReplacementUUID: st.ReplacementUUID, Logger: logger.Named("relay")}
	if st.FlashbotsAuthPKHex != "" {
		k, err := crypto.HexToECDSA(strings.TrimPrefix(st.FlashbotsAuthPKHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("FLASHBOTS_AUTH_PK: %w", err)
		}
		opts.AuthKey = k
	}
	return flashbots.Dial(st.Relays, opts)
}

func closeRelays(relays []bundlecore.Relay) {
	for _, r := range relays {
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	s := strings.ToLower(strings.TrimSpace(line))
	return s == "y" || s == "yes"
}

func printBanner(st config.Settings, p bundlecore.Params, keyHex string) {
	buyer, _ := bundlecore.AddressFromKey(keyHex)
	fmt.Println("=== CONFIG ===")
	fmt.Println("RPC_URL           :", st.RPCURL)
	fmt.Println("CHAIN_ID          :", p.ChainID.String())
	fmt.Println("PRIVATE_KEY       :", maskHex(keyHex))
	fmt.Println("  -> Buyer        :", buyer.Hex())
	fmt.Println("Contract          :", p.Request.Contract.Hex(), "("+p.Request.Standard.String()+")")
	fmt.Println("Items             :", len(p.Request.Items))
	if len(p.Relays) > 0 {
		names := make([]string, len(p.Relays))
		for i, r := range p.Relays {
			names[i] = r.Name()
		}
		fmt.Println("Relays            :", strings.Join(names, ", "))
		fmt.Println("FLASHBOTS_AUTH_PK :", maskHex(st.FlashbotsAuthPKHex))
		fmt.Println("Blocks            :", p.Blocks)
	} else {
		fmt.Println("Relays            : none (public mempool, not atomic)")
	}
	fmt.Println("Tip               :", p.Fees.TipGwei, "gwei", "("+st.TipMode+")")
	if p.Bribe != nil {
		fmt.Println("Bribe             :", formatEther(p.Bribe), "ETH")
	}
	fmt.Println("DryRun            :", p.DryRun)
	fmt.Println("==============")
}

func printReport(r *bundlecore.Report) {
	fmt.Println("=== RESULT ===")
	fmt.Println("Path    :", r.Path, "| atomic:", r.Atomic)
	fmt.Println("Outcome :", r.Outcome)
	if r.IncludedBlock > 0 {
		fmt.Println("Block   :", r.IncludedBlock)
	}
	for _, a := range r.Attempts {
		line := fmt.Sprintf("  block %d: accepted=%v", a.TargetBlock, a.Accepted)
		for name, err := range a.Rejected {
			line += fmt.Sprintf(" %s=%q", name, flashbots.Friendly(err))
		}
		if a.Included {
			line += " included"
		}
		fmt.Println(line)
	}
	for _, t := range r.Txs {
		line := fmt.Sprintf("  #%d %-10s nonce=%d %s %s", t.Index, t.Label, t.Nonce, t.Hash.Hex(), t.Status)
		if t.Err != nil {
			line += " (" + flashbots.Friendly(t.Err) + ")"
		}
		fmt.Println(line)
	}
	if r.Reason != "" {
		fmt.Println("Reason  :", r.Reason)
	}
}
