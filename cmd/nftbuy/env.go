package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/ligun0805/nft-bundle-buy/internal/config"
	"github.com/ligun0805/nft-bundle-buy/internal/opensea"
	"github.com/ligun0805/nft-bundle-buy/internal/telemetry"
)

// newEthClientWithTimeout dials RPC with keep-alives and sane timeouts.
func newEthClientWithTimeout(rpcURL string) (*ethclient.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
	rpcClient, err := rpc.DialHTTPWithClient(rpcURL, httpClient)
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(rpcClient), nil
}

// newLogger builds a console (development) or json (production) logger.
func newLogger(st config.Settings) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(st.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	var cfg zap.Config
	if st.LogFormat == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func chainIDFrom(ctx context.Context, ec *ethclient.Client, configured string) (*big.Int, error) {
	if configured != "" {
		id, ok := new(big.Int).SetString(configured, 10)
		if !ok || id.Sign() <= 0 {
			return nil, fmt.Errorf("bad CHAIN_ID %q", configured)
		}
		return id, nil
	}
	return ec.ChainID(ctx)
}

func openseaClient(st config.Settings, logger *zap.Logger) (*opensea.Client, error) {
	return opensea.NewClient(opensea.Config{
		Network: st.OpenSeaNetwork,
		BaseURL: st.OpenSeaBaseURL,
		APIKey:  st.OpenSeaAPIKey,
		Logger:  logger.Named("opensea"),
	})
}

// privateKey returns the configured key or prompts for it without echo.
func privateKey(st config.Settings) (string, error) {
	if k := strings.TrimSpace(st.PrivateKeyHex); k != "" {
		return k, nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("PRIVATE_KEY is empty and stdin is not a terminal")
	}
	return readPassword("Private key: ")
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func maskHex(h string) string {
	h = strings.TrimSpace(h)
	if len(h) <= 10 {
		return "***"
	}
	return h[:6] + "…" + h[len(h)-4:]
}

func writeMetrics(path string, logger *zap.Logger) {
	if path == "" {
		return
	}
	if err := telemetry.WriteTextfile(path); err != nil {
		logger.Warn("write metrics textfile", zap.String("path", path), zap.Error(err))
	}
}
