package flashbots

import (
	"crypto/ecdsa"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ligun0805/nft-bundle-buy/internal/bundlecore"
)

type DialOptions struct {
	// AuthKey signs X-Flashbots-Signature; a throwaway key is generated when nil.
	AuthKey *ecdsa.PrivateKey
	// ReplacementUUID is attached by matchmaker clients. "auto" generates one.
	ReplacementUUID string
	// Headers are extra per-relay headers keyed by URL (without prefix).
	Headers    map[string]map[string]string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Dial classifies relay URLs into w3 relays (classic: or default) and raw
// matchmaker clients (mm:, mev:, bloXroute, old "mev"/"matchmaker" hosts).
func Dial(urls []string, opts DialOptions) ([]bundlecore.Relay, error) {
	key := opts.AuthKey
	if key == nil {
		k, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		key = k
	}
	repl, err := replacementUUID(opts.ReplacementUUID)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var relays []bundlecore.Relay
	matchmaker := func(u string) {
		o := []Option{WithHeaders(opts.Headers[u]), WithReplacementUUID(repl), WithLogger(logger)}
		if opts.HTTPClient != nil {
			o = append(o, WithHTTPClient(opts.HTTPClient))
		}
		relays = append(relays, NewClient(u, key, o...))
	}
	for _, r := range urls {
		u := strings.TrimSpace(r)
		if u == "" {
			continue
		}
		low := strings.ToLower(u)
		switch {
		case strings.HasPrefix(low, "mm:"):
			matchmaker(u[len("mm:"):])
		case strings.HasPrefix(low, "mev:"):
			matchmaker(u[len("mev:"):])
		case strings.HasPrefix(low, "classic:"):
			relays = append(relays, NewW3Relay(u[len("classic:"):], key))
		case isBloxroute(low):
			// NewClient switches to the blxr_* body for these hosts.
			matchmaker(u)
		case strings.Contains(low, "mev") || strings.Contains(low, "matchmaker"):
			matchmaker(u)
		default:
			relays = append(relays, NewW3Relay(u, key))
		}
	}
	if len(relays) == 0 {
		return nil, bundlecore.ErrNoRelay
	}
	return relays, nil
}

func replacementUUID(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return "", nil
	case "auto":
		return uuid.NewString(), nil
	}
	id, err := uuid.Parse(strings.TrimSpace(v))
	if err != nil {
		return "", errors.Join(errors.New("replacement uuid"), err)
	}
	return id.String(), nil
}
