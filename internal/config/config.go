package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings keeps all configuration options read from the environment.
type Settings struct {
	RPCURL  string
	ChainID string // empty means ask the node

	PrivateKeyHex      string
	Relays             []string
	FlashbotsAuthPKHex string
	ReplacementUUID    string

	Blocks           int
	MaxInFlight      int
	InclusionTimeout time.Duration
	ReceiptTimeout   time.Duration
	PollInterval     time.Duration
	Simulate         bool

	TipGwei       int64
	TipMode       string
	TipWindow     int
	TipPercentile int
	BaseFeeBumps  int
	BufferPct     int64
	EstimateGas   bool

	OpenSeaNetwork string
	OpenSeaAPIKey  string
	OpenSeaBaseURL string

	BriberAddress string

	LogLevel        string
	LogFormat       string
	MetricsTextfile string
}

// Load reads settings from environment supporting both UPPER_CASE and lower_case keys.
func Load() Settings {
	get := func(keys []string, def string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v
			}
		}
		return def
	}
	getInt := func(keys []string, def int) int {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		return def
	}
	getInt64 := func(keys []string, def int64) int64 {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return def
	}
	getBool := func(keys []string, def bool) bool {
		s := strings.ToLower(get(keys, ""))
		if s == "" {
			return def
		}
		return s == "1" || s == "true" || s == "yes" || s == "on"
	}
	// Bare numbers are seconds.
	getDuration := func(keys []string, def time.Duration) time.Duration {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(s); err == nil && d >= 0 {
			return d
		}
		return def
	}
	splitCSV := func(s string) []string {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	}

	st := Settings{}
	st.RPCURL = get([]string{"rpc_url", "RPC_URL"}, "https://eth.llamarpc.com")
	st.ChainID = get([]string{"chain_id", "CHAIN_ID"}, "")

	st.PrivateKeyHex = get([]string{"private_key", "PRIVATE_KEY"}, "")
	st.Relays = splitCSV(get([]string{"relays", "RELAYS"}, ""))
	st.FlashbotsAuthPKHex = get([]string{"flashbots_auth_pk", "FLASHBOTS_AUTH_PK"}, "")
	st.ReplacementUUID = get([]string{"replacement_uuid", "REPLACEMENT_UUID"}, "")

	st.Blocks = getInt([]string{"target_blocks", "TARGET_BLOCKS", "blocks", "BLOCKS"}, 5)
	st.MaxInFlight = getInt([]string{"max_in_flight", "MAX_IN_FLIGHT"}, 1)
	st.InclusionTimeout = getDuration([]string{"inclusion_timeout", "INCLUSION_TIMEOUT"}, 2*time.Minute)
	st.ReceiptTimeout = getDuration([]string{"receipt_timeout", "RECEIPT_TIMEOUT"}, 3*time.Minute)
	st.PollInterval = getDuration([]string{"poll_interval", "POLL_INTERVAL"}, time.Second)
	st.Simulate = getBool([]string{"simulate", "SIMULATE"}, true)

	st.TipGwei = getInt64([]string{"tip_gwei", "TIP_GWEI"}, 3)
	st.TipMode = strings.ToLower(get([]string{"tip_mode", "TIP_MODE"}, "fixed"))
	st.TipWindow = getInt([]string{"tip_window", "TIP_WINDOW"}, 20)
	st.TipPercentile = getInt([]string{"tip_percentile", "TIP_PERCENTILE"}, 90)
	st.BaseFeeBumps = getInt([]string{"basefee_bumps", "BASEFEE_BUMPS"}, 5)
	st.BufferPct = getInt64([]string{"buffer_pct", "BUFFER_PCT"}, 5)
	st.EstimateGas = getBool([]string{"estimate_gas", "ESTIMATE_GAS"}, false)

	st.OpenSeaNetwork = get([]string{"opensea_network", "OPENSEA_NETWORK"}, "mainnet")
	st.OpenSeaAPIKey = get([]string{"opensea_api_key", "OPENSEA_API_KEY"}, "")
	st.OpenSeaBaseURL = get([]string{"opensea_base_url", "OPENSEA_BASE_URL"}, "")

	st.BriberAddress = get([]string{"briber_address", "BRIBER_ADDRESS"}, "")

	st.LogLevel = strings.ToLower(get([]string{"log_level", "LOG_LEVEL"}, "info"))
	st.LogFormat = strings.ToLower(get([]string{"log_format", "LOG_FORMAT"}, "console"))
	st.MetricsTextfile = get([]string{"metrics_textfile", "METRICS_TEXTFILE"}, "")

	return st
}
