package flashbots

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ligun0805/nft-bundle-buy/internal/bundlecore"
)

// Messages meaning the same signed bytes can never be accepted.
var permanentMarkers = []string{
	"nonce too low",
	"insufficient funds",
	"invalid signature",
	"invalid transaction",
	"unable to decode",
	"bundle too large",
	"exceeds block gas limit",
	"fee cap less than block base fee",
	"intrinsic gas too low",
}

// classify wraps err with bundlecore.ErrPermanentRejection when resubmitting
// the same bundle cannot help.
func classify(err error) error {
	if err == nil || !isPermanent(err) {
		return err
	}
	return fmt.Errorf("%w: %w", bundlecore.ErrPermanentRejection, err)
}

func isPermanent(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return true
		}
	}
	ls := strings.ToLower(err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(ls, m) {
			return true
		}
	}
	return false
}

func isMethodNotFound(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == -32601 {
		return true
	}
	ls := strings.ToLower(err.Error())
	return strings.Contains(ls, "method not found") ||
		strings.Contains(ls, "method not available") ||
		strings.Contains(ls, "unsupported") ||
		strings.Contains(ls, "eof")
}

// Friendly normalizes common relay errors for readable CLI output.
func Friendly(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	ls := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(ls, "unsupported: eth_callbundle"), strings.Contains(ls, "invalid method"), strings.Contains(ls, "method not found"):
		return "simulation not supported by relay"
	case strings.Contains(ls, "insufficient funds for gas"):
		return "insufficient ETH for simulation"
	case strings.Contains(ls, "invalid character '<'"):
		return "non-JSON/HTML response (proxy/cf?)"
	case strings.Contains(ls, "dial tcp"), strings.Contains(ls, "lookup "):
		return "network/DNS error"
	}
	return s
}

// Explain prefixes err with its Friendly text, keeping err in the chain.
func Explain(err error) error {
	if err == nil {
		return nil
	}
	msg := Friendly(err)
	if msg == err.Error() {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
