// Package ingest turns token id lists from flags or CSV files into purchase
// items.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

var ErrNoItems = errors.New("no token ids")

// RowError points at the offending input line (1-based) or flag value.
type RowError struct {
	Line  int
	Value string
	Err   error
}

func (e *RowError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d %q: %v", e.Line, e.Value, e.Err)
	}
	return fmt.Sprintf("%q: %v", e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseArgs reads items from command line values. Each value holds one or
// more comma separated entries of the form id or id:quantity. Ids may be
// decimal or 0x-prefixed hex. A missing quantity means 1.
func ParseArgs(values []string) ([]order.Item, error) {
	var items []order.Item
	for _, v := range values {
		for _, entry := range strings.Split(v, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			id, qty, _ := strings.Cut(entry, ":")
			it, err := parseItem(id, qty)
			if err != nil {
				return nil, &RowError{Value: entry, Err: err}
			}
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

// ReadFile reads items from a CSV file. See Read.
func ReadFile(path string) ([]order.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(data))
}

// Read parses rows of id[,quantity]. The delimiter is ';' when the first
// non-empty line uses it exclusively, ',' otherwise. A header row naming the
// columns is skipped.
func Read(r io.Reader) ([]order.Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var items []order.Item
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if skipRow(row, len(items) == 0) {
			continue
		}
		qty := ""
		if len(row) > 1 {
			qty = row[1]
		}
		it, err := parseItem(row[0], qty)
		if err != nil {
			return nil, &RowError{Line: line, Value: strings.Join(row, string(cr.Comma)), Err: err}
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

func parseItem(idStr, qtyStr string) (order.Item, error) {
	idStr = strings.TrimSpace(idStr)
	id, ok := math.ParseBig256(idStr)
	if !ok || idStr == "" || id.Sign() < 0 {
		return order.Item{}, fmt.Errorf("%w: %q", order.ErrInvalidTokenID, idStr)
	}
	qty := uint64(1)
	if qtyStr = strings.TrimSpace(qtyStr); qtyStr != "" {
		n, err := strconv.ParseUint(qtyStr, 10, 64)
		if err != nil || n == 0 {
			return order.Item{}, fmt.Errorf("%w: %q", order.ErrInvalidQuantity, qtyStr)
		}
		qty = n
	}
	return order.Item{TokenID: new(big.Int).Set(id), Quantity: qty}, nil
}

func detectDelimiter(data []byte) rune {
	for _, l := range strings.Split(string(data), "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		if strings.Contains(l, ";") && !strings.Contains(l, ",") {
			return ';'
		}
		break
	}
	return ','
}

// skipRow drops blank rows and, before any item was read, a header row.
func skipRow(row []string, first bool) bool {
	if len(row) == 0 {
		return true
	}
	if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
		return true
	}
	if first {
		head := strings.ToLower(strings.Join(row, ","))
		if strings.Contains(head, "id") || strings.Contains(head, "token") || strings.Contains(head, "qty") || strings.Contains(head, "quantity") {
			return true
		}
	}
	return false
}
