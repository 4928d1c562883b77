package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/nft-bundle-buy/internal/order"
)

func render(items []order.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.TokenID.String() + "x" + strconv.FormatUint(it.Quantity, 10)
	}
	return out
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr error
	}{
		{"single", []string{"7"}, []string{"7x1"}, nil},
		{"comma list with quantities", []string{"1:2, 2", "0x10:3"}, []string{"1x2", "2x1", "16x3"}, nil},
		{"empty", []string{" , "}, nil, ErrNoItems},
		{"bad id", []string{"abc"}, nil, order.ErrInvalidTokenID},
		{"zero quantity", []string{"1:0"}, nil, order.ErrInvalidQuantity},
		{"negative id", []string{"-1"}, nil, order.ErrInvalidTokenID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseArgs(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, render(items))
		})
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"header and commas", "token_id,quantity\n1,2\n2,5\n", []string{"1x2", "2x5"}},
		{"semicolons", "1;3\n\n4;1\n", []string{"1x3", "4x1"}},
		{"ids only", "# wishlist\n10\n11\n", []string{"10x1", "11x1"}},
		{"hex ids", "0xff\n", []string{"255x1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Read(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, render(items))
		})
	}
}

func TestReadReportsLine(t *testing.T) {
	_, err := Read(strings.NewReader("id,qty\n1,1\n2,x\n"))
	var re *RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 3, re.Line)
	assert.ErrorIs(t, err, order.ErrInvalidQuantity)

	_, err = Read(strings.NewReader("id\n"))
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.csv")
	require.NoError(t, os.WriteFile(path, []byte("5,1\n6,2\n"), 0o600))
	items, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"5x1", "6x2"}, render(items))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
