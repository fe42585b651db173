package utils

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKlinesRoundTripFile(t *testing.T) {
	klines := testutil.RandomWalk(50, 3)
	path := filepath.Join(t.TempDir(), "klines.csv")

	require.NoError(t, WriteKlinesToCSV(klines, path))
	got, err := ReadKlinesFromCSV(path)
	require.NoError(t, err)
	require.Len(t, got, len(klines))

	for i := range klines {
		assert.True(t, klines[i].OpenTime.Equal(got[i].OpenTime))
		assert.True(t, klines[i].CloseTime.Equal(got[i].CloseTime))
		assert.Equal(t, klines[i].Close, got[i].Close)
		assert.Equal(t, klines[i].High, got[i].High)
		assert.Equal(t, "BTCUSDT", got[i].Symbol)
	}
}

func TestReadKlines_MillisecondsAndColumnOrder(t *testing.T) {
	in := "close,open_time,open,high,low\n" +
		"101.5,1704067200000,100,102,99\n" +
		"102,1704070800000,101.5,103,101\n"

	klines, err := ReadKlines(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.True(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC).Equal(klines[1].OpenTime))
	assert.Equal(t, 101.5, klines[0].Close)
	assert.Equal(t, 0.0, klines[0].Volume)
	assert.True(t, klines[0].CloseTime.IsZero())
}

func TestReadKlines_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"missing columns", "open_time,close\n", "missing columns: open, high, low"},
		{"bad price", "open_time,open,high,low,close\n2024-01-01T00:00:00Z,x,1,1,1\n", "line 2: invalid open"},
		{"bad time", "open_time,open,high,low,close\nyesterday,1,1,1,1\n", "invalid open_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadKlines(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTradesRoundTrip(t *testing.T) {
	trades := []*domain.Trade{
		{
			ID: 1, Symbol: "BTCUSDT", Side: domain.SideLong,
			EntryTime: testutil.Start, ExitTime: testutil.Start.Add(3 * time.Hour),
			EntryPrice: 100, ExitPrice: 110, Quantity: 2,
			GrossPNL: 20, Commission: 0.42, Slippage: 0.1, PNL: 19.48,
			CloseReason: domain.CloseReasonTakeProfit, EntryConfidence: 0.75,
		},
		{
			ID: 2, Symbol: "BTCUSDT", Side: domain.SideShort,
			EntryTime: testutil.Start.Add(4 * time.Hour), ExitTime: testutil.Start.Add(6 * time.Hour),
			EntryPrice: 110, ExitPrice: 115, Quantity: 1, GrossPNL: -5, PNL: -5,
			CloseReason: domain.CloseReasonStopLoss, EntryConfidence: 0.6,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTrades(&buf, trades))
	assert.True(t, strings.HasPrefix(buf.String(), "id,symbol,side,"))

	got, err := ReadTrades(&buf)
	require.NoError(t, err)
	assert.Equal(t, trades, got)
}

func TestReadTrades_MinimalColumns(t *testing.T) {
	got, err := ReadTrades(strings.NewReader("exit_time,pnl\n2024-01-02T00:00:00Z,-12.5\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, -12.5, got[0].PNL)
	assert.True(t, got[0].EntryTime.IsZero())
}
