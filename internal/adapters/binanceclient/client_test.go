package binanceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"cryptoBacktester/internal/adapters/logger"
	"cryptoBacktester/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.KlineSource = (*Client)(nil)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeExchange serves hourly klines from epoch, honouring startTime, endTime and limit.
type fakeExchange struct {
	total    int
	requests atomic.Int32
}

func (f *fakeExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/fapi/v1/ping":
		fmt.Fprint(w, "{}")
	case "/fapi/v1/klines":
		f.requests.Add(1)
		q := r.URL.Query()
		start, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
		end, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)
		limit, _ := strconv.Atoi(q.Get("limit"))

		rows := make([][]interface{}, 0)
		for i := 0; i < f.total && len(rows) < limit; i++ {
			open := epoch.Add(time.Duration(i) * time.Hour).UnixMilli()
			if open < start || open > end {
				continue
			}
			price := strconv.Itoa(100 + i)
			rows = append(rows, []interface{}{
				open, price, price, price, price, "1.5",
				open + time.Hour.Milliseconds() - 1, "150", 10, "0.5", "50", "0",
			})
		}
		json.NewEncoder(w).Encode(rows)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, handler http.Handler, pageLimit int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, PageLimit: pageLimit, Logger: logger.Nop()})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresLogger(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestClient_Ping(t *testing.T) {
	c := newTestClient(t, &fakeExchange{}, 0)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestClient_GetKlinesRangePages(t *testing.T) {
	exchange := &fakeExchange{total: 25}
	c := newTestClient(t, exchange, 10)

	klines, err := c.GetKlinesRange(context.Background(), "BTCUSDT", "1h", epoch, epoch.Add(30*time.Hour))
	require.NoError(t, err)
	require.Len(t, klines, 25)
	assert.Equal(t, int32(3), exchange.requests.Load())

	for i, k := range klines {
		assert.True(t, epoch.Add(time.Duration(i)*time.Hour).Equal(k.OpenTime), "kline %d", i)
		assert.Equal(t, float64(100+i), k.Close)
		assert.Equal(t, 1.5, k.Volume)
		assert.Equal(t, "BTCUSDT", k.Symbol)
		assert.Equal(t, "1h", k.Interval)
	}
}

func TestClient_GetKlinesRangeBounded(t *testing.T) {
	c := newTestClient(t, &fakeExchange{total: 100}, 0)

	klines, err := c.GetKlinesRange(context.Background(), "BTCUSDT", "1h", epoch.Add(10*time.Hour), epoch.Add(19*time.Hour))
	require.NoError(t, err)
	require.Len(t, klines, 10)
	assert.Equal(t, 110.0, klines[0].Close)
	assert.Equal(t, 119.0, klines[9].Close)
}

func TestClient_GetKlinesRangeInvalid(t *testing.T) {
	c := newTestClient(t, &fakeExchange{}, 0)
	_, err := c.GetKlinesRange(context.Background(), "BTCUSDT", "1h", epoch.Add(time.Hour), epoch)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    int
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, -1003, ports.ErrRateLimited},
		{"bad symbol", http.StatusBadRequest, -1121, ports.ErrInvalidRequest},
		{"bad key", http.StatusUnauthorized, -2015, ports.ErrAuthenticationFailed},
		{"unmapped", http.StatusBadRequest, -9999, ports.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"code":%d,"msg":"rejected"}`, tt.code)
			}), 0)

			_, err := c.GetKlinesRange(context.Background(), "BTCUSDT", "1h", epoch, epoch.Add(time.Hour))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_CanceledContext(t *testing.T) {
	c := newTestClient(t, &fakeExchange{total: 5}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetKlinesRange(ctx, "BTCUSDT", "1h", epoch, epoch.Add(time.Hour))
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
}
