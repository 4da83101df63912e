package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "no such market"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	_, err := client.Candlesticks(context.Background(), candleMarket(), domain.Interval1h, time.Now().Add(-time.Hour), time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such market")
	assert.Equal(t, 1, calls, "los 4xx son fatales, no se reintentan")
}

func TestClient_RetriesServerErrorsUntilSuccess(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"history": [{"t": 1704067200, "p": 0.5}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	candles, err := client.Candlesticks(context.Background(), candleMarket(), domain.Interval1h, time.Unix(1704067200, 0), time.Unix(1704070800, 0))

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, candles, 1)
}

func TestClient_CancelledContextAbortsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(srv, nil)
	_, err := client.Candlesticks(ctx, candleMarket(), domain.Interval1h, time.Now().Add(-time.Hour), time.Now())
	assert.Error(t, err)
}
