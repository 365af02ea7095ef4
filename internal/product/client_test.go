package product

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/einarr2o12/review-service/pkg/httpclient"
	"github.com/einarr2o12/review-service/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL, breaker string) *Client {
	t.Helper()
	base := httpclient.New(httpclient.Config{
		Timeout:         time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 4,
	})
	cb := httpclient.NewCircuitBreakerClient(base, httpclient.CircuitBreakerConfig{
		Name:         breaker,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,

		IgnoreServerErrors: true,
	}, testLogger())
	return NewClient(cb, baseURL, testLogger())
}

func TestClient_Exists_Found(t *testing.T) {
	var gotPath, gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCorrelation = r.Header.Get(httpclient.CorrelationIDHeader)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":7,"name":"Widget"}`))
	}))
	defer srv.Close()

	before := testutil.ToFloat64(validationTotal.WithLabelValues(resultFound))

	c := newTestClient(t, srv.URL+"/", "product-found")
	ctx := logger.WithCorrelationID(context.Background(), "corr-77")

	ok, err := c.Exists(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/api/products/7", gotPath)
	assert.Equal(t, "corr-77", gotCorrelation)
	assert.Equal(t, before+1, testutil.ToFloat64(validationTotal.WithLabelValues(resultFound)))
}

func TestClient_Exists_NonOKMeansMissing(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest, http.StatusNoContent, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, "product-status-"+http.StatusText(status))

			ok, err := c.Exists(context.Background(), 1)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestClient_Exists_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	before := testutil.ToFloat64(validationTotal.WithLabelValues(resultError))

	c := newTestClient(t, url, "product-down")

	ok, err := c.Exists(context.Background(), 3)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "get product 3")
	assert.Equal(t, before+1, testutil.ToFloat64(validationTotal.WithLabelValues(resultError)))
}

func TestClient_Exists_NoRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "product-no-retry")

	ok, err := c.Exists(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Exists_BreakerOpensOnTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, "product-open")

	for i := 0; i < 2; i++ {
		_, err := c.Exists(context.Background(), 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, httpclient.ErrCircuitOpen)
	}

	ok, err := c.Exists(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, httpclient.ErrCircuitOpen)
}

func TestClient_Exists_ServerErrorsNeverOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "product-5xx")

	for i := 0; i < 10; i++ {
		ok, err := c.Exists(context.Background(), 1)
		require.NoError(t, err, "attempt %d", i)
		assert.False(t, ok)
	}
	assert.Equal(t, int32(10), hits.Load())
}
