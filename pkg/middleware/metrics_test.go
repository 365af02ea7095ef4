package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectMetric returns the first series of c whose labels include all of labels.
func collectMetric(c prometheus.Collector, labels map[string]string) *dto.Metric {
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		have := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			have[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range labels {
			if have[k] != v {
				match = false
				break
			}
		}
		if match {
			return d
		}
	}
	return nil
}

func metricsRouter(service string, handler http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(service))
	r.Get("/api/reviews/{id}", handler)
	return r
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	r := metricsRouter("count-svc", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/reviews/"+id, nil))
	}

	m := collectMetric(httpRequestsTotal, map[string]string{
		"service": "count-svc", "method": "GET", "path": "/api/reviews/{id}", "status": "200",
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(3), m.GetCounter().GetValue())
}

func TestPrometheusMetrics_DurationHistogram(t *testing.T) {
	r := metricsRouter("hist-svc", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/reviews/9", nil))

	m := collectMetric(httpRequestDuration, map[string]string{"service": "hist-svc", "status": "404"})
	require.NotNil(t, m)
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestPrometheusMetrics_UnmatchedRoute(t *testing.T) {
	r := metricsRouter("unmatched-svc", func(w http.ResponseWriter, r *http.Request) {})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	m := collectMetric(httpRequestsTotal, map[string]string{"service": "unmatched-svc", "path": unmatchedRoute})
	require.NotNil(t, m)
}

func TestPrometheusMetrics_InFlightGauge(t *testing.T) {
	seen := float64(-1)
	r := metricsRouter("inflight-svc", func(w http.ResponseWriter, r *http.Request) {
		if m := collectMetric(httpRequestsInFlight, map[string]string{"service": "inflight-svc"}); m != nil {
			seen = m.GetGauge().GetValue()
		}
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/reviews/1", nil))

	assert.Equal(t, float64(1), seen)
	m := collectMetric(httpRequestsInFlight, map[string]string{"service": "inflight-svc"})
	require.NotNil(t, m)
	assert.Equal(t, float64(0), m.GetGauge().GetValue())
}
