package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	// 0 means counts are never cleared while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio is the share of failed requests that trips the breaker.
	FailureRatio float64

	// MinRequests is the number of requests needed before FailureRatio is evaluated.
	MinRequests uint32

	// IgnoreServerErrors stops 5xx responses from counting as failures, so
	// only transport errors can trip the breaker.
	IgnoreServerErrors bool
}

// DefaultCircuitBreakerConfig returns the breaker settings used for sibling services.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var (
	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	circuitBreakerRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Total number of requests rejected by an open circuit breaker",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(circuitBreakerState, circuitBreakerRejectedTotal)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// ErrCircuitOpen is returned when the breaker rejects a request.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerClient wraps a Client with circuit breaker protection.
//
// 5xx responses count as failures for the breaker but are still handed back
// to the caller, so the caller decides what a server error means.
type CircuitBreakerClient struct {
	client       *Client
	breaker      *gobreaker.CircuitBreaker[*http.Response]
	logger       *slog.Logger
	name         string
	ignoreStatus bool
}

// NewCircuitBreakerClient wraps an existing HTTP client with a circuit breaker.
func NewCircuitBreakerClient(client *Client, cbCfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:        cbCfg.Name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cbCfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cbCfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not evidence against the downstream.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			circuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	circuitBreakerState.WithLabelValues(cbCfg.Name).Set(0)

	return &CircuitBreakerClient{
		client:       client,
		breaker:      gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:       logger,
		name:         cbCfg.Name,
		ignoreStatus: cbCfg.IgnoreServerErrors,
	}
}

// Do executes an HTTP request through the circuit breaker.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var upstream *http.Response
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if !c.ignoreStatus && IsServerError(resp.StatusCode) {
			upstream = resp
			return nil, &StatusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})

	var statusErr *StatusError
	switch {
	case err == nil:
		return resp, nil
	case errors.As(err, &statusErr):
		return upstream, nil
	case errors.Is(err, ErrCircuitOpen) || errors.Is(err, gobreaker.ErrTooManyRequests):
		circuitBreakerRejectedTotal.WithLabelValues(c.name).Inc()
		c.logger.WarnContext(ctx, "circuit breaker rejected request",
			slog.String("breaker", c.name),
		)
		return nil, fmt.Errorf("%s: %w", c.name, err)
	default:
		return nil, err
	}
}

// Get performs an HTTP GET request through the circuit breaker.
func (c *CircuitBreakerClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
