package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Checker reports whether a dependency is usable. A nil error means healthy.
type Checker func(ctx context.Context) error

// Status is the state of a single check or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

const defaultCheckTimeout = 5 * time.Second

// Response is the body of the liveness and readiness probes.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one registered checker.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type check struct {
	fn       Checker
	critical bool
}

// Handler serves /health/live and /health/ready.
type Handler struct {
	mu      sync.RWMutex
	checks  map[string]check
	timeout time.Duration
}

// NewHandler creates a handler with no registered checks.
func NewHandler() *Handler {
	return &Handler{
		checks:  make(map[string]check),
		timeout: defaultCheckTimeout,
	}
}

// SetTimeout bounds the total time a readiness probe may spend in checkers.
func (h *Handler) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	h.mu.Lock()
	h.timeout = d
	h.mu.Unlock()
}

// RegisterCritical adds a checker whose failure makes the service not ready.
// Registering an existing name replaces it.
func (h *Handler) RegisterCritical(name string, fn Checker) {
	h.register(name, fn, true)
}

// RegisterNonCritical adds a checker whose failure only degrades the service.
func (h *Handler) RegisterNonCritical(name string, fn Checker) {
	h.register(name, fn, false)
}

func (h *Handler) register(name string, fn Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: fn, critical: critical}
}

// Names returns the registered checker names in sorted order.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LivenessHandler answers 200 as long as the process can serve HTTP.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeResponse(w, http.StatusOK, Response{
			Status:    StatusUp,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs every checker concurrently. Any critical failure
// yields 503; non-critical failures yield 200 with status "degraded".
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())

		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeResponse(w, status, resp)
	}
}

// Check runs all registered checkers and aggregates their results.
func (h *Handler) Check(ctx context.Context) Response {
	h.mu.RLock()
	checks := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	timeout := h.timeout
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, c := range checks {
		wg.Add(1)
		go func(name string, c check) {
			defer wg.Done()
			res := CheckResult{Status: StatusUp, Critical: c.critical}
			if err := c.fn(ctx); err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	overall := StatusUp
	for _, res := range results {
		if res.Status != StatusDown {
			continue
		}
		if res.Critical {
			overall = StatusDown
			break
		}
		overall = StatusDegraded
	}

	return Response{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
